package pe

import (
	"github.com/tinypd/pdsink/dpm"
	"github.com/tinypd/pdsink/pdmsg"
	"github.com/tinypd/pdsink/port"
)

// PENotAttached is the machine's initial/detached state. It mirrors
// tc.Detached: nothing to do until the Type-C layer reports attach.
var PENotAttached = &pdState{
	Name: "pe-not-attached",
	Enter: func(pe *PE) *pdState {
		pe.Port.PEFlags.ClearAll()
		pe.Port.DPMRequests.ClearAll()
		pe.Port.Timers.StopRange(port.TimerRangePEFirst, port.TimerRangePELast)
		pe.Port.HardResetCounter = 0
		return nil
	},
	Process: func(pe *PE) *pdState {
		if pe.Port.Attached.Load() {
			return PESinkStartup
		}
		return nil
	},
}

// PESinkStartup (4.5) resets negotiation state for a fresh attach: no
// contract, SPR only, default revision. The hard reset counter is left
// alone, since every hard reset passes back through here; Not_Attached
// and Evaluate_Capability clear it.
var PESinkStartup = &pdState{
	Name: "pe-snk-startup",
	Enter: func(pe *PE) *pdState {
		pe.Port.PEFlags.ClearAll()
		pe.Port.Revision = pdmsg.Revision30
		pe.Port.RDOContracted = 0
		pe.Port.SourceCapsCount = 0
		pe.reportedHandshake = false
		pe.notify(dpm.EventStartup)
		return PESinkDiscovery
	},
}

// PESinkDiscovery (4.5) is a brief pass-through: by the time PE starts,
// TC has already confirmed VBUS, so there is nothing left to discover
// before waiting for the source's first Source_Capabilities.
var PESinkDiscovery = &pdState{
	Name:  "pe-snk-discovery",
	Enter: func(pe *PE) *pdState { return PESinkWaitForCapabilities },
}

// PESinkWaitForCapabilities (4.5) waits up to tTypeCSinkWaitCap for the
// source's first Source_Capabilities (or EPR_Source_Capabilities), and
// escalates to a hard reset if it never arrives.
var PESinkWaitForCapabilities = &pdState{
	Name: "pe-snk-wait-for-capabilities",
	Enter: func(pe *PE) *pdState {
		pe.Port.Timers.Start(port.TimeoutTypeCSinkWaitCap)
		return nil
	},
	Process: func(pe *PE) *pdState {
		if msg, ok := pe.tryReceive(); ok {
			if caps, isEPR, matched := classifySourceCaps(msg); matched {
				pe.pendingCaps = caps
				pe.capsRevision = msg.Msg.Header.SpecRevision()
				if isEPR {
					pe.capsRevision = msg.Ext.Header.SpecRevision()
				}
				return PESinkEvaluateCapability
			}
			return nil
		}
		if pe.Port.Timers.IsExpired(port.TimeoutTypeCSinkWaitCap) {
			pe.Port.PEFlags.Set(port.PEFlagHRByCapsTimeout)
			return PESinkHardReset
		}
		return nil
	},
	Exit: func(pe *PE) {
		pe.Port.Timers.Stop(port.TimeoutTypeCSinkWaitCap)
	},
}

// classifySourceCaps reports whether msg is a Source_Capabilities or
// EPR_Source_Capabilities message, returning its PDO list if so.
func classifySourceCaps(msg port.Message) (caps []pdmsg.PDO, isEPR bool, ok bool) {
	if msg.IsExt {
		if pdmsg.ExtType(msg.Ext.Header.MessageType()) != pdmsg.ExtEPRSourceCapabilities {
			return nil, false, false
		}
		c, _ := extractCaps(msg)
		return c, true, true
	}
	if msg.Msg.Header.IsData() && pdmsg.DataType(msg.Msg.Header.MessageType()) == pdmsg.DataSourceCapabilities {
		c, _ := extractCaps(msg)
		return c, false, true
	}
	return nil, false, false
}
