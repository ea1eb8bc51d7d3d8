package pe

import (
	"github.com/tinypd/pdsink/dpm"
	"github.com/tinypd/pdsink/pdmsg"
	"github.com/tinypd/pdsink/port"
)

// PESinkEvaluateCapability (4.5) validates the capability list staged by
// whichever state just received it (Wait_for_Capabilities or Ready), and
// hands it to the DPM's SelectCapability by way of Select_Capability.
var PESinkEvaluateCapability = softReset(&pdState{
	Name: "pe-snk-evaluate-capability",
	Enter: func(pe *PE) *pdState {
		caps := pe.pendingCaps
		if !pe.Port.PEFlags.Test(port.PEFlagInEPRMode) && len(caps) > port.MaxPdoObjectsSPR {
			caps = caps[:port.MaxPdoObjectsSPR]
		}
		if len(caps) > port.MaxPdoObjects {
			caps = caps[:port.MaxPdoObjects]
		}
		if err := validateSourceCapabilities(caps); err != nil {
			return PESinkSendSoftReset
		}

		copy(pe.Port.SourceCaps[:], caps)
		pe.Port.SourceCapsCount = uint8(len(caps))
		if pe.capsRevision < pe.Port.Revision {
			pe.Port.Revision = pe.capsRevision
		}
		pe.Port.HardResetCounter = 0
		pe.notify(dpm.EventSrcCapsReceived)
		return PESinkSelectCapability
	},
})

// selectCapabilityState is Select_Capability's own logic, wrapped with
// ForwardErrors+CheckRequestProgress below: a failed or discarded
// Request transmission here is serious enough that the default
// soft-reset reaction is wrong, so the state reacts to
// PEFlagProtocolError itself instead.
var selectCapabilityState = &pdState{
	Name: "pe-snk-select-capability",
	Enter: func(pe *PE) *pdState {
		caps := pe.Port.SourceCaps[:pe.Port.SourceCapsCount]
		rdo, pdo := pe.DPM.SelectCapability(caps)
		if rdo.ObjectPosition() == 0 {
			rdo.SetObjectPosition(1)
			rdo.SetCapabilityMismatch(true)
			pdo = pe.Port.SourceCaps[0]
		}
		pe.rdoToSend = rdo
		pe.pdoSelected = pdo
		pe.requestIsEPR = pe.Port.PEFlags.Test(port.PEFlagInEPRMode)
		pe.sendRequest(rdo, pe.requestIsEPR)
		return nil
	},
	Process: func(pe *PE) *pdState {
		switch pe.requestProgress {
		case ProgressFailed:
			return PESinkHardReset
		case ProgressDiscarded:
			return PESinkSendSoftReset
		case ProgressPending:
			return nil
		}

		if msg, ok := pe.tryReceive(); ok {
			if msg.IsExt || !msg.Msg.Header.IsCtrl() {
				return nil
			}
			switch pdmsg.CtrlType(msg.Msg.Header.MessageType()) {
			case pdmsg.CtrlAccept:
				pe.Port.RDOContracted = pe.rdoToSend
				pe.Port.PEFlags.Set(port.PEFlagHasExplicitContract)
				if pe.Port.PEFlags.TestAndClear(port.PEFlagIsFromEvaluateCapability) {
					pe.notify(dpm.EventNewPowerLevelAccepted)
				} else {
					pe.notify(dpm.EventSelectCapDone)
				}
				return PESinkTransitionSink
			case pdmsg.CtrlReject, pdmsg.CtrlWait:
				wasRenegotiation := pe.Port.PEFlags.TestAndClear(port.PEFlagIsFromEvaluateCapability)
				if pe.Port.PEFlags.Test(port.PEFlagHasExplicitContract) {
					if wasRenegotiation {
						pe.notify(dpm.EventNewPowerLevelRejected)
					}
					return PESinkReady
				}
				return PESinkWaitForCapabilities
			default:
				return PESinkSendSoftReset
			}
		}

		if pe.Port.Timers.IsExpired(port.TimeoutSenderResponse) {
			return PESinkHardReset
		}
		return nil
	},
}

// PESinkSelectCapability is selectCapabilityState wrapped with the 4.5.2
// interceptors.
var PESinkSelectCapability = withForwardErrors(withCheckRequestProgress(selectCapabilityState))

// PESinkTransitionSink (4.5) waits for PS_RDY from the source once a
// Request has been Accepted, within tPSTransition.
var PESinkTransitionSink = softReset(&pdState{
	Name: "pe-snk-transition-sink",
	Enter: func(pe *PE) *pdState {
		if pe.Port.PEFlags.Test(port.PEFlagInEPRMode) {
			pe.Port.Timers.Start(port.TimeoutPSTransitionEPR)
		} else {
			pe.Port.Timers.Start(port.TimeoutPSTransitionSPR)
		}
		return nil
	},
	Process: func(pe *PE) *pdState {
		if msg, ok := pe.tryReceive(); ok {
			if !msg.IsExt && msg.Msg.Header.IsCtrl() && pdmsg.CtrlType(msg.Msg.Header.MessageType()) == pdmsg.CtrlPSRDY {
				return PESinkReady
			}
			return nil
		}
		if pe.Port.Timers.IsExpired(port.TimeoutPSTransitionSPR) || pe.Port.Timers.IsExpired(port.TimeoutPSTransitionEPR) {
			return PESinkHardReset
		}
		return nil
	},
	Exit: func(pe *PE) {
		pe.Port.Timers.Stop(port.TimeoutPSTransitionSPR)
		pe.Port.Timers.Stop(port.TimeoutPSTransitionEPR)
	},
})

// PESinkGiveSinkCap (4.5) replies to Get_Sink_Cap/EPR_Get_Sink_Cap, then
// returns to Ready.
var PESinkGiveSinkCap = softReset(&pdState{
	Name: "pe-snk-give-sink-cap",
	Enter: func(pe *PE) *pdState {
		pe.sendSinkCapabilities(pe.giveSinkCapExt)
		return PESinkReady
	},
})

// PESinkGiveRevision (4.5) replies to Get_Revision with this stack's
// supported revision range, then returns to Ready.
var PESinkGiveRevision = softReset(&pdState{
	Name: "pe-snk-give-revision",
	Enter: func(pe *PE) *pdState {
		var rmdo pdmsg.RMDO
		rmdo |= pdmsg.RMDO(3) << 28 // Revision 3.x
		rmdo |= pdmsg.RMDO(2) << 24 // Revision x.2
		pe.sendData(pdmsg.DataRevision, uint32(rmdo))
		return PESinkReady
	},
})
