package pe

import (
	"encoding/binary"

	"github.com/tinypd/pdsink/dpm"
	"github.com/tinypd/pdsink/pdmsg"
	"github.com/tinypd/pdsink/port"
)

// PESinkReady (4.5) is the steady state once a contract is in place: it
// reports SnkReady (and, the first time, HandshakeDone) to the DPM,
// auto-enters EPR mode if the source offers it and nothing disabled
// that, then dispatches every inbound message per the 4.5.1 table and
// every pending DPM request.
var PESinkReady = softReset(&pdState{
	Name: "pe-snk-ready",
	Enter: func(pe *PE) *pdState {
		if !pe.reportedHandshake {
			pe.reportedHandshake = true
			pe.notify(dpm.EventHandshakeDone)
		}
		pe.notify(dpm.EventSnkReady)

		if !pe.Port.PEFlags.Test(port.PEFlagInEPRMode) &&
			!pe.Port.PEFlags.Test(port.PEFlagEPRAutoEnterDisabled) &&
			pe.Port.SourceCapsCount > 0 &&
			pe.Port.SourceCaps[0].Type() == pdmsg.PDOTypeFixed &&
			pdmsg.FixedPDO(pe.Port.SourceCaps[0]).EPRCapable() {
			return PESinkSendEPRModeEntry
		}
		return nil
	},
	Process: func(pe *PE) *pdState {
		if pe.Port.PEFlags.Test(port.PEFlagInEPRMode) && pe.Port.Timers.IsExpired(port.TimeoutSinkEPRKeepAlive) {
			return PESinkEPRKeepAlive
		}
		if next := pe.readyDispatchDPMRequest(); next != nil {
			return next
		}
		return pe.readyDispatchMessage()
	},
})

// readyDispatchDPMRequest services a pending DPM request, if any.
// DPMRequestGetPPSStatus has no effect: the wire message it would send
// (Get_PPS_Status) is out of this stack's scope (package pdmsg, 6.3).
func (pe *PE) readyDispatchDPMRequest() *pdState {
	if pe.Port.DPMRequests.TestAndClear(port.DPMRequestNewPowerLevel) {
		pe.Port.PEFlags.Set(port.PEFlagIsFromEvaluateCapability)
		pe.pendingCaps = append([]pdmsg.PDO(nil), pe.Port.SourceCaps[:pe.Port.SourceCapsCount]...)
		pe.capsRevision = pe.Port.Revision
		return PESinkEvaluateCapability
	}
	if pe.Port.DPMRequests.TestAndClear(port.DPMRequestEPRModeEntry) {
		if !pe.Port.PEFlags.Test(port.PEFlagInEPRMode) {
			return PESinkSendEPRModeEntry
		}
	}
	if pe.Port.DPMRequests.TestAndClear(port.DPMRequestGetSourceInfo) {
		pe.sendCtrl(pdmsg.CtrlGetSourceCap)
	}
	if pe.Port.DPMRequests.TestAndClear(port.DPMRequestGetRevision) {
		pe.sendCtrl(pdmsg.CtrlGetRevision)
	}
	pe.Port.DPMRequests.TestAndClear(port.DPMRequestGetPPSStatus)
	return nil
}

// readyDispatchMessage is the 4.5.1 Ready dispatch table.
func (pe *PE) readyDispatchMessage() *pdState {
	msg, ok := pe.tryReceive()
	if !ok {
		return nil
	}

	if msg.IsExt {
		return pe.readyDispatchExtMessage(msg)
	}
	if msg.Msg.Header.IsData() {
		return pe.readyDispatchDataMessage(msg)
	}
	return pe.readyDispatchCtrlMessage(msg)
}

func (pe *PE) readyDispatchExtMessage(msg port.Message) *pdState {
	switch pdmsg.ExtType(msg.Ext.Header.MessageType()) {
	case pdmsg.ExtEPRSourceCapabilities:
		caps, _ := extractCaps(msg)
		pe.pendingCaps = caps
		pe.capsRevision = msg.Ext.Header.SpecRevision()
		return PESinkEvaluateCapability
	case pdmsg.ExtExtendedControl:
		ecdb := pdmsg.ECDB(binary.LittleEndian.Uint16(msg.Ext.Payload[:2]))
		if ecdb.ControlType() == pdmsg.ExtCtrlEPRGetSinkCap {
			pe.giveSinkCapExt = true
			return PESinkGiveSinkCap
		}
		return pe.notSupportedOrSoftReset()
	default:
		return pe.notSupportedOrSoftReset()
	}
}

func (pe *PE) readyDispatchDataMessage(msg port.Message) *pdState {
	switch pdmsg.DataType(msg.Msg.Header.MessageType()) {
	case pdmsg.DataSourceCapabilities:
		if pe.Port.PEFlags.Test(port.PEFlagInEPRMode) {
			// An SPR-only Source_Capabilities while in EPR mode means the
			// source dropped out of EPR unilaterally; recover with a hard
			// reset rather than guessing at a graceful exit.
			return PESinkHardReset
		}
		caps, _ := extractCaps(msg)
		pe.pendingCaps = caps
		pe.capsRevision = msg.Msg.Header.SpecRevision()
		return PESinkEvaluateCapability
	case pdmsg.DataBIST:
		pe.bistMode = pdmsg.BISTDO(msg.Msg.Data[0]).Mode()
		return PESinkBISTActivate
	case pdmsg.DataAlert:
		pe.alertData = msg.Msg.Data[0]
		return PESinkSourceAlertReceived
	case pdmsg.DataEPRMode:
		if pdmsg.EPRMDO(msg.Msg.Data[0]).Action() == pdmsg.EPRModeExit {
			return PESinkEPRModeExitReceived
		}
		return pe.notSupportedOrSoftReset()
	case pdmsg.DataVendorDefined:
		if pe.Port.Revision >= pdmsg.Revision30 {
			pe.sendCtrl(pdmsg.CtrlNotSupported)
		}
		return nil
	default:
		return pe.notSupportedOrSoftReset()
	}
}

func (pe *PE) readyDispatchCtrlMessage(msg port.Message) *pdState {
	switch pdmsg.CtrlType(msg.Msg.Header.MessageType()) {
	case pdmsg.CtrlGoodCRC, pdmsg.CtrlPing, pdmsg.CtrlNotSupported:
		return nil
	case pdmsg.CtrlGetSinkCap:
		pe.giveSinkCapExt = false
		return PESinkGiveSinkCap
	case pdmsg.CtrlGetRevision:
		return PESinkGiveRevision
	default:
		return pe.notSupportedOrSoftReset()
	}
}

// notSupportedOrSoftReset is the fallback for anything Ready can't make
// sense of: Not_Supported by default, or a soft reset when the DPM asked
// for the stricter reaction.
func (pe *PE) notSupportedOrSoftReset() *pdState {
	if pe.Port.PEFlags.Test(port.PEFlagDoSoftResetOnUnsupported) {
		return PESinkSendSoftReset
	}
	return PESinkSendNotSupported
}
