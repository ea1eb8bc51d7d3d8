package pe

import (
	"encoding/binary"

	"github.com/tinypd/pdsink/dpm"
	"github.com/tinypd/pdsink/pdmsg"
	"github.com/tinypd/pdsink/port"
)

// sendEPRModeEntryState is Send_EPR_Mode_Entry's own logic, wrapped below
// with ForwardErrors+CheckRequestProgress so a failed or discarded send
// is handled here rather than by the soft-reset default: either one
// reports EventEPREntryFailed and returns to Ready.
var sendEPRModeEntryState = &pdState{
	Name: "pe-snk-send-epr-mode-entry",
	Enter: func(pe *PE) *pdState {
		pe.eprEnterWatts = pe.DPM.EPRWatts()
		var mdo pdmsg.EPRMDO
		mdo.SetAction(pdmsg.EPRModeEnter)
		mdo.SetData(pe.eprEnterWatts)
		pe.sendData(pdmsg.DataEPRMode, uint32(mdo))
		return nil
	},
	Process: func(pe *PE) *pdState {
		switch pe.requestProgress {
		case ProgressFailed, ProgressDiscarded:
			pe.notify(dpm.EventEPREntryFailed)
			return PESinkReady
		case ProgressPending:
			return nil
		}
		return PESinkEPRModeEntryWaitForResponse
	},
}

// PESinkSendEPRModeEntry is sendEPRModeEntryState wrapped with the 4.5.2
// interceptors.
var PESinkSendEPRModeEntry = withForwardErrors(withCheckRequestProgress(sendEPRModeEntryState))

// PESinkEPRModeEntryWaitForResponse (4.5) waits out tEnterEPR for the
// source's EPR_Mode response: Enter_Acknowledged restarts tEnterEPR and
// keeps waiting here for Enter_Succeeded, which moves on to
// Wait_for_Capabilities for the EPR_Source_Capabilities that follows.
var PESinkEPRModeEntryWaitForResponse = softReset(&pdState{
	Name: "pe-snk-epr-mode-entry-wait-for-response",
	Enter: func(pe *PE) *pdState {
		pe.Port.Timers.Start(port.TimeoutEnterEPR)
		return nil
	},
	Process: func(pe *PE) *pdState {
		if msg, ok := pe.tryReceive(); ok {
			if msg.IsExt || !msg.Msg.Header.IsData() || pdmsg.DataType(msg.Msg.Header.MessageType()) != pdmsg.DataEPRMode {
				return nil
			}
			switch pdmsg.EPRMDO(msg.Msg.Data[0]).Action() {
			case pdmsg.EPRModeEnterAcknowledged:
				pe.Port.Timers.Start(port.TimeoutEnterEPR)
				return nil
			case pdmsg.EPRModeEnterSucceeded:
				pe.Port.PEFlags.Set(port.PEFlagInEPRMode)
				pe.Port.Timers.Start(port.TimeoutSinkEPRKeepAlive)
				return PESinkWaitForCapabilities
			default:
				pe.notifyData(dpm.EventEPREntryFailed, pdmsg.EPRMDO(msg.Msg.Data[0]).Data())
				return PESinkReady
			}
		}
		if pe.Port.Timers.IsExpired(port.TimeoutEnterEPR) {
			pe.notify(dpm.EventEPREntryFailed)
			return PESinkReady
		}
		return nil
	},
	Exit: func(pe *PE) { pe.Port.Timers.Stop(port.TimeoutEnterEPR) },
})

// eprKeepAliveState is EPR_Keep_Alive's own logic, wrapped below with
// ForwardErrors+CheckRequestProgress for the same reason every other
// send-and-wait state is.
var eprKeepAliveState = &pdState{
	Name: "pe-snk-epr-keep-alive",
	Enter: func(pe *PE) *pdState {
		pe.sendExtControl(pdmsg.ExtCtrlEPRKeepAlive)
		return nil
	},
	Process: func(pe *PE) *pdState {
		switch pe.requestProgress {
		case ProgressFailed, ProgressDiscarded:
			return PESinkHardReset
		case ProgressPending:
			return nil
		}

		if msg, ok := pe.tryReceive(); ok {
			if msg.IsExt && pdmsg.ExtType(msg.Ext.Header.MessageType()) == pdmsg.ExtExtendedControl {
				ecdb := pdmsg.ECDB(binary.LittleEndian.Uint16(msg.Ext.Payload[:2]))
				if ecdb.ControlType() == pdmsg.ExtCtrlEPRKeepAliveAck {
					pe.Port.Timers.Start(port.TimeoutSinkEPRKeepAlive)
					return PESinkReady
				}
			}
			return nil
		}

		if pe.Port.Timers.IsExpired(port.TimeoutSenderResponse) {
			return PESinkHardReset
		}
		return nil
	},
}

// PESinkEPRKeepAlive is eprKeepAliveState wrapped with the 4.5.2
// interceptors.
var PESinkEPRKeepAlive = withForwardErrors(withCheckRequestProgress(eprKeepAliveState))

// PESinkEPRModeExitReceived (4.5) handles an EPR_Mode Exit from the
// source: EPR mode drops immediately, and the sink has to renegotiate a
// fresh SPR contract since the source's prior SPR offer is no longer
// necessarily valid.
var PESinkEPRModeExitReceived = softReset(&pdState{
	Name: "pe-snk-epr-mode-exit-received",
	Enter: func(pe *PE) *pdState {
		pe.Port.Timers.Stop(port.TimeoutSinkEPRKeepAlive)
		pe.Port.PEFlags.Clear(port.PEFlagInEPRMode)
		pe.Port.PEFlags.Clear(port.PEFlagHasExplicitContract)
		pe.Port.RDOContracted = 0
		pe.Port.SourceCapsCount = 0
		return PESinkWaitForCapabilities
	},
})
