package pe

import (
	"github.com/tinypd/pdsink/dpm"
	"github.com/tinypd/pdsink/pdmsg"
	"github.com/tinypd/pdsink/port"
)

// PESinkHardReset (4.5) asks the protocol layer to drive a hard reset on
// the wire and tracks the consecutive-attempt counter: too many in a row
// means the source is not recovering, and PE gives up rather than
// retrying forever.
var PESinkHardReset = &pdState{
	Name: "pe-snk-hard-reset",
	Enter: func(pe *PE) *pdState {
		pe.Port.HardResetCounter++
		pe.PRL.RequestHardReset()
		if pe.Port.HardResetCounter > pe.Port.MaxHardResets() {
			return PESinkSrcDisabled
		}
		return PESinkTransitionToDefault
	},
}

// PESinkTransitionToDefault (4.5) waits for the DPM to finish reapplying
// default power/data roles (e.g. dropping VBUS to vSafe0V and back) before
// telling the protocol layer PE's side of the hard reset is done and
// starting over from Startup.
var PESinkTransitionToDefault = &pdState{
	Name: "pe-snk-transition-to-default",
	Enter: func(pe *PE) *pdState {
		pe.Port.PEFlags.Clear(port.PEFlagHasExplicitContract)
		pe.Port.PEFlags.Clear(port.PEFlagInEPRMode)
		pe.Port.WaitDPMTransitToDefault(true)
		pe.notify(dpm.EventTransitToDefault)
		return nil
	},
	Process: func(pe *PE) *pdState {
		if pe.Port.IsWaitingDPMTransitToDefault() {
			return nil
		}
		pe.PRL.SignalPEHardResetComplete()
		return PESinkStartup
	},
}

// PESinkSoftReset (4.5) handles a Soft Reset received from the source: by
// the time PEFlagSoftResetReceived is set, the protocol layer has already
// reset Tx/RCH/TCH, so PE only needs to Accept it and start renegotiation
// over from Wait_for_Capabilities.
var PESinkSoftReset = &pdState{
	Name: "pe-snk-soft-reset",
	Enter: func(pe *PE) *pdState {
		pe.Port.PEFlags.Clear(port.PEFlagHasExplicitContract)
		pe.Port.PEFlags.Clear(port.PEFlagInEPRMode)
		pe.Port.RDOContracted = 0
		pe.Port.SourceCapsCount = 0
		pe.sendCtrl(pdmsg.CtrlAccept)
		return PESinkWaitForCapabilities
	},
}

// sendSoftResetState is Send_Soft_Reset's own logic, wrapped with
// ForwardErrors+CheckRequestProgress below: PE is already trying to
// recover here, so a second failure escalates straight to a hard reset
// rather than looping back on itself.
var sendSoftResetState = &pdState{
	Name: "pe-snk-send-soft-reset",
	Enter: func(pe *PE) *pdState {
		pe.sendCtrl(pdmsg.CtrlSoftReset)
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
			if !msg.IsExt && msg.Msg.Header.IsCtrl() &&
				pdmsg.CtrlType(msg.Msg.Header.MessageType()) == pdmsg.CtrlAccept {
				return PESinkWaitForCapabilities
			}
			return PESinkHardReset
		}

		if pe.Port.Timers.IsExpired(port.TimeoutSenderResponse) {
			return PESinkHardReset
		}
		return nil
	},
}

// PESinkSendSoftReset is sendSoftResetState wrapped with the 4.5.2
// interceptors.
var PESinkSendSoftReset = withForwardErrors(withCheckRequestProgress(sendSoftResetState))

// PESinkSendNotSupported (4.5) is Ready's fallback for a message it has no
// other reaction to: reply Not_Supported and go straight back.
var PESinkSendNotSupported = softReset(&pdState{
	Name: "pe-snk-send-not-supported",
	Enter: func(pe *PE) *pdState {
		pe.sendCtrl(pdmsg.CtrlNotSupported)
		return PESinkReady
	},
})

// PESinkSrcDisabled (4.5) is reached after too many consecutive hard
// resets failed to recover a contract. There is nothing left for PE to
// retry on its own; it reports the failure and waits for a fresh attach.
var PESinkSrcDisabled = &pdState{
	Name: "pe-snk-src-disabled",
	Enter: func(pe *PE) *pdState {
		pe.notify(dpm.EventSrcDisabled)
		return nil
	},
	Process: func(pe *PE) *pdState {
		if !pe.Port.Attached.Load() {
			return PENotAttached
		}
		return nil
	},
}
