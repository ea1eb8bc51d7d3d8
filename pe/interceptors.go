package pe

import "github.com/tinypd/pdsink/port"

// softReset is the default reaction to a forwarded PRL transfer error:
// any state wrapped this way falls back to Send_Soft_Reset as soon as
// one is pending, before running its own Process. Wrapping a state
// instead of adding the check to every state body keeps that default in
// exactly one place; a state that needs different behavior wraps with
// withForwardErrors instead.
func softReset(base *pdState) *pdState {
	return &pdState{
		Name:  base.Name,
		Enter: base.Enter,
		Process: func(pe *PE) *pdState {
			if pe.drainPRLError() {
				return PESinkSendSoftReset
			}
			if base.Process != nil {
				return base.Process(pe)
			}
			return nil
		},
		Exit: base.Exit,
	}
}

// withForwardErrors implements the ForwardErrors interceptor (4.5.2): on
// entry it arms PEFlagForwardPRLError so a PRL failure surfaces as
// PEFlagProtocolError instead of the generic soft-reset default, and
// clears it again on exit. A state wrapped this way must consume
// PEFlagProtocolError itself, typically via CheckRequestProgress.
func withForwardErrors(base *pdState) *pdState {
	return &pdState{
		Name: base.Name,
		Enter: func(pe *PE) *pdState {
			pe.Port.PEFlags.Set(port.PEFlagForwardPRLError)
			if base.Enter != nil {
				return base.Enter(pe)
			}
			return nil
		},
		Process: func(pe *PE) *pdState {
			if pe.drainPRLError() {
				pe.Port.PEFlags.Set(port.PEFlagProtocolError)
			}
			if base.Process != nil {
				return base.Process(pe)
			}
			return nil
		},
		Exit: func(pe *PE) {
			pe.Port.PEFlags.Clear(port.PEFlagForwardPRLError)
			if base.Exit != nil {
				base.Exit(pe)
			}
		},
	}
}

// withCheckRequestProgress implements the CheckRequestProgress
// interceptor (4.5.2): it turns TX_COMPLETE into a started
// tSenderResponse, and reduces TX_COMPLETE/PROTOCOL_ERROR into the
// pe.requestProgress a Select_Capability/EPR_Keep_Alive style state reads
// to decide whether its request succeeded, was discarded, or failed.
func withCheckRequestProgress(base *pdState) *pdState {
	return &pdState{
		Name: base.Name,
		Enter: func(pe *PE) *pdState {
			pe.Port.PEFlags.Clear(port.PEFlagTransmitRequestSucceeded)
			pe.requestProgress = ProgressPending
			if base.Enter != nil {
				return base.Enter(pe)
			}
			return nil
		},
		Process: func(pe *PE) *pdState {
			pe.updateRequestProgress()
			if base.Process != nil {
				return base.Process(pe)
			}
			return nil
		},
		Exit: func(pe *PE) {
			pe.Port.Timers.Stop(port.TimeoutSenderResponse)
			if base.Exit != nil {
				base.Exit(pe)
			}
		},
	}
}

// updateRequestProgress is CheckRequestProgress's per-tick update: it
// never blocks, just reclassifies whatever PRL reported since the last
// tick. A pending PROTOCOL_ERROR always wins over a stale TX_COMPLETE.
func (pe *PE) updateRequestProgress() {
	if pe.Port.PEFlags.TestAndClear(port.PEFlagProtocolError) {
		if pe.lastPRLError == port.TCHErrorDiscarded || pe.lastPRLError == port.TCHErrorEnquireDiscarded {
			pe.requestProgress = ProgressDiscarded
		} else {
			pe.requestProgress = ProgressFailed
		}
		return
	}
	if pe.Port.PEFlags.TestAndClear(port.PEFlagTxComplete) {
		pe.Port.PEFlags.Set(port.PEFlagTransmitRequestSucceeded)
		pe.Port.Timers.Start(port.TimeoutSenderResponse)
		pe.requestProgress = ProgressFinished
	}
}
