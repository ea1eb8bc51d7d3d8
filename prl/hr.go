package prl

import (
	"github.com/tinypd/pdsink/fsm"
	"github.com/tinypd/pdsink/pdmsg"
	"github.com/tinypd/pdsink/port"
)

// HR is the protocol layer's hard reset sub-machine. It tears down Rx, Tx,
// RCH and TCH, drives the wire-level hard reset through the driver, and
// hands control back to PE once the driver confirms completion.
type HR struct {
	prl     *PRL
	machine *fsm.Machine[HR]
}

func newHR(p *PRL) *HR {
	h := &HR{prl: p}
	h.machine = fsm.New(h, HRIdle)
	return h
}

func (h *HR) tick() { h.machine.Tick() }

// requestFromPartner records that a hard reset control message arrived
// from the source and wakes the machine.
func (h *HR) requestFromPartner() {
	h.prl.Port.PRLHRFlags.Set(port.PRLHRFlagHardResetFromPartner)
}

// requestFromPE records that PE asked the protocol layer to send a hard
// reset and wakes the machine.
func (h *HR) requestFromPE() {
	h.prl.Port.PRLHRFlags.Set(port.PRLHRFlagHardResetFromPE)
}

// isIdle reports whether HR has nothing in progress, used by PRL.Tick to
// decide whether the normal sub-FSM tick order runs at all.
func (h *HR) isIdle() bool {
	return h.machine.StateName() == HRIdle.Name
}

// HRIdle waits for either direction of hard reset to be requested.
var HRIdle = &fsm.State[HR]{
	Name: "hr-idle",
	Process: func(h *HR) *fsm.State[HR] {
		if h.prl.Port.PRLHRFlags.Test(port.PRLHRFlagHardResetFromPartner) ||
			h.prl.Port.PRLHRFlags.Test(port.PRLHRFlagHardResetFromPE) {
			return HRResetLayer
		}
		return nil
	},
}

// HRResetLayer tears every other sub-FSM back to its initial state before
// touching the wire.
var HRResetLayer = &fsm.State[HR]{
	Name: "hr-reset-layer",
	Enter: func(h *HR) *fsm.State[HR] {
		h.prl.resetForSoftReset()
		h.prl.Port.RxMsgIDStored = -1
		h.prl.Port.Revision = pdmsg.Revision30
		h.prl.Driver.ReqRxEnable(false)
		h.prl.Driver.ReqRxEnable(true)
		if h.prl.Port.PRLHRFlags.Test(port.PRLHRFlagHardResetFromPartner) {
			return HRIndicateHardReset
		}
		return HRRequestHardReset
	},
}

// HRIndicateHardReset tells PE a hard reset arrived from the source.
var HRIndicateHardReset = &fsm.State[HR]{
	Name: "hr-indicate-hard-reset",
	Enter: func(h *HR) *fsm.State[HR] {
		if h.prl.Port.NotifyPE != nil {
			h.prl.Port.NotifyPE.Notify()
		}
		return HRWaitForPEHardResetComplete
	},
}

// HRRequestHardReset asks the driver to signal a hard reset on the wire,
// on PE's behalf.
var HRRequestHardReset = &fsm.State[HR]{
	Name: "hr-request-hard-reset",
	Enter: func(h *HR) *fsm.State[HR] {
		h.prl.Driver.ReqHardResetSend()
		return HRWaitForPHYHardResetComplete
	},
}

// HRWaitForPHYHardResetComplete waits for the driver to confirm the wire
// signaling finished.
var HRWaitForPHYHardResetComplete = &fsm.State[HR]{
	Name: "hr-wait-for-phy-hard-reset-complete",
	Enter: func(h *HR) *fsm.State[HR] {
		h.prl.Port.Timers.Start(port.TimeoutHardResetComplete)
		return nil
	},
	Process: func(h *HR) *fsm.State[HR] {
		if h.prl.Driver.IsHardResetSendDone() {
			return HRPHYHardResetRequested
		}
		if h.prl.Port.Timers.IsExpired(port.TimeoutHardResetComplete) {
			return HRPHYHardResetRequested
		}
		return nil
	},
	Exit: func(h *HR) {
		h.prl.Port.Timers.Stop(port.TimeoutHardResetComplete)
	},
}

// HRPHYHardResetRequested tells PE the wire-level hard reset has gone out.
var HRPHYHardResetRequested = &fsm.State[HR]{
	Name: "hr-phy-hard-reset-requested",
	Enter: func(h *HR) *fsm.State[HR] {
		if h.prl.Port.NotifyPE != nil {
			h.prl.Port.NotifyPE.Notify()
		}
		return HRWaitForPEHardResetComplete
	},
}

// HRWaitForPEHardResetComplete waits for PE to finish its own hard reset
// recovery (source transition to default, re-establishing a contract)
// before the protocol layer resumes normal operation.
var HRWaitForPEHardResetComplete = &fsm.State[HR]{
	Name: "hr-wait-for-pe-hard-reset-complete",
	Process: func(h *HR) *fsm.State[HR] {
		if !h.prl.Port.PRLHRFlags.TestAndClear(port.PRLHRFlagPEHardResetComplete) {
			return nil
		}
		return HRPEHardResetComplete
	},
}

// HRPEHardResetComplete clears both hard reset request flags and returns
// the protocol layer to normal operation.
var HRPEHardResetComplete = &fsm.State[HR]{
	Name: "hr-pe-hard-reset-complete",
	Enter: func(h *HR) *fsm.State[HR] {
		h.prl.Port.PRLHRFlags.Clear(port.PRLHRFlagHardResetFromPartner)
		h.prl.Port.PRLHRFlags.Clear(port.PRLHRFlagHardResetFromPE)
		return hrIdle
	},
}

// hrIdle is HRIdle, assigned in init: HRPEHardResetComplete returns to
// HRIdle, which would otherwise make the package-level state variables
// an initialization cycle.
var hrIdle *fsm.State[HR]

func init() { hrIdle = HRIdle }
