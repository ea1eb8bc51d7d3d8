// Package tc implements the Type-C attach detector: it watches VBUS and
// the two CC pins long enough to debounce a connection, picks which CC
// pin carries the control channel, and tells the rest of the stack when
// a sink is attached or detached. It does not implement source, DRP, or
// VCONN swap: this is a sink-only port.
package tc

import (
	"github.com/tinypd/pdsink/fsm"
	"github.com/tinypd/pdsink/port"
	"github.com/tinypd/pdsink/tcpc"
)

// TC is the Type-C attach detector for one port.
type TC struct {
	Port   *port.Port
	Driver tcpc.Driver

	prevCC1 tcpc.CCLevel
	prevCC2 tcpc.CCLevel

	machine *fsm.Machine[TC]
}

// New returns a TC ready to Tick, starting in Detached.
func New(p *port.Port, d tcpc.Driver) *TC {
	t := &TC{Port: p, Driver: d}
	t.machine = fsm.New(t, Detached)
	return t
}

// StateName returns the name of the current state, for logging.
func (t *TC) StateName() string { return t.machine.StateName() }

// Tick runs one step of the FSM.
func (t *TC) Tick() { t.machine.Tick() }

// Detached is the initial state: no VBUS, polarity unselected. It
// debounces VBUS appearing before moving on to CC detection.
var Detached = &fsm.State[TC]{
	Name: "detached",
	Enter: func(t *TC) *fsm.State[TC] {
		t.Port.Attached.Store(false)
		t.Port.Timers.Stop(port.TimeoutTCVBUSDebounce)
		t.Driver.ReqSetPolarity(tcpc.PolarityNone)
		return nil
	},
	Process: func(t *TC) *fsm.State[TC] {
		if !t.Driver.IsSetPolarityDone() {
			return nil
		}
		if !t.Driver.IsVBUSOK() {
			t.Port.Timers.Stop(port.TimeoutTCVBUSDebounce)
			return nil
		}
		if t.Port.Timers.IsDisabled(port.TimeoutTCVBUSDebounce) {
			t.Port.Timers.Start(port.TimeoutTCVBUSDebounce)
			return nil
		}
		if t.Port.Timers.IsExpired(port.TimeoutTCVBUSDebounce) {
			return detecting
		}
		return nil
	},
	Exit: func(t *TC) {
		t.Port.Timers.Stop(port.TimeoutTCVBUSDebounce)
	},
}

// detecting is Detecting, assigned in init: the states reached from
// Detecting lead back to Detached, which would otherwise make the
// package-level state variables an initialization cycle.
var detecting *fsm.State[TC]

func init() { detecting = Detecting }

// Detecting polls both CC pins until two consecutive scans agree on an
// asymmetric level, which both confirms a real cable (not just noise)
// and picks the higher of the two as the active pin.
var Detecting = &fsm.State[TC]{
	Name: "detecting",
	Enter: func(t *TC) *fsm.State[TC] {
		t.prevCC1 = tcpc.CCLevelNone
		t.prevCC2 = tcpc.CCLevelNone
		t.Driver.ReqScanCC()
		t.Port.Timers.Stop(port.TimeoutTCCCPoll)
		return nil
	},
	Process: func(t *TC) *fsm.State[TC] {
		if !t.Port.Timers.IsDisabled(port.TimeoutTCCCPoll) {
			if !t.Port.Timers.IsExpired(port.TimeoutTCCCPoll) {
				return nil
			}
			t.Port.Timers.Stop(port.TimeoutTCCCPoll)
			t.Driver.ReqScanCC()
		}

		if !t.Driver.IsScanCCDone() {
			return nil
		}

		if !t.Driver.IsVBUSOK() {
			return Detached
		}

		cc1 := t.Driver.GetCC(tcpc.CC1)
		cc2 := t.Driver.GetCC(tcpc.CC2)

		if cc1 != cc2 && cc1 == t.prevCC1 && cc2 == t.prevCC2 {
			if cc1 > cc2 {
				t.Driver.ReqSetPolarity(tcpc.PolarityCC1)
			} else {
				t.Driver.ReqSetPolarity(tcpc.PolarityCC2)
			}
			return SinkAttached
		}

		t.prevCC1 = cc1
		t.prevCC2 = cc2
		t.Port.Timers.Start(port.TimeoutTCCCPoll)
		return nil
	},
	Exit: func(t *TC) {
		t.Port.Timers.Stop(port.TimeoutTCCCPoll)
	},
}

// SinkAttached is held for as long as VBUS stays present on the selected
// CC pin. Leaving this state is the only detach signal the rest of the
// stack gets.
var SinkAttached = &fsm.State[TC]{
	Name: "sink-attached",
	Enter: func(t *TC) *fsm.State[TC] {
		t.Port.Attached.Store(true)
		if t.Port.NotifyPE != nil {
			t.Port.NotifyPE.Notify()
		}
		return nil
	},
	Process: func(t *TC) *fsm.State[TC] {
		if !t.Port.Attached.Load() && t.Driver.IsSetPolarityDone() {
			t.Port.Attached.Store(true)
		}
		// A stricter implementation would check Safe0V directly; VBUS is
		// close enough and matches what the driver contract exposes.
		if !t.Driver.IsVBUSOK() {
			return Detached
		}
		return nil
	},
}
