package tc_test

import (
	"testing"

	"github.com/tinypd/pdsink/port"
	"github.com/tinypd/pdsink/tc"
	"github.com/tinypd/pdsink/tcpc"
	"github.com/tinypd/pdsink/tcpctest"
)

// runUntil ticks t up to maxTicks times, advancing now by stepMS after
// each tick, until the TC's state name equals want. A transition's Enter
// hook runs synchronously within the Tick call that triggers it (see
// fsm.Machine.Tick), so checking state right after a tick also observes
// that Enter's side effects (e.g. Port.Attached).
func runUntil(t *tc.TC, now *uint32, stepMS uint32, want string, maxTicks int) bool {
	for i := 0; i < maxTicks; i++ {
		t.Tick()
		*now += stepMS
		if t.StateName() == want {
			return true
		}
	}
	return t.StateName() == want
}

func TestAttachFlow(t *testing.T) {
	var now uint32
	p := port.New(func() uint32 { return now })
	d := tcpctest.NewFakeDriver()
	tcfsm := tc.New(p, d)

	if tcfsm.StateName() != "detached" {
		t.Fatalf("expected to start in detached, got %s", tcfsm.StateName())
	}

	d.SetVBUSOK(true)
	if !runUntil(tcfsm, &now, 20, "detecting", 20) {
		t.Fatalf("expected to reach detecting after VBUS debounce, got %s", tcfsm.StateName())
	}

	d.SetCC(tcpc.CCLevelRp3A0, tcpc.CCLevelNone)
	if !runUntil(tcfsm, &now, 20, "sink-attached", 20) {
		t.Fatalf("expected to reach sink-attached after two consistent CC scans, got %s", tcfsm.StateName())
	}

	if !p.Attached.Load() {
		t.Error("port.Attached should be set once sink-attached")
	}

	d.SetVBUSOK(false)
	if !runUntil(tcfsm, &now, 1, "detached", 5) {
		t.Fatalf("expected to return to detached once VBUS drops, got %s", tcfsm.StateName())
	}
	if p.Attached.Load() {
		t.Error("port.Attached should clear on detach")
	}
}

func TestDetachedStaysPutWithoutVBUS(t *testing.T) {
	var now uint32
	p := port.New(func() uint32 { return now })
	d := tcpctest.NewFakeDriver()
	tcfsm := tc.New(p, d)

	for i := 0; i < 10; i++ {
		tcfsm.Tick()
		now += 50
	}
	if tcfsm.StateName() != "detached" {
		t.Fatalf("expected to remain detached with VBUS absent, got %s", tcfsm.StateName())
	}
}
