// Package stack wires Port, TC, PRL and PE to one tcpc.Driver and runs
// the single-threaded task/event loop (4.9) that drives all three to
// quiescence every pass. It plays the role the teacher's
// tcpe.PolicyEngine.Run loop plays for its single FSM, generalized to
// the three cooperating machines (TC, PRL, PE) this stack runs and to a
// driver that may live on its own goroutine instead of being polled
// inline.
package stack

import (
	"context"
	"time"

	"github.com/tinypd/pdsink/dpm"
	"github.com/tinypd/pdsink/leapsync"
	"github.com/tinypd/pdsink/pdmsg"
	"github.com/tinypd/pdsink/pe"
	"github.com/tinypd/pdsink/port"
	"github.com/tinypd/pdsink/prl"
	"github.com/tinypd/pdsink/ringqueue"
	"github.com/tinypd/pdsink/tc"
	"github.com/tinypd/pdsink/tcpc"
)

// loopIdleSleep bounds how long a pass waits with nothing else pending
// when no timer is active, mirroring tcpe.PolicyEngine.Run's
// loopSleepDuration.
const loopIdleSleep = 3 * time.Millisecond

// eventQueueCapacity is the depth of the outbound DPM event queue; must
// be a power of two (ringqueue.New).
const eventQueueCapacity = 16

// PdStack is one port's task/event loop: Port plus the TC, PRL and PE
// state machines it drives to quiescence every pass. Port, TC, PRL and
// PE are owned by whichever goroutine calls Run; every other exported
// method is safe to call from any goroutine, the way the spec's
// EVENT_WAKEUP and LeapSync boundary crossings are.
type PdStack struct {
	Port *port.Port
	TC   *tc.TC
	PRL  *prl.PRL
	PE   *pe.PE

	driver  tcpc.Driver
	manager *dpm.Manager

	wake chan struct{}

	events     *ringqueue.Queue[dpm.Event]
	policySync leapsync.LeapSync[dpm.Policy]
}

// New builds a PdStack bound to d, reporting through manager's Policy
// and sink capability list. now supplies the millisecond clock the
// timer pack advances against (port.NewTimers); manager.Policy may be
// nil and set later with SetPolicy.
func New(d tcpc.Driver, manager *dpm.Manager, now func() uint32) *PdStack {
	p := port.New(now)
	s := &PdStack{
		Port:    p,
		driver:  d,
		manager: manager,
		wake:    make(chan struct{}, 1),
		events:  ringqueue.New[dpm.Event](eventQueueCapacity),
	}
	s.TC = tc.New(p, d)
	s.PRL = prl.New(p, d)
	s.PE = pe.New(p, s.PRL, s)

	notify := port.NotifierFunc(s.Wake)
	p.NotifyTask = notify
	p.NotifyTC = notify
	p.NotifyPE = notify
	p.NotifyPRL = notify
	p.NotifyDPM = notify
	return s
}

// Notify implements dpm.DPM: forward to manager and publish a copy any
// goroutine can drain with PollEvent, without blocking the task loop -
// the same single-producer boundary ringqueue documents.
func (s *PdStack) Notify(e dpm.Event) {
	s.manager.Notify(e)
	s.events.Push(e)
}

// SelectCapability implements dpm.DPM by delegating to manager.
func (s *PdStack) SelectCapability(caps []pdmsg.PDO) (pdmsg.RDO, pdmsg.PDO) {
	return s.manager.SelectCapability(caps)
}

// SinkCapabilities implements dpm.DPM by delegating to manager.
func (s *PdStack) SinkCapabilities() []pdmsg.PDO { return s.manager.SinkCapabilities() }

// EPRWatts implements dpm.DPM by delegating to manager.
func (s *PdStack) EPRWatts() uint32 { return s.manager.EPRWatts() }

// PollEvent drains one outbound DPM event published by Notify, for a
// goroutine other than the one running Run - a UI or logging loop that
// wants its own copy of the event stream rather than blocking inside
// manager.OnEvent. Reports false if nothing is queued. Safe to call
// only from a single consumer goroutine (ringqueue.Queue's contract).
func (s *PdStack) PollEvent() (dpm.Event, bool) { return s.events.Pop() }

// SetPolicy hands the task loop a new capability-selection policy to
// start using on its next pass, and asks PE to re-evaluate the current
// contract against it. Safe to call from any goroutine: the handoff is
// a single LeapSync slot (4.2), the same request/acknowledge rendezvous
// the driver uses to cross the task/ISR boundary, generalized here to
// cross the application/task-loop boundary instead.
func (s *PdStack) SetPolicy(p dpm.Policy) {
	s.policySync.Enquire(p)
	s.Wake()
}

// applyPolicy claims the most recently enquired policy, if any, and
// asks the task loop to run a fresh Select_Capability against it. Only
// the task loop goroutine may call this.
func (s *PdStack) applyPolicy() {
	if !s.policySync.IsEnquired() {
		return
	}
	s.manager.Policy = s.policySync.MarkStarted()
	s.policySync.MarkFinished()
	s.Port.DPMRequests.Set(port.DPMRequestNewPowerLevel)
}

// RequestEPRModeEntry asks PE to attempt EPR mode entry on its next
// Ready pass. Safe to call from any goroutine: DPMRequestFlags is an
// atomic bitset.
func (s *PdStack) RequestEPRModeEntry() {
	s.Port.DPMRequests.Set(port.DPMRequestEPRModeEntry)
	s.Wake()
}

// RequestSourceInfo asks PE to re-fetch Source_Capabilities.
func (s *PdStack) RequestSourceInfo() {
	s.Port.DPMRequests.Set(port.DPMRequestGetSourceInfo)
	s.Wake()
}

// RequestRevision asks PE to re-fetch the source's supported revision.
func (s *PdStack) RequestRevision() {
	s.Port.DPMRequests.Set(port.DPMRequestGetRevision)
	s.Wake()
}

// Wake is Port's Notifier and the external EVENT_WAKEUP signal (4.9): a
// non-blocking send that coalesces any number of wakeups arriving
// before the loop gets back around to waiting, so a wakeup issued
// during a pass - by a sub-FSM, the DPM, or a driver goroutine - is
// deferred to the next iteration rather than re-entering this one.
// Safe to call from any goroutine, including the task loop itself.
func (s *PdStack) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run brings the driver up and runs the task loop until ctx is done,
// then returns nil; it returns the driver's Setup error if Setup fails.
// Only one call to Run may be in progress at a time.
func (s *PdStack) Run(ctx context.Context) error {
	if err := s.driver.Setup(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		s.applyPolicy()
		s.Port.Timers.Cleanup()
		s.TC.Tick()
		s.PRL.Tick()
		s.PE.Tick()

		select {
		case <-s.wake:
			continue
		default:
		}

		d := s.sleepDuration()
		if d <= 0 {
			continue
		}
		t := time.NewTimer(d)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-s.wake:
			t.Stop()
		case <-t.C:
		}
	}
}

// sleepDuration returns how long Run may safely wait before the next
// timer needs servicing: 0 if one already expired, the precise time to
// the next deadline if one is active, or loopIdleSleep if none is -
// the same default the teacher's loop falls back to between events.
func (s *PdStack) sleepDuration() time.Duration {
	ms := s.Port.Timers.NextExpiration()
	switch {
	case ms < 0:
		return loopIdleSleep
	case ms == 0:
		return 0
	default:
		return time.Duration(ms) * time.Millisecond
	}
}
