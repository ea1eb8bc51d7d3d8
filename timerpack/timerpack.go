// Package timerpack implements a fixed set of virtual one-shot timers
// driven by an externally supplied clock, the way the rest of this stack
// expects: no goroutines, no real sleeps, just a millisecond counter that
// the caller advances and a set of named deadlines compared against it.
package timerpack

import "sync/atomic"

// NoExpire is returned by NextExpiration when no timer is active.
const NoExpire int32 = -1

// Pack holds count independent one-shot timers identified by a small
// integer id (0..count-1). A timer is in exactly one of three states:
// disabled (never started, or explicitly stopped), active (started, not
// yet past its deadline), or expired (was active and its deadline has
// passed; stays expired until Start or Stop touches it again).
type Pack struct {
	now      uint32
	expireAt []uint32
	active   []bool
	disabled []bool

	// Changed flags whenever Start/Stop/expiry mutates timer state, for a
	// poller that wants to know whether it's worth recomputing a sleep
	// duration. Safe to read and clear from a different goroutine than
	// the one driving SetTime.
	Changed atomic.Bool
}

// New returns a Pack sized for count timers, all initially disabled.
func New(count int) *Pack {
	p := &Pack{
		expireAt: make([]uint32, count),
		active:   make([]bool, count),
		disabled: make([]bool, count),
	}
	for i := range p.disabled {
		p.disabled[i] = true
	}
	return p
}

// SetTime advances the pack's notion of the current time, in whatever
// unit the caller's timeouts are expressed in (this stack uses
// milliseconds throughout).
func (p *Pack) SetTime(now uint32) { p.now = now }

// Start arms timer id to expire period units from the current time.
func (p *Pack) Start(id int, period uint32) {
	p.active[id] = true
	p.disabled[id] = false
	p.expireAt[id] = p.now + period
	p.Changed.Store(true)
}

// Stop disarms timer id. A stopped timer is disabled, not expired.
func (p *Pack) Stop(id int) {
	p.active[id] = false
	p.disabled[id] = true
	p.Changed.Store(true)
}

// StopRange disarms every timer id in [first, last].
func (p *Pack) StopRange(first, last int) {
	for i := first; i <= last; i++ {
		p.Stop(i)
	}
}

// IsDisabled reports whether timer id has never been started, or was
// explicitly stopped, since its last expiry.
func (p *Pack) IsDisabled(id int) bool { return p.disabled[id] }

// IsExpired reports whether timer id is past its deadline. The first call
// after expiry deactivates the timer (but leaves it enabled) so that
// later calls keep answering true until Start or Stop is called again.
func (p *Pack) IsExpired(id int) bool {
	if p.active[id] {
		if timeDiff(p.expireAt[id], p.now) <= 0 {
			p.deactivate(id)
			return true
		}
		return false
	}
	return p.isInactive(id)
}

func (p *Pack) isInactive(id int) bool { return !p.active[id] && !p.disabled[id] }

func (p *Pack) deactivate(id int) {
	p.active[id] = false
	p.disabled[id] = false
	p.Changed.Store(true)
}

// Cleanup forces expiry bookkeeping on every active timer, so that a
// caller which only polls occasionally still converges on each timer's
// one-shot expired state.
func (p *Pack) Cleanup() {
	for i := range p.active {
		if p.active[i] {
			p.IsExpired(i)
		}
	}
}

// NextExpiration returns the smallest non-negative duration until any
// active timer expires, 0 if one has already expired, or NoExpire if no
// timer is active. Useful for a caller that wants to sleep precisely
// instead of polling on a fixed tick.
func (p *Pack) NextExpiration() int32 {
	const maxExpire = int32(1<<31 - 1)
	min := maxExpire
	for i := range p.active {
		if !p.active[i] {
			continue
		}
		d := timeDiff(p.expireAt[i], p.now)
		if d <= 0 {
			return 0
		}
		if d < min {
			min = d
		}
	}
	if min == maxExpire {
		return NoExpire
	}
	return min
}

// timeDiff computes expiration-now as a signed difference that stays
// correct across uint32 wraparound, since both values cycle on the same
// modulus.
func timeDiff(expiration, now uint32) int32 { return int32(expiration - now) }
