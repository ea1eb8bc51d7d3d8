package port

import "github.com/tinypd/pdsink/timerpack"

// TimerID names one of the virtual one-shot timers shared by TC, PE and
// PRL. All are backed by the same timerpack.Pack so that a single
// millisecond counter drives the whole stack.
type TimerID int

// Timer identities (6.6.22 plus the TC debounce/poll timers, which are
// not part of the PD spec proper).
const (
	TimerTCDebounce TimerID = iota

	TimerPESinkWaitCap
	TimerPESenderResponse
	TimerPESinkRequest
	TimerPEPSTransition
	TimerPESinkPPSPeriodic
	TimerPESinkEPRKeepAlive
	TimerPESinkEPREnter
	TimerPEBISTContMode

	TimerPRLHardResetComplete
	TimerPRLActiveCcPollingDebounce
	TimerPRLChunkSenderResponse
	TimerPRLChunkSenderRequest

	timerCount
)

// PE and PRL timer ranges, for bulk reset on (re)entry to a top-level
// state that owns them.
const (
	TimerRangePEFirst  = TimerPESinkWaitCap
	TimerRangePELast   = TimerPEBISTContMode
	TimerRangePRLFirst = TimerPRLHardResetComplete
	TimerRangePRLLast  = TimerPRLChunkSenderRequest
)

// Timeout is a named (timer, duration) pair, the way operations ask for a
// timer without needing to know its numeric id.
type Timeout struct {
	ID TimerID
	MS uint32
}

// Named timeouts (6.6.22 Time Values and Timers). Ranges quoted from the
// spec are in the comments; the value chosen is the nominal point inside
// that range this stack uses.
var (
	TimeoutTCVBUSDebounce = Timeout{TimerTCDebounce, 100} // 100-200 ms
	TimeoutTCCCPoll       = Timeout{TimerTCDebounce, 20}

	TimeoutTypeCSinkWaitCap = Timeout{TimerPESinkWaitCap, 465}      // 310-620 ms
	TimeoutSenderResponse   = Timeout{TimerPESenderResponse, 30}    // 27-36 ms
	TimeoutSinkRequest      = Timeout{TimerPESinkRequest, 100}      // 100 ms before repeat
	TimeoutPPSRequest       = Timeout{TimerPESinkPPSPeriodic, 5000} // 10 s max
	TimeoutPSTransitionSPR  = Timeout{TimerPEPSTransition, 500}     // 450-550 ms
	TimeoutPSTransitionEPR  = Timeout{TimerPEPSTransition, 925}     // 830-1020 ms
	TimeoutSinkEPRKeepAlive = Timeout{TimerPESinkEPRKeepAlive, 375} // 250-500 ms
	TimeoutEnterEPR         = Timeout{TimerPESinkEPREnter, 500}     // 450-550 ms
	TimeoutBISTCarrierMode  = Timeout{TimerPEBISTContMode, 300}     // 300 ms before exit

	TimeoutHardResetComplete      = Timeout{TimerPRLHardResetComplete, 5}          // 4-5 ms
	TimeoutChunkSenderResponse    = Timeout{TimerPRLChunkSenderResponse, 27}       // 24-30 ms
	TimeoutChunkSenderRequest     = Timeout{TimerPRLChunkSenderRequest, 27}        // 24-30 ms
	TimeoutActiveCcPollingDebounce = Timeout{TimerPRLActiveCcPollingDebounce, 20} // 20 ms
)

// Timers wraps timerpack.Pack with this stack's named timer identities,
// so callers pass a Timeout instead of juggling raw ids.
type Timers struct {
	pack *timerpack.Pack
	now  func() uint32
}

// NewTimers returns a Timers backed by a fresh Pack. now supplies the
// current time in milliseconds whenever Start is called.
func NewTimers(now func() uint32) *Timers {
	return &Timers{pack: timerpack.New(int(timerCount)), now: now}
}

// Start arms t.
func (t *Timers) Start(to Timeout) {
	t.pack.SetTime(t.now())
	t.pack.Start(int(to.ID), to.MS)
}

// Stop disarms t.
func (t *Timers) Stop(to Timeout) { t.pack.Stop(int(to.ID)) }

// StopRange disarms every timer id in [first, last].
func (t *Timers) StopRange(first, last TimerID) { t.pack.StopRange(int(first), int(last)) }

// IsDisabled reports whether t's timer has never been started, or was
// explicitly stopped, since its last expiry.
func (t *Timers) IsDisabled(to Timeout) bool { return t.pack.IsDisabled(int(to.ID)) }

// IsExpired reports whether t's timer is past its deadline.
func (t *Timers) IsExpired(to Timeout) bool {
	t.pack.SetTime(t.now())
	return t.pack.IsExpired(int(to.ID))
}

// Cleanup forces expiry bookkeeping across every active timer.
func (t *Timers) Cleanup() {
	t.pack.SetTime(t.now())
	t.pack.Cleanup()
}

// NextExpiration returns the time in milliseconds until the next timer
// expires, or timerpack.NoExpire if none are active.
func (t *Timers) NextExpiration() int32 {
	t.pack.SetTime(t.now())
	return t.pack.NextExpiration()
}
