// Package fsm is the small state-machine toolkit every FSM in this stack
// is built on: TC, the five PRL sub-machines, and the policy engine. Each
// state is a Name plus three optional hook functions, the same shape the
// policy engine in the reference implementation used, generalized with a
// type parameter since Go has no template/CRTP equivalent to the
// original's state-pack machinery.
package fsm

// State is one node of a Machine[C]. Enter runs once on transition in,
// Process runs on every tick while resident, Exit runs once before
// leaving. Enter and Process may return a non-nil next state to request an
// immediate transition; Exit returns nothing.
type State[C any] struct {
	Name string

	Enter   func(*C) *State[C]
	Process func(*C) *State[C]
	Exit    func(*C)
}

// Machine drives a State[C] graph for one context value.
type Machine[C any] struct {
	ctx      *C
	cur      *State[C]
	entering bool
}

// New returns a Machine starting in initial, with Enter due to run on the
// first Tick.
func New[C any](ctx *C, initial *State[C]) *Machine[C] {
	return &Machine[C]{ctx: ctx, cur: initial, entering: true}
}

// State returns the current state.
func (m *Machine[C]) State() *State[C] { return m.cur }

// StateName returns the current state's name, for logging.
func (m *Machine[C]) StateName() string { return m.cur.Name }

// Tick runs Enter (if just transitioned) or Process (otherwise), chasing
// any chain of immediate transitions until a state returns nil, the same
// way the reference policy engine loop does.
func (m *Machine[C]) Tick() {
	for {
		var next *State[C]
		if m.entering {
			m.entering = false
			if m.cur.Enter != nil {
				next = m.cur.Enter(m.ctx)
			}
		} else if m.cur.Process != nil {
			next = m.cur.Process(m.ctx)
		}

		if next == nil {
			return
		}
		if m.cur.Exit != nil {
			m.cur.Exit(m.ctx)
		}
		m.cur = next
		m.entering = true
	}
}

// Goto forces an immediate transition to s, running the current state's
// Exit hook first. Used when an outside event (e.g. a hard reset) must
// preempt whatever the machine is doing.
func (m *Machine[C]) Goto(s *State[C]) {
	if m.cur != nil && m.cur.Exit != nil {
		m.cur.Exit(m.ctx)
	}
	m.cur = s
	m.entering = true
}
