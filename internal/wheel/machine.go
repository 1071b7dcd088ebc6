package wheel

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/spindriftlabs/prizewheel/internal/engine"
)

// State is the spin machine's phase.
type State int

const (
	StateIdle State = iota
	StateSpinning
	StateSettling
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSpinning:
		return "spinning"
	case StateSettling:
		return "settling"
	case StateComplete:
		return "complete"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Event is an input to the spin machine.
type Event int

const (
	EventStartSpin Event = iota
	EventSpinComplete
	EventSettleDone
	EventReset
)

func (e Event) String() string {
	switch e {
	case EventStartSpin:
		return "start_spin"
	case EventSpinComplete:
		return "spin_complete"
	case EventSettleDone:
		return "settle_done"
	case EventReset:
		return "reset"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

// ErrInvalidTransition is returned when an event arrives in a state that
// does not accept it. The machine logs a warning and stays put; the caller
// may retry after the in-flight spin finishes.
var ErrInvalidTransition = errors.New("invalid transition")

// ErrClosed is returned for any event issued after Close.
var ErrClosed = errors.New("spin machine closed")

// transition is a single allowed edge in the spin machine.
type transition struct {
	From  State
	Event Event
	To    State
}

// Config configures a Machine.
type Config struct {
	// SegmentCount is the number of wheel segments. Required, >= 1. A
	// widget with a different segment count gets a fresh machine.
	SegmentCount int

	// SpinDuration is how long the Spinning phase lasts.
	SpinDuration time.Duration

	// SettleDuration, when non-zero, enables a trailing settling phase
	// after the wheel reaches its target: the machine passes through
	// Settling for this long before Complete, and IsSpinning stays true
	// throughout. Rotation math is identical in both variants.
	SettleDuration time.Duration

	// OnComplete, if set, is invoked exactly once per spin with the
	// resolved outcome index, after rotation has settled at its final
	// value. It runs outside the machine's lock, so re-spinning from
	// inside the callback is legal.
	OnComplete func(index int)

	// InitialAlignmentIndex, when >= 0, pre-positions that segment under
	// the pointer at construction and on every reset. When negative the
	// reset rotation is 0.
	InitialAlignmentIndex int

	// Table optionally supplies the weighted outcomes used by StartSpin's
	// internal draw. Its length must equal SegmentCount.
	Table *OutcomeTable

	// RNG drives the full-spin draw and the uniform fallback index. Left
	// nil, a stream is built from a secure seed. It is never shared with
	// outcome selection.
	RNG *engine.Stream

	// Logger receives invalid-transition warnings. Defaults to stdout
	// with a [WHEEL] prefix.
	Logger *log.Logger
}

// DefaultConfig returns a config for the three-state variant with the
// stock spin duration.
func DefaultConfig(segmentCount int) Config {
	return Config{
		SegmentCount:          segmentCount,
		SpinDuration:          4 * time.Second,
		InitialAlignmentIndex: -1,
	}
}

// Machine is the spin state machine. It owns its session state outright:
// rotation is only ever written at construction, at completion, and on
// reset, always under the machine's own lock.
type Machine struct {
	mu sync.Mutex

	segmentCount   int
	spinDuration   time.Duration
	settleDuration time.Duration
	onComplete     func(int)
	resetRotation  float64
	table          *OutcomeTable
	rng            *engine.Stream
	logger         *log.Logger
	transitions    []transition

	state          State
	rotation       float64
	targetRotation float64
	targetIndex    int
	fullSpins      int

	timer *time.Timer
	// timerGen invalidates scheduled callbacks: a timer that fires after
	// its generation was bumped finds nothing to do. Reset and Close bump
	// it, so a cancelled spin can never complete late.
	timerGen uint64
	closed   bool
}

// New builds a Machine. The configured segment count is fixed for the
// machine's lifetime.
func New(cfg Config) (*Machine, error) {
	if cfg.SegmentCount < 1 {
		return nil, fmt.Errorf("segment count must be >= 1, got %d", cfg.SegmentCount)
	}
	if cfg.SpinDuration <= 0 {
		return nil, fmt.Errorf("spin duration must be positive, got %v", cfg.SpinDuration)
	}
	if cfg.Table != nil && cfg.Table.Len() != cfg.SegmentCount {
		return nil, fmt.Errorf(
			"outcome table has %d entries for %d segments", cfg.Table.Len(), cfg.SegmentCount)
	}

	resetRotation := 0.0
	if cfg.InitialAlignmentIndex >= 0 {
		r, err := InitialAlignment(cfg.InitialAlignmentIndex, cfg.SegmentCount)
		if err != nil {
			return nil, err
		}
		resetRotation = r
	}

	rng := cfg.RNG
	if rng == nil {
		seed, err := engine.NewSeed()
		if err != nil {
			return nil, err
		}
		rng = engine.NewStream(seed)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stdout, "[WHEEL] ", log.LstdFlags)
	}

	m := &Machine{
		segmentCount:   cfg.SegmentCount,
		spinDuration:   cfg.SpinDuration,
		settleDuration: cfg.SettleDuration,
		onComplete:     cfg.OnComplete,
		resetRotation:  resetRotation,
		table:          cfg.Table,
		rng:            rng,
		logger:         logger,

		state:          StateIdle,
		rotation:       resetRotation,
		targetRotation: resetRotation,
		targetIndex:    -1,
	}
	m.transitions = m.buildTransitions()

	return m, nil
}

// buildTransitions returns the allowed edges for the configured variant.
func (m *Machine) buildTransitions() []transition {
	edges := []transition{
		{From: StateIdle, Event: EventStartSpin, To: StateSpinning},
		{From: StateComplete, Event: EventStartSpin, To: StateSpinning},
		{From: StateIdle, Event: EventReset, To: StateIdle},
		{From: StateSpinning, Event: EventReset, To: StateIdle},
		{From: StateComplete, Event: EventReset, To: StateIdle},
	}
	if m.settleDuration > 0 {
		edges = append(edges,
			transition{From: StateSpinning, Event: EventSpinComplete, To: StateSettling},
			transition{From: StateSettling, Event: EventSettleDone, To: StateComplete},
			transition{From: StateSettling, Event: EventReset, To: StateIdle},
		)
	} else {
		edges = append(edges,
			transition{From: StateSpinning, Event: EventSpinComplete, To: StateComplete},
		)
	}
	return edges
}

// transitionFor returns the destination for a state+event pair, if the
// edge is allowed.
func (m *Machine) transitionFor(from State, ev Event) (State, bool) {
	for _, tr := range m.transitions {
		if tr.From == from && tr.Event == ev {
			return tr.To, true
		}
	}
	return from, false
}

// rejectLocked logs the invalid-transition warning. State is untouched.
func (m *Machine) rejectLocked(ev Event) error {
	m.logger.Printf("invalid_transition state=%s event=%s", m.state, ev)
	return ErrInvalidTransition
}

// StartSpin starts a spin toward an internally drawn outcome: a weighted
// selection when the machine has a table, a uniform draw otherwise.
func (m *Machine) StartSpin() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if _, ok := m.transitionFor(m.state, EventStartSpin); !ok {
		defer m.mu.Unlock()
		return m.rejectLocked(EventStartSpin)
	}

	var index int
	if m.table != nil {
		// The selection draws from its own ephemeral stream; m.rng stays
		// untouched so planning draws never shift selection results.
		m.mu.Unlock()
		sel, err := Select(m.table)
		if err != nil {
			return err
		}
		m.mu.Lock()
		// Re-check: the table draw ran unlocked and the machine may have
		// been closed or spun in the meantime.
		if m.closed {
			m.mu.Unlock()
			return ErrClosed
		}
		if _, ok := m.transitionFor(m.state, EventStartSpin); !ok {
			defer m.mu.Unlock()
			return m.rejectLocked(EventStartSpin)
		}
		index = sel.Index
	} else {
		index = m.rng.IntBetween(0, m.segmentCount-1)
	}

	err := m.startSpinLocked(index)
	m.mu.Unlock()
	return err
}

// StartSpinAt starts a spin toward a pre-resolved outcome index.
func (m *Machine) StartSpinAt(index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if _, ok := m.transitionFor(m.state, EventStartSpin); !ok {
		return m.rejectLocked(EventStartSpin)
	}
	return m.startSpinLocked(index)
}

// startSpinLocked plans the rotation and enters Spinning. Caller holds the
// lock and has already checked the transition.
func (m *Machine) startSpinLocked(index int) error {
	plan, err := Plan(m.rotation, index, m.segmentCount, m.rng)
	if err != nil {
		return err
	}

	m.state = StateSpinning
	m.targetRotation = plan.TargetRotation
	m.targetIndex = index
	m.fullSpins = plan.FullSpins

	m.scheduleLocked(m.spinDuration, m.fireSpinComplete)
	return nil
}

// scheduleLocked arms the machine's single timer. Any previously armed
// timer has already been consumed or cancelled by this point.
func (m *Machine) scheduleLocked(d time.Duration, fire func(gen uint64)) {
	m.timerGen++
	gen := m.timerGen
	m.timer = time.AfterFunc(d, func() { fire(gen) })
}

// cancelTimerLocked stops any pending timer and invalidates its callback.
func (m *Machine) cancelTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.timerGen++
}

// fireSpinComplete is the spin timer callback.
func (m *Machine) fireSpinComplete(gen uint64) {
	m.mu.Lock()
	if m.closed || gen != m.timerGen || m.state != StateSpinning {
		m.mu.Unlock()
		return
	}

	// Spinning always accepts SPIN_COMPLETE; the destination depends on
	// whether the settling phase is configured.
	to, _ := m.transitionFor(m.state, EventSpinComplete)

	// The wheel is at rest: freeze rotation at the planned target. This is
	// the write the landing invariant is checked against.
	m.rotation = m.targetRotation
	m.timer = nil

	if to == StateSettling {
		m.state = StateSettling
		m.scheduleLocked(m.settleDuration, m.fireSettleDone)
		m.mu.Unlock()
		return
	}

	m.completeLocked()
}

// fireSettleDone is the settle timer callback (four-state variant only).
func (m *Machine) fireSettleDone(gen uint64) {
	m.mu.Lock()
	if m.closed || gen != m.timerGen || m.state != StateSettling {
		m.mu.Unlock()
		return
	}
	m.timer = nil
	m.completeLocked()
}

// completeLocked enters Complete and delivers the completion callback.
// Unlocks m.mu: the callback runs outside the lock so it can start the
// next spin directly.
func (m *Machine) completeLocked() {
	m.state = StateComplete
	cb := m.onComplete
	index := m.targetIndex
	m.mu.Unlock()

	if cb != nil {
		cb(index)
	}
}

// Reset cancels any pending spin and returns the machine to Idle at the
// reset rotation. Idempotent from Idle; from Spinning it is the forced
// path used when the outcome table changes mid-spin.
func (m *Machine) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if _, ok := m.transitionFor(m.state, EventReset); !ok {
		return m.rejectLocked(EventReset)
	}

	m.cancelTimerLocked()
	m.state = StateIdle
	m.rotation = m.resetRotation
	m.targetRotation = m.resetRotation
	m.targetIndex = -1
	m.fullSpins = 0
	return nil
}

// SetTable swaps the weighted outcome table. The new table must match the
// machine's segment count. A spin in flight is force-reset first.
func (m *Machine) SetTable(table *OutcomeTable) error {
	if table != nil && table.Len() != m.segmentCount {
		return &ValidationError{err: fmt.Errorf(
			"outcome table has %d entries for %d segments", table.Len(), m.segmentCount)}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if m.state == StateSpinning || m.state == StateSettling {
		m.cancelTimerLocked()
		m.state = StateIdle
		m.rotation = m.resetRotation
		m.targetRotation = m.resetRotation
		m.targetIndex = -1
		m.fullSpins = 0
	}
	m.table = table
	return nil
}

// Close tears the machine down. Any pending timer is cancelled before the
// method returns, so a timer can never fire into a closed machine. Further
// events return ErrClosed.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true
	m.cancelTimerLocked()
}

// Snapshot is a read-only view of the session.
type Snapshot struct {
	State          State   `json:"-"`
	StateName      string  `json:"state"`
	Rotation       float64 `json:"rotation"`
	TargetRotation float64 `json:"target_rotation"`
	TargetIndex    int     `json:"target_index"`
	FullSpins      int     `json:"full_spins"`
	IsSpinning     bool    `json:"is_spinning"`
}

// Snapshot returns the current session state. The rendering layer polls
// this every animation tick.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		State:          m.state,
		StateName:      m.state.String(),
		Rotation:       m.rotation,
		TargetRotation: m.targetRotation,
		TargetIndex:    m.targetIndex,
		FullSpins:      m.fullSpins,
		IsSpinning:     m.state == StateSpinning || m.state == StateSettling,
	}
}

// SegmentCount returns the configured segment count.
func (m *Machine) SegmentCount() int {
	return m.segmentCount
}

// Table returns the machine's current outcome table, which may be nil.
func (m *Machine) Table() *OutcomeTable {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.table
}
