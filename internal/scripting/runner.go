package scripting

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// State represents the runner's lifecycle state.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateStopped State = "stopped"
	StateError   State = "error"
)

// Spinner is the interface the runner uses to spin the wheel. Spin blocks
// until the wheel lands and returns the outcome.
type Spinner interface {
	Spin(ctx context.Context) (SpinResult, error)
}

// EventEmitter allows the runner to push state updates to a frontend.
type EventEmitter interface {
	// EmitScriptState sends the current runner state.
	EmitScriptState(snap RunnerSnapshot)
	// EmitScriptLog sends log entries.
	EmitScriptLog(entries []LogEntry)
}

// RunnerSnapshot is a serializable snapshot of the runner state.
type RunnerSnapshot struct {
	State          State   `json:"state"`
	Error          string  `json:"error,omitempty"`
	Spins          int     `json:"spins"`
	TotalPayout    float64 `json:"totalPayout"`
	SpinsPerSecond float64 `json:"spinsPerSecond"`
}

// Runner executes an autospin script against a wheel.
type Runner struct {
	mu     sync.RWMutex
	state  State
	err    error
	cancel context.CancelFunc

	vm          *VM
	spins       int
	totalPayout float64

	spinner Spinner
	emitter EventEmitter

	// MaxSpins caps one session; zero means unlimited.
	MaxSpins int

	startTime time.Time
	lastEmit  time.Time
}

// NewRunner creates a new autospin runner.
func NewRunner(spinner Spinner, emitter EventEmitter) *Runner {
	return &Runner{
		state:   StateIdle,
		spinner: spinner,
		emitter: emitter,
	}
}

// Start executes the script source once to register onspin(), then begins
// the spin loop in the background.
func (r *Runner) Start(script string) error {
	r.mu.Lock()
	if r.state == StateRunning {
		r.mu.Unlock()
		return fmt.Errorf("runner is already running")
	}

	r.vm = NewVM()
	r.state = StateRunning
	r.err = nil
	r.spins = 0
	r.totalPayout = 0
	r.startTime = time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.mu.Unlock()

	if err := r.vm.Execute(script); err != nil {
		r.setError(err)
		cancel()
		return err
	}

	if !r.vm.HasOnSpinFunc() {
		err := fmt.Errorf("script must define an onspin(result) function")
		r.setError(err)
		cancel()
		return err
	}

	r.emitState()

	go r.spinLoop(ctx)

	return nil
}

// Stop gracefully stops the runner after the current spin.
func (r *Runner) Stop() error {
	r.mu.Lock()
	if r.state != StateRunning {
		r.mu.Unlock()
		return fmt.Errorf("runner is not running")
	}
	if r.cancel != nil {
		r.cancel()
	}
	r.state = StateStopped
	r.mu.Unlock()

	r.emitState()
	return nil
}

// GetState returns the current runner snapshot.
func (r *Runner) GetState() RunnerSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot()
}

// GetLogs returns the script log buffer.
func (r *Runner) GetLogs() []LogEntry {
	r.mu.RLock()
	vm := r.vm
	r.mu.RUnlock()
	if vm == nil {
		return nil
	}
	return vm.GetLogs()
}

// spinLoop is the main loop that runs in a goroutine.
func (r *Runner) spinLoop(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			r.setError(fmt.Errorf("script panic: %v", rec))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			r.markStopped()
			return
		default:
		}

		if r.vm.IsStopRequested() {
			r.markStopped()
			return
		}

		r.mu.RLock()
		maxSpins := r.MaxSpins
		done := maxSpins > 0 && r.spins >= maxSpins
		r.mu.RUnlock()
		if done {
			r.markStopped()
			return
		}

		result, err := r.spinner.Spin(ctx)
		if err != nil {
			if ctx.Err() != nil {
				r.markStopped()
				return
			}
			r.setError(fmt.Errorf("spin failed: %w", err))
			return
		}

		r.mu.Lock()
		r.spins++
		r.totalPayout += result.Payout
		result.SpinNumber = r.spins
		r.mu.Unlock()

		if err := r.vm.CallOnSpin(result); err != nil {
			r.setError(err)
			return
		}

		// Honor sleep(ms) from the script between spins.
		if ms := r.vm.GetSleepTime(); ms > 0 {
			r.vm.ResetSleepTime()
			select {
			case <-ctx.Done():
				r.markStopped()
				return
			case <-time.After(time.Duration(ms) * time.Millisecond):
			}
		}

		r.maybeEmitState()
	}
}

func (r *Runner) markStopped() {
	r.mu.Lock()
	if r.state == StateRunning {
		r.state = StateStopped
	}
	r.mu.Unlock()
	r.emitState()
}

func (r *Runner) setError(err error) {
	r.mu.Lock()
	r.state = StateError
	r.err = err
	r.mu.Unlock()
	r.emitState()
}

// snapshot builds a RunnerSnapshot. Callers must hold at least a read lock.
func (r *Runner) snapshot() RunnerSnapshot {
	snap := RunnerSnapshot{
		State:       r.state,
		Spins:       r.spins,
		TotalPayout: r.totalPayout,
	}
	if r.err != nil {
		snap.Error = r.err.Error()
	}
	if elapsed := time.Since(r.startTime).Seconds(); elapsed > 0 && r.spins > 0 {
		snap.SpinsPerSecond = float64(r.spins) / elapsed
	}
	return snap
}

// maybeEmitState rate-limits state emission to roughly 10 per second.
func (r *Runner) maybeEmitState() {
	r.mu.Lock()
	if time.Since(r.lastEmit) < 100*time.Millisecond {
		r.mu.Unlock()
		return
	}
	r.lastEmit = time.Now()
	r.mu.Unlock()
	r.emitState()
}

func (r *Runner) emitState() {
	if r.emitter == nil {
		return
	}
	r.mu.RLock()
	snap := r.snapshot()
	vm := r.vm
	r.mu.RUnlock()

	r.emitter.EmitScriptState(snap)
	if vm != nil {
		if logs := vm.GetLogs(); len(logs) > 0 {
			r.emitter.EmitScriptLog(logs)
		}
	}
}
