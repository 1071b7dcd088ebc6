package bindings

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/spindriftlabs/prizewheel/internal/scripting"
	"github.com/spindriftlabs/prizewheel/internal/wheel"
)

// ScriptModule is the Wails-bound struct for autospin script management.
// Scripts run against their own machine so the visible wheel stays free.
type ScriptModule struct {
	ctx context.Context
	mu  sync.Mutex

	app     *App
	runner  *scripting.Runner
	spinner *scripting.WheelSpinner

	// Event emitter for pushing state to the frontend.
	emitter *wailsScriptEmitter
}

// scriptSpinDuration keeps autospin sessions fast; scripts care about
// outcomes, not animation.
const scriptSpinDuration = 10 * time.Millisecond

// wailsScriptEmitter bridges runner events to Wails runtime events.
type wailsScriptEmitter struct {
	ctx context.Context
}

func (e *wailsScriptEmitter) EmitScriptState(snap scripting.RunnerSnapshot) {
	if e.ctx == nil {
		return
	}
	// Placeholder for future Wails event integration.
}

func (e *wailsScriptEmitter) EmitScriptLog(entries []scripting.LogEntry) {
	// Placeholder for future Wails event integration.
}

// NewScriptModule creates a new ScriptModule ready to be bound.
func NewScriptModule(app *App) *ScriptModule {
	return &ScriptModule{
		app:     app,
		emitter: &wailsScriptEmitter{},
	}
}

// Startup is called by Wails on application startup.
func (sm *ScriptModule) Startup(ctx context.Context) {
	sm.ctx = ctx
	sm.emitter.ctx = ctx
}

// StartScript begins an autospin session on the active theme. maxSpins of
// zero means the script runs until it calls stop().
func (sm *ScriptModule) StartScript(source string, maxSpins int) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.runner != nil && sm.runner.GetState().State == scripting.StateRunning {
		return fmt.Errorf("a script is already running")
	}

	sm.app.mu.Lock()
	th := sm.app.themes[sm.app.active]
	sm.app.mu.Unlock()
	if th == nil {
		return fmt.Errorf("no active theme")
	}

	cfg := wheel.DefaultConfig(th.SegmentCount())
	cfg.SpinDuration = scriptSpinDuration
	cfg.Table = th.Table()
	cfg.Logger = log.New(io.Discard, "", 0)

	spinner, err := scripting.NewWheelSpinner(cfg)
	if err != nil {
		return err
	}

	runner := scripting.NewRunner(spinner, sm.emitter)
	runner.MaxSpins = maxSpins

	if err := runner.Start(source); err != nil {
		spinner.Close()
		return err
	}

	if sm.spinner != nil {
		sm.spinner.Close()
	}
	sm.runner = runner
	sm.spinner = spinner
	return nil
}

// StopScript stops the running autospin session.
func (sm *ScriptModule) StopScript() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.runner == nil {
		return fmt.Errorf("no script has been started")
	}
	return sm.runner.Stop()
}

// GetScriptState returns the current runner snapshot.
func (sm *ScriptModule) GetScriptState() (scripting.RunnerSnapshot, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.runner == nil {
		return scripting.RunnerSnapshot{State: scripting.StateIdle}, nil
	}
	return sm.runner.GetState(), nil
}

// GetScriptLogs returns the script's log buffer.
func (sm *ScriptModule) GetScriptLogs() ([]scripting.LogEntry, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.runner == nil {
		return nil, nil
	}
	return sm.runner.GetLogs(), nil
}

// Shutdown tears down any running session.
func (sm *ScriptModule) Shutdown(ctx context.Context) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.runner != nil && sm.runner.GetState().State == scripting.StateRunning {
		_ = sm.runner.Stop()
	}
	if sm.spinner != nil {
		sm.spinner.Close()
		sm.spinner = nil
	}
}
