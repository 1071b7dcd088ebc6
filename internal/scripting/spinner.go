package scripting

import (
	"context"

	"github.com/spindriftlabs/prizewheel/internal/wheel"
)

// WheelSpinner adapts a wheel machine to the Spinner interface. It owns the
// machine it builds; Close tears it down.
type WheelSpinner struct {
	machine     *wheel.Machine
	completions chan int
}

// NewWheelSpinner builds a machine from cfg with a completion hook chained
// in front of any OnComplete the caller supplied.
func NewWheelSpinner(cfg wheel.Config) (*WheelSpinner, error) {
	ws := &WheelSpinner{completions: make(chan int, 1)}

	prev := cfg.OnComplete
	cfg.OnComplete = func(index int) {
		if prev != nil {
			prev(index)
		}
		select {
		case ws.completions <- index:
		default:
		}
	}

	m, err := wheel.New(cfg)
	if err != nil {
		return nil, err
	}
	ws.machine = m
	return ws, nil
}

// Machine exposes the underlying machine for state inspection.
func (ws *WheelSpinner) Machine() *wheel.Machine {
	return ws.machine
}

// Spin starts one spin and blocks until the wheel lands or ctx is cancelled.
func (ws *WheelSpinner) Spin(ctx context.Context) (SpinResult, error) {
	if err := ws.machine.StartSpin(); err != nil {
		return SpinResult{}, err
	}

	select {
	case <-ctx.Done():
		// Abandon the in-flight spin so the machine is reusable.
		if err := ws.machine.Reset(); err != nil {
			return SpinResult{}, err
		}
		return SpinResult{}, ctx.Err()
	case index := <-ws.completions:
		snap := ws.machine.Snapshot()
		result := SpinResult{
			Index:          index,
			FullSpins:      snap.FullSpins,
			TargetRotation: snap.TargetRotation,
		}
		if tab := ws.machine.Table(); tab != nil {
			out := tab.Outcome(index)
			result.Label = out.Label
			result.Kind = out.Kind
			result.Payout = out.Payout.InexactFloat64()
		}
		return result, nil
	}
}

// Close shuts down the underlying machine.
func (ws *WheelSpinner) Close() {
	ws.machine.Close()
}
