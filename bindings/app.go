package bindings

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/spindriftlabs/prizewheel/internal/store"
	"github.com/spindriftlabs/prizewheel/internal/wheel"
)

// engineVersion mirrors the HTTP API's version string so desktop history
// rows and headless rows stay comparable.
const engineVersion = "1.2.0"

// ThemeInfo describes one loadable theme for the frontend.
type ThemeInfo struct {
	Name         string   `json:"name"`
	SegmentCount int      `json:"segmentCount"`
	Labels       []string `json:"labels"`
	Colors       []string `json:"colors"`
	Active       bool     `json:"active"`
}

// SpinInfo is the frontend-facing result of starting a spin.
type SpinInfo struct {
	SpinID         string  `json:"spinId"`
	Theme          string  `json:"theme"`
	Index          int     `json:"index"`
	Label          string  `json:"label"`
	Payout         string  `json:"payout"`
	Seed           uint32  `json:"seed"`
	Seeded         bool    `json:"seeded"`
	FullSpins      int     `json:"fullSpins"`
	TargetRotation float64 `json:"targetRotation"`
}

// ReplayInfo is the result of re-running a recorded spin's draw.
type ReplayInfo struct {
	Spin  store.Spin `json:"spin"`
	Index int        `json:"index"`
	Match bool       `json:"match"`
}

// ListThemes returns the loaded themes with their segment layout.
func (a *App) ListThemes() ([]ThemeInfo, error) {
	a.mu.Lock()
	active := a.active
	a.mu.Unlock()

	infos := make([]ThemeInfo, 0, len(a.themes))
	for name, th := range a.themes {
		info := ThemeInfo{
			Name:         name,
			SegmentCount: th.SegmentCount(),
			Active:       name == active,
		}
		for _, seg := range th.Segments {
			info.Labels = append(info.Labels, seg.Label)
			info.Colors = append(info.Colors, seg.Color)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// SelectTheme switches the wheel to another theme. Any in-flight spin on
// the old machine is abandoned.
func (a *App) SelectTheme(name string) error {
	return a.activateTheme(name)
}

// Spin starts a randomly seeded spin on the active theme.
func (a *App) Spin() (SpinInfo, error) {
	a.mu.Lock()
	th := a.themes[a.active]
	a.mu.Unlock()

	sel, err := wheel.Select(th.Table())
	if err != nil {
		return SpinInfo{}, err
	}
	return a.startSpin(sel, true)
}

// SpinSeeded starts a spin whose weighted draw uses the given seed, making
// the outcome reproducible.
func (a *App) SpinSeeded(seed uint32) (SpinInfo, error) {
	a.mu.Lock()
	th := a.themes[a.active]
	a.mu.Unlock()

	sel, err := wheel.SelectSeeded(th.Table(), seed)
	if err != nil {
		return SpinInfo{}, err
	}
	return a.startSpin(sel, true)
}

// SpinAt forces the wheel to land on the given segment. Used by the theme
// editor preview; forced spins are recorded but cannot be replayed.
func (a *App) SpinAt(index int) (SpinInfo, error) {
	a.mu.Lock()
	th := a.themes[a.active]
	a.mu.Unlock()

	if index < 0 || index >= th.SegmentCount() {
		return SpinInfo{}, fmt.Errorf("index %d out of range for %d segments", index, th.SegmentCount())
	}
	return a.startSpin(wheel.Selection{Index: index}, false)
}

func (a *App) startSpin(sel wheel.Selection, seeded bool) (SpinInfo, error) {
	a.mu.Lock()
	m := a.machine
	activeName := a.active
	th := a.themes[activeName]
	a.mu.Unlock()

	if err := m.StartSpinAt(sel.Index); err != nil {
		if errors.Is(err, wheel.ErrInvalidTransition) {
			return SpinInfo{}, fmt.Errorf("a spin is already in flight")
		}
		return SpinInfo{}, err
	}

	snap := m.Snapshot()
	outcome := th.Table().Outcome(sel.Index)
	spin := &store.Spin{
		ID:             uuid.New().String(),
		Theme:          activeName,
		SegmentCount:   th.SegmentCount(),
		Seed:           sel.SeedUsed,
		Seeded:         seeded,
		OutcomeIndex:   sel.Index,
		OutcomeLabel:   outcome.Label,
		Payout:         outcome.Payout,
		FullSpins:      snap.FullSpins,
		TargetRotation: snap.TargetRotation,
		EngineVersion:  engineVersion,
	}

	a.mu.Lock()
	a.pending = spin
	a.mu.Unlock()

	return SpinInfo{
		SpinID:         spin.ID,
		Theme:          activeName,
		Index:          sel.Index,
		Label:          outcome.Label,
		Payout:         outcome.Payout.String(),
		Seed:           sel.SeedUsed,
		Seeded:         seeded,
		FullSpins:      snap.FullSpins,
		TargetRotation: snap.TargetRotation,
	}, nil
}

// Reset cancels any in-flight spin and returns the wheel to rest.
func (a *App) Reset() error {
	a.mu.Lock()
	m := a.machine
	a.pending = nil
	a.mu.Unlock()
	return m.Reset()
}

// GetSnapshot returns the wheel state the renderer draws from.
func (a *App) GetSnapshot() (wheel.Snapshot, error) {
	a.mu.Lock()
	m := a.machine
	a.mu.Unlock()
	return m.Snapshot(), nil
}

// GetHistory returns a page of recorded spins, optionally filtered by theme.
func (a *App) GetHistory(themeName string, page, perPage int) (*store.SpinsList, error) {
	return a.db.ListSpins(store.SpinsQuery{Theme: themeName, Page: page, PerPage: perPage})
}

// ReplaySpin re-runs a recorded spin's weighted draw with its stored seed
// and reports whether the outcome still matches.
func (a *App) ReplaySpin(id string) (ReplayInfo, error) {
	spin, err := a.db.GetSpin(id)
	if err != nil {
		return ReplayInfo{}, err
	}
	if !spin.Seeded {
		return ReplayInfo{}, fmt.Errorf("spin %s was started with a forced index and cannot be replayed", id)
	}

	th, ok := a.themes[spin.Theme]
	if !ok {
		return ReplayInfo{}, &UnknownThemeError{Name: spin.Theme}
	}

	sel, err := wheel.SelectSeeded(th.Table(), spin.Seed)
	if err != nil {
		return ReplayInfo{}, err
	}

	return ReplayInfo{
		Spin:  *spin,
		Index: sel.Index,
		Match: sel.Index == spin.OutcomeIndex,
	}, nil
}
