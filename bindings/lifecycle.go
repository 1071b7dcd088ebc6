package bindings

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spindriftlabs/prizewheel/internal/store"
	"github.com/spindriftlabs/prizewheel/internal/theme"
	"github.com/spindriftlabs/prizewheel/internal/wheel"
)

// App is the Wails-bound application core. It owns the active spin machine,
// the loaded themes, and the spin-history store.
type App struct {
	ctx context.Context

	mu      sync.Mutex
	machine *wheel.Machine
	themes  map[string]*theme.Theme
	active  string
	pending *store.Spin

	db     store.DB
	logger *log.Logger

	// SpinDuration and SettleDuration apply to every machine the app
	// builds. Zero SettleDuration selects the three-state variant.
	SpinDuration   time.Duration
	SettleDuration time.Duration
}

// classicTheme ships with the binary so the wheel works before the user
// installs any theme files.
const classicTheme = `name: classic
segments:
  - label: Jackpot
    kind: cash
    color: "#f5c518"
    payout: "100.00"
    probability: 0.05
  - label: Double
    kind: multiplier
    color: "#3fa7d6"
    payout: "2"
    probability: 0.25
  - label: Small Win
    kind: cash
    color: "#59cd90"
    payout: "1.50"
    probability: 0.30
  - label: Nothing
    kind: none
    color: "#444444"
    payout: "0"
    probability: 0.40
`

func New() *App {
	return &App{
		SpinDuration: 4 * time.Second,
		logger:       log.New(os.Stdout, "[APP] ", log.LstdFlags),
	}
}

// Startup is called by Wails on application startup. It opens the history
// database under the user config dir and loads themes, falling back to the
// built-in classic wheel when no theme files are installed.
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx

	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = "."
	}

	appDir := filepath.Join(configDir, "prizewheel")
	if err := os.MkdirAll(appDir, 0755); err != nil {
		panic(err)
	}

	dbPath := filepath.Join(appDir, "prizewheel.db")
	db, err := store.NewSQLiteDB(dbPath)
	if err != nil {
		panic(err)
	}
	a.db = db

	if err := a.db.Migrate(); err != nil {
		panic(err)
	}

	themes, err := theme.LoadDir(filepath.Join(appDir, "themes"))
	if err != nil {
		builtin, perr := theme.Parse([]byte(classicTheme))
		if perr != nil {
			panic(perr)
		}
		themes = map[string]*theme.Theme{builtin.Name: builtin}
	}
	a.themes = themes

	if err := a.activateTheme(theme.Names(themes)[0]); err != nil {
		panic(err)
	}
}

// Shutdown is called by Wails when the application closes.
func (a *App) Shutdown(ctx context.Context) {
	a.mu.Lock()
	m := a.machine
	db := a.db
	a.mu.Unlock()

	if m != nil {
		m.Close()
	}
	if db != nil {
		if err := db.Close(); err != nil {
			a.logger.Printf("db_close_failed err=%v", err)
		}
	}
}

// activateTheme builds a fresh machine for the named theme and closes the
// previous one.
func (a *App) activateTheme(name string) error {
	th, ok := a.themes[name]
	if !ok {
		return &UnknownThemeError{Name: name}
	}

	cfg := wheel.DefaultConfig(th.SegmentCount())
	cfg.SpinDuration = a.SpinDuration
	cfg.SettleDuration = a.SettleDuration
	cfg.Table = th.Table()
	cfg.Logger = a.logger
	cfg.OnComplete = a.onSpinComplete

	m, err := wheel.New(cfg)
	if err != nil {
		return err
	}

	a.mu.Lock()
	old := a.machine
	a.machine = m
	a.active = name
	a.pending = nil
	a.mu.Unlock()

	if old != nil {
		old.Close()
	}
	return nil
}

// onSpinComplete persists the finished spin. Runs on the machine's timer
// path, outside the machine lock.
func (a *App) onSpinComplete(index int) {
	a.mu.Lock()
	spin := a.pending
	a.pending = nil
	a.mu.Unlock()

	if spin == nil || a.db == nil {
		return
	}
	if spin.OutcomeIndex != index {
		a.logger.Printf("spin_record_dropped want_index=%d got_index=%d", spin.OutcomeIndex, index)
		return
	}

	if err := a.db.SaveSpin(spin); err != nil {
		a.logger.Printf("spin_record_failed id=%s err=%v", spin.ID, err)
	}
}

// UnknownThemeError reports a theme name with no loaded theme.
type UnknownThemeError struct {
	Name string
}

func (e *UnknownThemeError) Error() string {
	return "unknown theme: " + e.Name
}
