// Package api exposes the spin engine over HTTP for headless hosting: a
// browser renderer polls the state endpoint every animation tick and posts
// spin/reset commands.
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/spindriftlabs/prizewheel/internal/store"
	"github.com/spindriftlabs/prizewheel/internal/theme"
	"github.com/spindriftlabs/prizewheel/internal/wheel"
)

// Options configures a Server.
type Options struct {
	// SpinDuration and SettleDuration are passed through to every machine
	// the server builds. SettleDuration of zero selects the three-state
	// variant.
	SpinDuration   time.Duration
	SettleDuration time.Duration

	// ActiveTheme names the theme to start with. Defaults to the first
	// theme name in sorted order.
	ActiveTheme string

	Logger *log.Logger
}

// Server handles HTTP requests. It owns exactly one spin machine at a
// time; activating a theme with a different segment count rebuilds it.
type Server struct {
	mu      sync.Mutex
	machine *wheel.Machine
	themes  map[string]*theme.Theme
	active  string
	// pending is the store row for the in-flight spin, written out by the
	// machine's completion callback.
	pending *store.Spin

	db           store.DB
	opts         Options
	errorHandler *ErrorHandler
	logger       *log.Logger
	startTime    time.Time
}

// NewServer creates a new API server around a theme set and an optional
// spin-history store.
func NewServer(db store.DB, themes map[string]*theme.Theme, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stdout, "[API] ", log.LstdFlags|log.Lshortfile)
	}
	if opts.SpinDuration <= 0 {
		opts.SpinDuration = 4 * time.Second
	}

	active := opts.ActiveTheme
	if active == "" {
		active = theme.Names(themes)[0]
	}

	s := &Server{
		themes:       themes,
		db:           db,
		opts:         opts,
		errorHandler: NewErrorHandler(logger),
		logger:       logger,
		startTime:    time.Now(),
	}

	if err := s.activateTheme(active); err != nil {
		return nil, err
	}

	logger.Printf("server_started themes=%d active=%s spin_duration=%v",
		len(themes), active, opts.SpinDuration)

	return s, nil
}

// activateTheme builds a fresh machine for the named theme. The previous
// machine, if any, is closed so its timer can never fire afterward.
func (s *Server) activateTheme(name string) error {
	th, ok := s.themes[name]
	if !ok {
		return EngineError{Type: ErrTypeInvalidTheme, Message: "unknown theme: " + name}
	}

	cfg := wheel.DefaultConfig(th.SegmentCount())
	cfg.SpinDuration = s.opts.SpinDuration
	cfg.SettleDuration = s.opts.SettleDuration
	cfg.Table = th.Table()
	cfg.Logger = s.logger
	cfg.OnComplete = s.onSpinComplete

	m, err := wheel.New(cfg)
	if err != nil {
		return err
	}

	s.mu.Lock()
	old := s.machine
	s.machine = m
	s.active = name
	s.pending = nil
	s.mu.Unlock()

	if old != nil {
		old.Close()
	}
	return nil
}

// onSpinComplete persists the finished spin. Runs on the machine's timer
// path, outside the machine lock.
func (s *Server) onSpinComplete(index int) {
	s.mu.Lock()
	spin := s.pending
	s.pending = nil
	s.mu.Unlock()

	if spin == nil || s.db == nil {
		return
	}
	if spin.OutcomeIndex != index {
		// A reset raced the completion; the recorded intent no longer
		// matches, drop it.
		s.logger.Printf("spin_record_dropped want_index=%d got_index=%d", spin.OutcomeIndex, index)
		return
	}

	if err := s.db.SaveSpin(spin); err != nil {
		s.logger.Printf("spin_record_failed id=%s err=%v", spin.ID, err)
	}
}

// Close tears down the active machine.
func (s *Server) Close() {
	s.mu.Lock()
	m := s.machine
	s.mu.Unlock()
	if m != nil {
		m.Close()
	}
}

// Routes sets up the HTTP routes with proper middleware.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.errorHandler.RecoveryHandler)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealthCheck)
	r.Get("/health/ready", s.handleReadiness)
	r.Get("/health/live", s.handleLiveness)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/spin", s.handleSpin)
		r.Post("/reset", s.handleReset)
		r.Get("/state", s.handleState)
		r.Get("/themes", s.handleListThemes)
		r.Post("/themes/{name}/activate", s.handleActivateTheme)
		r.Get("/spins", s.handleListSpins)
		r.Get("/spins/{id}/replay", s.handleReplaySpin)
	})

	return r
}

// writeJSON writes a JSON response with proper headers.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Engine-Version", EngineVersion)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
