// Command wheeld serves the prize wheel engine over HTTP for headless
// hosting: kiosk builds, web embeds, and load tests that do not want the
// desktop shell.
package main

import (
	"context"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spindriftlabs/prizewheel/internal/api"
	"github.com/spindriftlabs/prizewheel/internal/store"
	"github.com/spindriftlabs/prizewheel/internal/theme"
)

func main() {
	var (
		addr           = flag.String("addr", envOr("WHEELD_ADDR", "127.0.0.1:8077"), "listen address")
		dbPath         = flag.String("db", envOr("WHEELD_DB", "wheeld.db"), "spin history database path; empty disables history")
		themesDir      = flag.String("themes", envOr("WHEELD_THEMES", "themes"), "directory of theme YAML files")
		activeTheme    = flag.String("theme", os.Getenv("WHEELD_THEME"), "theme to activate at startup")
		spinDuration   = flag.Duration("spin-duration", 4*time.Second, "wall-clock length of one spin")
		settleDuration = flag.Duration("settle-duration", 0, "optional settle phase after the wheel reaches its target")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[WHEELD] ", log.LstdFlags)

	themes, err := theme.LoadDir(*themesDir)
	if err != nil {
		logger.Fatalf("theme load failed: %v", err)
	}

	var db store.DB
	if *dbPath != "" {
		sqlDB, err := store.NewSQLiteDB(*dbPath)
		if err != nil {
			logger.Fatalf("store open failed: %v", err)
		}
		if err := sqlDB.Migrate(); err != nil {
			logger.Fatalf("store migrate failed: %v", err)
		}
		defer sqlDB.Close()
		db = sqlDB
	}

	server, err := api.NewServer(db, themes, api.Options{
		SpinDuration:   *spinDuration,
		SettleDuration: *settleDuration,
		ActiveTheme:    *activeTheme,
		Logger:         logger,
	})
	if err != nil {
		logger.Fatalf("server init failed: %v", err)
	}
	defer server.Close()

	httpServer := &http.Server{
		Addr:         *addr,
		Handler:      server.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		logger.Fatalf("listen failed: %v", err)
	}
	logger.Printf("listening addr=%s themes=%s", *addr, *themesDir)

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(ln)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Printf("shutting down signal=%v", sig)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Fatalf("serve failed: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Printf("shutdown error: %v", err)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
