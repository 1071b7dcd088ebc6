package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// SQLiteDB implements the DB interface using SQLite.
type SQLiteDB struct {
	db *sql.DB
}

// NewSQLiteDB creates a new SQLite database connection.
func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	return &SQLiteDB{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// Migrate runs database migrations.
func (s *SQLiteDB) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS spins (
			id TEXT PRIMARY KEY,
			theme TEXT NOT NULL,
			segment_count INTEGER NOT NULL,
			seed INTEGER NOT NULL,
			seeded INTEGER NOT NULL DEFAULT 0,
			outcome_index INTEGER NOT NULL,
			outcome_label TEXT NOT NULL DEFAULT '',
			payout TEXT NOT NULL DEFAULT '0',
			full_spins INTEGER NOT NULL,
			target_rotation REAL NOT NULL,
			engine_version TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_spins_created_at ON spins(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_spins_theme ON spins(theme, created_at DESC)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// SaveSpin persists one completed spin, assigning an ID when missing.
// Writes retry briefly when another connection holds the database lock.
func (s *SQLiteDB) SaveSpin(spin *Spin) error {
	if spin.ID == "" {
		spin.ID = uuid.New().String()
	}
	if spin.CreatedAt.IsZero() {
		spin.CreatedAt = time.Now().UTC()
	}

	backoff := retry.WithMaxRetries(5, retry.NewFibonacci(10*time.Millisecond))
	err := retry.Do(context.Background(), backoff, func(ctx context.Context) error {
		_, err := s.db.Exec(`
			INSERT INTO spins (
				id, theme, segment_count, seed, seeded, outcome_index, outcome_label,
				payout, full_spins, target_rotation, engine_version, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			spin.ID, spin.Theme, spin.SegmentCount, int64(spin.Seed), spin.Seeded,
			spin.OutcomeIndex, spin.OutcomeLabel, spin.Payout.String(),
			spin.FullSpins, spin.TargetRotation, spin.EngineVersion, spin.CreatedAt,
		)
		if err != nil && isBusyError(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to save spin: %w", err)
	}
	return nil
}

// GetSpin fetches one spin by ID.
func (s *SQLiteDB) GetSpin(id string) (*Spin, error) {
	row := s.db.QueryRow(`
		SELECT id, theme, segment_count, seed, seeded, outcome_index, outcome_label,
		       payout, full_spins, target_rotation, engine_version, created_at
		FROM spins WHERE id = ?`, id)

	spin, err := scanSpin(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("spin %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get spin: %w", err)
	}
	return spin, nil
}

// ListSpins returns a page of spins, newest first, optionally filtered by
// theme.
func (s *SQLiteDB) ListSpins(query SpinsQuery) (*SpinsList, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.PerPage < 1 || query.PerPage > 200 {
		query.PerPage = 50
	}

	where := ""
	args := []any{}
	if query.Theme != "" {
		where = "WHERE theme = ?"
		args = append(args, query.Theme)
	}

	var total int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM spins "+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count spins: %w", err)
	}

	offset := (query.Page - 1) * query.PerPage
	rows, err := s.db.Query(fmt.Sprintf(`
		SELECT id, theme, segment_count, seed, seeded, outcome_index, outcome_label,
		       payout, full_spins, target_rotation, engine_version, created_at
		FROM spins %s
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`, where),
		append(args, query.PerPage, offset)...)
	if err != nil {
		return nil, fmt.Errorf("failed to list spins: %w", err)
	}
	defer rows.Close()

	spins := []Spin{}
	for rows.Next() {
		spin, err := scanSpin(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan spin: %w", err)
		}
		spins = append(spins, *spin)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read spins: %w", err)
	}

	return &SpinsList{
		Spins:      spins,
		TotalCount: total,
		Page:       query.Page,
		PerPage:    query.PerPage,
		TotalPages: int(math.Ceil(float64(total) / float64(query.PerPage))),
	}, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSpin(row scanner) (*Spin, error) {
	var spin Spin
	var seed int64
	var payout string

	err := row.Scan(
		&spin.ID, &spin.Theme, &spin.SegmentCount, &seed, &spin.Seeded, &spin.OutcomeIndex,
		&spin.OutcomeLabel, &payout, &spin.FullSpins, &spin.TargetRotation,
		&spin.EngineVersion, &spin.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	spin.Seed = uint32(seed)
	p, err := decimal.NewFromString(payout)
	if err != nil {
		return nil, fmt.Errorf("bad payout %q in row %s: %w", payout, spin.ID, err)
	}
	spin.Payout = p

	return &spin, nil
}

// isBusyError reports whether the error is SQLite's transient lock error.
func isBusyError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY")
}
