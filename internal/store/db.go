// Package store persists completed spins so any round can be audited and
// replayed later against its recorded seed.
package store

import (
	"time"

	"github.com/shopspring/decimal"
)

// DB is the spin-history interface.
type DB interface {
	Close() error
	Migrate() error
	SaveSpin(spin *Spin) error
	GetSpin(id string) (*Spin, error)
	ListSpins(query SpinsQuery) (*SpinsList, error)
}

// Spin is one completed spin at rest.
type Spin struct {
	ID             string          `json:"id" db:"id"`
	Theme          string          `json:"theme" db:"theme"`
	SegmentCount   int             `json:"segment_count" db:"segment_count"`
	// Seed is meaningful only when Seeded is true; spins started with a
	// forced outcome index never consult the selector.
	Seed           uint32          `json:"seed" db:"seed"`
	Seeded         bool            `json:"seeded" db:"seeded"`
	OutcomeIndex   int             `json:"outcome_index" db:"outcome_index"`
	OutcomeLabel   string          `json:"outcome_label" db:"outcome_label"`
	Payout         decimal.Decimal `json:"payout" db:"payout"`
	FullSpins      int             `json:"full_spins" db:"full_spins"`
	TargetRotation float64         `json:"target_rotation" db:"target_rotation"`
	EngineVersion  string          `json:"engine_version" db:"engine_version"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// SpinsQuery represents query parameters for listing spins.
type SpinsQuery struct {
	Theme   string `json:"theme,omitempty"`
	Page    int    `json:"page"`
	PerPage int    `json:"perPage"`
}

// SpinsList represents a paginated spins response.
type SpinsList struct {
	Spins      []Spin `json:"spins"`
	TotalCount int    `json:"totalCount"`
	Page       int    `json:"page"`
	PerPage    int    `json:"perPage"`
	TotalPages int    `json:"totalPages"`
}
