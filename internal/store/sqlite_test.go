package store

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

func newTestDB(t *testing.T) *SQLiteDB {
	t.Helper()
	db, err := NewSQLiteDB(filepath.Join(t.TempDir(), "spins.db"))
	if err != nil {
		t.Fatalf("NewSQLiteDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	return db
}

func TestSaveAndGetSpin(t *testing.T) {
	db := newTestDB(t)

	spin := &Spin{
		Theme:          "classic",
		SegmentCount:   8,
		Seed:           0xCAFEBABE,
		Seeded:         true,
		OutcomeIndex:   3,
		OutcomeLabel:   "Double",
		Payout:         decimal.RequireFromString("2.50"),
		FullSpins:      5,
		TargetRotation: 2137.5,
		EngineVersion:  "test",
	}

	if err := db.SaveSpin(spin); err != nil {
		t.Fatalf("SaveSpin failed: %v", err)
	}
	if spin.ID == "" {
		t.Fatal("SaveSpin did not assign an ID")
	}

	got, err := db.GetSpin(spin.ID)
	if err != nil {
		t.Fatalf("GetSpin failed: %v", err)
	}

	if got.Theme != spin.Theme || got.Seed != spin.Seed || !got.Seeded || got.OutcomeIndex != spin.OutcomeIndex {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if !got.Payout.Equal(spin.Payout) {
		t.Errorf("payout %s, want %s", got.Payout, spin.Payout)
	}
	if got.TargetRotation != spin.TargetRotation {
		t.Errorf("target rotation %g, want %g", got.TargetRotation, spin.TargetRotation)
	}
}

func TestGetSpinMissing(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.GetSpin("no-such-id"); err == nil {
		t.Error("expected error for missing spin")
	}
}

func TestListSpinsPagination(t *testing.T) {
	db := newTestDB(t)

	for i := 0; i < 25; i++ {
		theme := "classic"
		if i%5 == 0 {
			theme = "mini"
		}
		spin := &Spin{
			Theme:          theme,
			SegmentCount:   8,
			Seed:           uint32(i),
			OutcomeIndex:   i % 8,
			FullSpins:      4,
			TargetRotation: float64(i) * 360,
			EngineVersion:  "test",
		}
		if err := db.SaveSpin(spin); err != nil {
			t.Fatalf("SaveSpin %d failed: %v", i, err)
		}
	}

	page, err := db.ListSpins(SpinsQuery{Page: 1, PerPage: 10})
	if err != nil {
		t.Fatalf("ListSpins failed: %v", err)
	}
	if page.TotalCount != 25 || len(page.Spins) != 10 || page.TotalPages != 3 {
		t.Errorf("page 1: total=%d len=%d pages=%d", page.TotalCount, len(page.Spins), page.TotalPages)
	}

	last, err := db.ListSpins(SpinsQuery{Page: 3, PerPage: 10})
	if err != nil {
		t.Fatalf("ListSpins failed: %v", err)
	}
	if len(last.Spins) != 5 {
		t.Errorf("page 3: got %d spins, want 5", len(last.Spins))
	}

	mini, err := db.ListSpins(SpinsQuery{Theme: "mini", Page: 1, PerPage: 10})
	if err != nil {
		t.Fatalf("ListSpins filtered failed: %v", err)
	}
	if mini.TotalCount != 5 {
		t.Errorf("mini theme total = %d, want 5", mini.TotalCount)
	}
	for _, s := range mini.Spins {
		if s.Theme != "mini" {
			t.Errorf("filter leaked theme %q", s.Theme)
		}
	}
}

func TestListSpinsDefaults(t *testing.T) {
	db := newTestDB(t)

	page, err := db.ListSpins(SpinsQuery{Page: -3, PerPage: 10000})
	if err != nil {
		t.Fatalf("ListSpins failed: %v", err)
	}
	if page.Page != 1 || page.PerPage != 50 {
		t.Errorf("defaults not applied: page=%d perPage=%d", page.Page, page.PerPage)
	}
}

func TestMigrateIdempotent(t *testing.T) {
	db := newTestDB(t)
	if err := db.Migrate(); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
}
