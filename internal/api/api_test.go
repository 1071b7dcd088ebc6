package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/spindriftlabs/prizewheel/internal/store"
	"github.com/spindriftlabs/prizewheel/internal/theme"
)

// mockDB is a simple in-memory implementation of store.DB for testing.
// Saved rows arrive on the machine's timer goroutine, so access is locked.
type mockDB struct {
	mu    sync.Mutex
	spins map[string]*store.Spin
}

func newMockDB() *mockDB {
	return &mockDB{spins: make(map[string]*store.Spin)}
}

func (m *mockDB) Close() error   { return nil }
func (m *mockDB) Migrate() error { return nil }

func (m *mockDB) SaveSpin(spin *store.Spin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *spin
	m.spins[spin.ID] = &cp
	return nil
}

func (m *mockDB) GetSpin(id string) (*store.Spin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	spin, ok := m.spins[id]
	if !ok {
		return nil, fmt.Errorf("spin not found: %s", id)
	}
	cp := *spin
	return &cp, nil
}

func (m *mockDB) ListSpins(q store.SpinsQuery) (*store.SpinsList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := &store.SpinsList{Page: 1, PerPage: 50}
	for _, spin := range m.spins {
		if q.Theme != "" && spin.Theme != q.Theme {
			continue
		}
		out.Spins = append(out.Spins, *spin)
	}
	out.TotalCount = len(out.Spins)
	out.TotalPages = 1
	return out, nil
}

const testThemeYAML = `name: classic
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

func testThemes(t *testing.T) map[string]*theme.Theme {
	t.Helper()
	th, err := theme.Parse([]byte(testThemeYAML))
	if err != nil {
		t.Fatalf("parse test theme: %v", err)
	}
	return map[string]*theme.Theme{th.Name: th}
}

func newTestServer(t *testing.T, db store.DB) *Server {
	t.Helper()
	server, err := NewServer(db, testThemes(t), Options{
		SpinDuration: 5 * time.Millisecond,
		Logger:       log.New(io.Discard, "", 0),
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(server.Close)
	return server
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(t, newMockDB())

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	server.Routes().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response HealthCheckResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.Status != HealthStatusHealthy {
		t.Errorf("Expected healthy status, got %s", response.Status)
	}
}

func TestHealthDegradedWithoutDB(t *testing.T) {
	server := newTestServer(t, nil)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	server.Routes().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response HealthCheckResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.Status != HealthStatusDegraded {
		t.Errorf("Expected degraded status without history store, got %s", response.Status)
	}
}

func TestStateEndpoint(t *testing.T) {
	server := newTestServer(t, newMockDB())

	req := httptest.NewRequest("GET", "/api/v1/state", nil)
	w := httptest.NewRecorder()

	server.Routes().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response StateResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.Theme != "classic" {
		t.Errorf("Expected active theme classic, got %q", response.Theme)
	}
	if response.SegmentCount != 4 {
		t.Errorf("Expected 4 segments, got %d", response.SegmentCount)
	}
	if response.Snapshot.IsSpinning {
		t.Error("Fresh server should not be spinning")
	}
	if response.EngineVersion == "" {
		t.Error("Expected engine version in response")
	}
}

func TestThemesEndpoint(t *testing.T) {
	server := newTestServer(t, newMockDB())

	req := httptest.NewRequest("GET", "/api/v1/themes", nil)
	w := httptest.NewRecorder()

	server.Routes().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response ThemesResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(response.Themes) != 1 {
		t.Fatalf("Expected one theme, got %d", len(response.Themes))
	}
	if !response.Themes[0].Active {
		t.Error("Expected the only theme to be active")
	}
	if len(response.Themes[0].Labels) != 4 {
		t.Errorf("Expected 4 labels, got %d", len(response.Themes[0].Labels))
	}
}

func TestActivateUnknownTheme(t *testing.T) {
	server := newTestServer(t, newMockDB())

	req := httptest.NewRequest("POST", "/api/v1/themes/no-such-theme/activate", nil)
	w := httptest.NewRecorder()

	server.Routes().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
	if got := w.Header().Get("X-Error-Type"); got != ErrTypeInvalidTheme {
		t.Errorf("Expected error type %q, got %q", ErrTypeInvalidTheme, got)
	}
}

func TestSpinEndpoint(t *testing.T) {
	db := newMockDB()
	server := newTestServer(t, db)

	req := httptest.NewRequest("POST", "/api/v1/spin", bytes.NewReader([]byte("{}")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	server.Routes().ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d: %s", w.Code, w.Body.String())
	}

	var response SpinResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.SpinID == "" {
		t.Error("Expected a spin id")
	}
	if response.Selection.Index < 0 || response.Selection.Index >= 4 {
		t.Errorf("Selection index %d out of range", response.Selection.Index)
	}
	if !response.Snapshot.IsSpinning {
		t.Error("Expected snapshot to report spinning")
	}
	if response.Plan.FullSpins < 4 {
		t.Errorf("Expected at least 4 full spins, got %d", response.Plan.FullSpins)
	}

	// Wait for the short spin to finish and persist.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, err := db.GetSpin(response.SpinID); err == nil {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("Spin was never persisted")
}

func TestSpinEmptyBody(t *testing.T) {
	server := newTestServer(t, newMockDB())

	req := httptest.NewRequest("POST", "/api/v1/spin", nil)
	w := httptest.NewRecorder()

	server.Routes().ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Errorf("Expected status 202 for empty body, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSpinConflictWhileSpinning(t *testing.T) {
	server, err := NewServer(newMockDB(), testThemes(t), Options{
		SpinDuration: time.Second,
		Logger:       log.New(io.Discard, "", 0),
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	defer server.Close()

	routes := server.Routes()

	first := httptest.NewRecorder()
	routes.ServeHTTP(first, httptest.NewRequest("POST", "/api/v1/spin", nil))
	if first.Code != http.StatusAccepted {
		t.Fatalf("First spin failed: %d", first.Code)
	}

	second := httptest.NewRecorder()
	routes.ServeHTTP(second, httptest.NewRequest("POST", "/api/v1/spin", nil))
	if second.Code != http.StatusConflict {
		t.Errorf("Expected status 409 for overlapping spin, got %d", second.Code)
	}
	if got := second.Header().Get("X-Error-Type"); got != ErrTypeSpinRejected {
		t.Errorf("Expected error type %q, got %q", ErrTypeSpinRejected, got)
	}
}

func TestSpinForcedIndex(t *testing.T) {
	server := newTestServer(t, newMockDB())

	idx := 2
	body, _ := json.Marshal(SpinRequest{Index: &idx})
	req := httptest.NewRequest("POST", "/api/v1/spin", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	server.Routes().ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d: %s", w.Code, w.Body.String())
	}

	var response SpinResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.Selection.Index != idx {
		t.Errorf("Expected forced index %d, got %d", idx, response.Selection.Index)
	}
}

func TestSpinForcedIndexOutOfRange(t *testing.T) {
	server := newTestServer(t, newMockDB())

	idx := 9
	body, _ := json.Marshal(SpinRequest{Index: &idx})
	req := httptest.NewRequest("POST", "/api/v1/spin", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	server.Routes().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
	if got := w.Header().Get("X-Error-Type"); got != ErrTypeInvalidSegment {
		t.Errorf("Expected error type %q, got %q", ErrTypeInvalidSegment, got)
	}
}

func TestSpinMalformedJSON(t *testing.T) {
	server := newTestServer(t, newMockDB())

	req := httptest.NewRequest("POST", "/api/v1/spin", bytes.NewReader([]byte("not json")))
	w := httptest.NewRecorder()

	server.Routes().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestSeededSpinReplayMatches(t *testing.T) {
	db := newMockDB()
	server := newTestServer(t, db)
	routes := server.Routes()

	seed := uint32(0xDEADBEEF)
	body, _ := json.Marshal(SpinRequest{Seed: &seed})
	w := httptest.NewRecorder()
	routes.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/spin", bytes.NewReader(body)))
	if w.Code != http.StatusAccepted {
		t.Fatalf("Spin failed: %d: %s", w.Code, w.Body.String())
	}

	var spinResp SpinResponse
	if err := json.NewDecoder(w.Body).Decode(&spinResp); err != nil {
		t.Fatalf("Failed to decode spin response: %v", err)
	}
	if spinResp.Selection.SeedUsed != seed {
		t.Fatalf("Expected seed %d echoed, got %d", seed, spinResp.Selection.SeedUsed)
	}

	// Wait for persistence.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, err := db.GetSpin(spinResp.SpinID); err == nil {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}

	rw := httptest.NewRecorder()
	routes.ServeHTTP(rw, httptest.NewRequest("GET", "/api/v1/spins/"+spinResp.SpinID+"/replay", nil))
	if rw.Code != http.StatusOK {
		t.Fatalf("Replay failed: %d: %s", rw.Code, rw.Body.String())
	}

	var replay ReplayResponse
	if err := json.NewDecoder(rw.Body).Decode(&replay); err != nil {
		t.Fatalf("Failed to decode replay response: %v", err)
	}
	if !replay.Match {
		t.Error("Expected replay to match the recorded outcome")
	}
	if replay.Selection.Index != spinResp.Selection.Index {
		t.Errorf("Replay index %d does not match original %d", replay.Selection.Index, spinResp.Selection.Index)
	}
}

func TestReplayRejectsForcedSpin(t *testing.T) {
	db := newMockDB()
	server := newTestServer(t, db)
	routes := server.Routes()

	idx := 1
	body, _ := json.Marshal(SpinRequest{Index: &idx})
	w := httptest.NewRecorder()
	routes.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/spin", bytes.NewReader(body)))
	if w.Code != http.StatusAccepted {
		t.Fatalf("Spin failed: %d", w.Code)
	}
	var spinResp SpinResponse
	if err := json.NewDecoder(w.Body).Decode(&spinResp); err != nil {
		t.Fatalf("Failed to decode spin response: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, err := db.GetSpin(spinResp.SpinID); err == nil {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}

	rw := httptest.NewRecorder()
	routes.ServeHTTP(rw, httptest.NewRequest("GET", "/api/v1/spins/"+spinResp.SpinID+"/replay", nil))
	if rw.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for forced-index replay, got %d", rw.Code)
	}
}

func TestReplayUnknownSpin(t *testing.T) {
	server := newTestServer(t, newMockDB())

	req := httptest.NewRequest("GET", "/api/v1/spins/no-such-id/replay", nil)
	w := httptest.NewRecorder()

	server.Routes().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestResetEndpoint(t *testing.T) {
	server, err := NewServer(newMockDB(), testThemes(t), Options{
		SpinDuration: time.Second,
		Logger:       log.New(io.Discard, "", 0),
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	defer server.Close()

	routes := server.Routes()

	w := httptest.NewRecorder()
	routes.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/spin", nil))
	if w.Code != http.StatusAccepted {
		t.Fatalf("Spin failed: %d", w.Code)
	}

	rw := httptest.NewRecorder()
	routes.ServeHTTP(rw, httptest.NewRequest("POST", "/api/v1/reset", nil))
	if rw.Code != http.StatusOK {
		t.Fatalf("Reset failed: %d: %s", rw.Code, rw.Body.String())
	}

	var state StateResponse
	if err := json.NewDecoder(rw.Body).Decode(&state); err != nil {
		t.Fatalf("Failed to decode state response: %v", err)
	}
	if state.Snapshot.IsSpinning {
		t.Error("Expected wheel to be idle after reset")
	}
}

func TestListSpinsWithoutDB(t *testing.T) {
	server := newTestServer(t, nil)

	req := httptest.NewRequest("GET", "/api/v1/spins", nil)
	w := httptest.NewRecorder()

	server.Routes().ServeHTTP(w, req)

	if w.Code != http.StatusNotImplemented {
		t.Errorf("Expected status 501 without history store, got %d", w.Code)
	}
}
