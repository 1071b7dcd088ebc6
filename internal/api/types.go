package api

import (
	"github.com/spindriftlabs/prizewheel/internal/store"
	"github.com/spindriftlabs/prizewheel/internal/wheel"
)

// EngineVersion identifies the spin engine build in responses and rows.
const EngineVersion = "1.2.0"

// EngineError represents a structured error response with context.
type EngineError struct {
	Type      string                 `json:"type"`
	Message   string                 `json:"message"`
	Context   map[string]interface{} `json:"context,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Timestamp string                 `json:"timestamp,omitempty"`
}

// Error implements the error interface.
func (e EngineError) Error() string {
	return e.Message
}

// Error types with proper categorization.
const (
	// Input validation errors
	ErrTypeInvalidTheme   = "invalid_theme"
	ErrTypeInvalidSegment = "invalid_segment"
	ErrTypeValidation     = "validation_error"

	// Spin-related errors
	ErrTypeSpinRejected = "spin_rejected"
	ErrTypeSpinNotFound = "spin_not_found"

	// System errors
	ErrTypeInternal = "internal_error"
)

// ErrorCategory represents error categories for monitoring.
type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "validation"
	CategorySpin       ErrorCategory = "spin"
	CategorySystem     ErrorCategory = "system"
)

// GetErrorCategory returns the category for an error type.
func GetErrorCategory(errType string) ErrorCategory {
	switch errType {
	case ErrTypeInvalidTheme, ErrTypeInvalidSegment, ErrTypeValidation:
		return CategoryValidation
	case ErrTypeSpinRejected, ErrTypeSpinNotFound:
		return CategorySpin
	default:
		return CategorySystem
	}
}

// SpinRequest starts a spin. All fields are optional: Index forces a
// segment, Seed makes the weighted draw replayable, Theme picks the wheel
// (defaults to the active theme).
type SpinRequest struct {
	Theme string  `json:"theme,omitempty"`
	Index *int    `json:"index,omitempty"`
	Seed  *uint32 `json:"seed,omitempty"`
}

// SpinResponse echoes the resolved selection and the planned rotation.
type SpinResponse struct {
	SpinID        string          `json:"spin_id"`
	Theme         string          `json:"theme"`
	Selection     wheel.Selection `json:"selection"`
	Plan          wheel.SpinPlan  `json:"plan"`
	Snapshot      wheel.Snapshot  `json:"snapshot"`
	EngineVersion string          `json:"engine_version"`
}

// StateResponse is the read-only session snapshot served to renderers.
type StateResponse struct {
	Theme         string         `json:"theme"`
	SegmentCount  int            `json:"segment_count"`
	Snapshot      wheel.Snapshot `json:"snapshot"`
	EngineVersion string         `json:"engine_version"`
}

// ThemeSummary describes one loadable wheel theme.
type ThemeSummary struct {
	Name         string   `json:"name"`
	SegmentCount int      `json:"segment_count"`
	Labels       []string `json:"labels"`
	Active       bool     `json:"active"`
}

// ThemesResponse lists the loaded themes.
type ThemesResponse struct {
	Themes        []ThemeSummary `json:"themes"`
	EngineVersion string         `json:"engine_version"`
}

// ReplayResponse re-runs a recorded spin's selection with its stored seed.
type ReplayResponse struct {
	Spin          store.Spin      `json:"spin"`
	Selection     wheel.Selection `json:"selection"`
	Match         bool            `json:"match"`
	EngineVersion string          `json:"engine_version"`
}
