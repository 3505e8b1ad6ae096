package scan

import (
	"time"

	"codeberg.org/mutker/vitalscan/internal/errors"
	"codeberg.org/mutker/vitalscan/internal/quality"
	"codeberg.org/mutker/vitalscan/internal/wellness"
)

type State string

const (
	StateIdle         State = "idle"
	StateInitializing State = "initializing"
	StateReady        State = "ready"
	StateScanning     State = "scanning"
	StateCompleted    State = "completed"
	StateCancelled    State = "cancelled"
	StateError        State = "error"
)

// Terminal reports whether the session can no longer change state.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateCancelled, StateError:
		return true
	default:
		return false
	}
}

// Session is a snapshot of one scan attempt.
type Session struct {
	ID          string            `json:"id"`
	State       State             `json:"state"`
	Progress    float64           `json:"progress"`
	Paused      bool              `json:"paused"`
	TipIndex    int               `json:"tip_index"`
	Tip         string            `json:"tip,omitempty"`
	Elapsed     time.Duration     `json:"elapsed"`
	Quality     *quality.Analysis `json:"quality,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	ScanStarted time.Time         `json:"scan_started,omitempty"`
	EndedAt     time.Time         `json:"ended_at,omitempty"`
	Metrics     *wellness.Metrics `json:"metrics,omitempty"`
	ErrorCode   errors.ErrorCode  `json:"error_code,omitempty"`
	Error       string            `json:"error,omitempty"`
	Recoverable bool              `json:"recoverable,omitempty"`
}

type EventType string

const (
	EventInitializing EventType = "initializing"
	EventQuality      EventType = "quality"
	EventReady        EventType = "ready"
	EventScanStarted  EventType = "scan_started"
	EventProgress     EventType = "progress"
	EventTip          EventType = "tip"
	EventCompleted    EventType = "completed"
	EventCancelled    EventType = "cancelled"
	EventError        EventType = "error"
)

// Event is emitted on every transition and tick that changes what the user
// should see. Only the fields relevant to Type are set.
type Event struct {
	Type        EventType         `json:"type"`
	SessionID   string            `json:"session_id"`
	State       State             `json:"state"`
	Time        time.Time         `json:"time"`
	Progress    float64           `json:"progress"`
	Paused      bool              `json:"paused"`
	Message     quality.Message   `json:"message,omitempty"`
	Tip         string            `json:"tip,omitempty"`
	Quality     *quality.Analysis `json:"quality,omitempty"`
	Metrics     *wellness.Metrics `json:"metrics,omitempty"`
	ErrorCode   errors.ErrorCode  `json:"error_code,omitempty"`
	Error       string            `json:"error,omitempty"`
	Recoverable bool              `json:"recoverable,omitempty"`
}
