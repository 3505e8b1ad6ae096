package history

import (
	"context"
	"time"

	"codeberg.org/mutker/vitalscan/internal/wellness"
)

// Recorder stores finished scan sessions.
type Recorder interface {
	Record(ctx context.Context, rec *Record) error
	List(ctx context.Context, limit int) ([]Record, error)
	Close() error
}

// Repository defines the interface for history storage
type Repository interface {
	Store(rec *Record) error
	Recent(ctx context.Context, limit int) ([]Record, error)
	Close() error
}

// Record is one finished session. Metrics is nil unless the scan completed.
type Record struct {
	SessionID  string            `json:"session_id"`
	Outcome    string            `json:"outcome"`
	Progress   float64           `json:"progress"`
	ErrorCode  string            `json:"error_code,omitempty"`
	FinishedAt time.Time         `json:"finished_at"`
	Age        int               `json:"age"`
	Gender     string            `json:"gender"`
	HeightCM   float64           `json:"height_cm"`
	WeightKG   float64           `json:"weight_kg"`
	Posture    string            `json:"posture"`
	Metrics    *wellness.Metrics `json:"metrics,omitempty"`
}
