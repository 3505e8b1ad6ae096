package history

import (
	"context"
	"time"

	"codeberg.org/mutker/vitalscan/internal/errors"
	"codeberg.org/mutker/vitalscan/internal/logger"
	"codeberg.org/mutker/vitalscan/internal/scan"
	"codeberg.org/mutker/vitalscan/internal/wellness"
)

const recordTimeout = 5 * time.Second

type service struct {
	repo Repository
	cfg  Config
	log  logger.Logger
}

// No-op implementation
type noopRecorder struct{}

func NewService(cfg Config, log logger.Logger) (Recorder, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	// If history is disabled, return a no-op recorder
	if !cfg.Enabled {
		log.Debug().Msg("Scan history disabled, using no-op recorder")
		return &noopRecorder{}, nil
	}

	repo, err := NewRepository(cfg, log)
	if err != nil {
		log.Debug().Err(err).Msg("Failed to create history repository")
		return nil, err
	}

	log.Debug().
		Str("db_path", cfg.DBPath).
		Bool("enabled", cfg.Enabled).
		Msg("History service initialized successfully")

	return &service{
		repo: repo,
		cfg:  cfg,
		log:  log,
	}, nil
}

func (s *service) Record(ctx context.Context, rec *Record) error {
	errFactory := errors.New()

	if rec == nil || rec.SessionID == "" {
		return errFactory.New(ErrInvalidRecord)
	}

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationTimeout, ctx.Err())
	default:
		if err := s.repo.Store(rec); err != nil {
			return errFactory.Wrap(ErrRecord, err)
		}
	}

	return nil
}

func (s *service) List(ctx context.Context, limit int) ([]Record, error) {
	records, err := s.repo.Recent(ctx, limit)
	if err != nil {
		return nil, errors.New().Wrap(ErrStorageAccess, err)
	}
	return records, nil
}

func (s *service) Close() error {
	if err := s.repo.Close(); err != nil {
		return errors.New().Wrap(ErrStorageClose, err)
	}
	return nil
}

// No-op implementation
func (*noopRecorder) Record(context.Context, *Record) error {
	return nil
}

func (*noopRecorder) List(context.Context, int) ([]Record, error) {
	return []Record{}, nil
}

func (*noopRecorder) Close() error {
	return nil
}

// FromEvent builds the record for a terminal event. It returns nil for any
// other event type.
func FromEvent(ev scan.Event, user wellness.UserDetails) *Record {
	switch ev.Type {
	case scan.EventCompleted, scan.EventCancelled, scan.EventError:
	default:
		return nil
	}

	return &Record{
		SessionID:  ev.SessionID,
		Outcome:    string(ev.State),
		Progress:   ev.Progress,
		ErrorCode:  string(ev.ErrorCode),
		FinishedAt: ev.Time,
		Age:        user.Age,
		Gender:     string(user.Gender),
		HeightCM:   user.HeightCM,
		WeightKG:   user.WeightKG,
		Posture:    string(user.Posture),
		Metrics:    ev.Metrics,
	}
}

// Attach records every session that ctrl finishes. The returned function
// detaches the recorder.
func Attach(ctrl *scan.Controller, user wellness.UserDetails, r Recorder, log logger.Logger) func() {
	return ctrl.Subscribe(func(ev scan.Event) {
		rec := FromEvent(ev, user)
		if rec == nil {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()

		if err := r.Record(ctx, rec); err != nil {
			log.Warn().Err(err).Str("session_id", rec.SessionID).Msg("Failed to record scan history")
		}
	})
}
