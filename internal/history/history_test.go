package history_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/vitalscan/internal/errors"
	"codeberg.org/mutker/vitalscan/internal/history"
	"codeberg.org/mutker/vitalscan/internal/logger"
	"codeberg.org/mutker/vitalscan/internal/scan"
	"codeberg.org/mutker/vitalscan/internal/wellness"
)

func testConfig(t *testing.T) history.Config {
	t.Helper()
	dir := t.TempDir()
	return history.Config{
		Enabled:      true,
		DBPath:       filepath.Join(dir, "history.db"),
		BackupDir:    filepath.Join(dir, "backups"),
		BatchSize:    5,
		BatchTimeout: time.Hour,
	}
}

func testUser() wellness.UserDetails {
	return wellness.UserDetails{
		Name:     "Test",
		Age:      30,
		Gender:   wellness.Male,
		HeightCM: 170,
		WeightKG: 70,
		Posture:  wellness.Sitting,
	}
}

func TestDisabledUsesNoopRecorder(t *testing.T) {
	r, err := history.NewService(history.DefaultConfig(), logger.Nop())
	require.NoError(t, err)

	require.NoError(t, r.Record(context.Background(), &history.Record{SessionID: "x"}))
	records, err := r.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NoError(t, r.Close())
}

func TestConfigValidate(t *testing.T) {
	cfg := history.DefaultConfig()
	cfg.DBPath = ""
	assert.NoError(t, cfg.Validate(), "disabled history ignores storage settings")

	cfg.Enabled = true
	assert.True(t, errors.HasCode(cfg.Validate(), history.ErrInvalidDBPath))
}

func TestRecordAndList(t *testing.T) {
	r, err := history.NewService(testConfig(t), logger.Nop())
	require.NoError(t, err)
	defer r.Close()

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m := wellness.Metrics{BMI: wellness.BMI{Value: 24.2, Status: wellness.StatusNormal}}

	completed := history.FromEvent(scan.Event{
		Type:      scan.EventCompleted,
		SessionID: "a",
		State:     scan.StateCompleted,
		Time:      base,
		Progress:  100,
		Metrics:   &m,
	}, testUser())
	cancelled := history.FromEvent(scan.Event{
		Type:      scan.EventCancelled,
		SessionID: "b",
		State:     scan.StateCancelled,
		Time:      base.Add(time.Minute),
		Progress:  42.5,
	}, testUser())

	ctx := context.Background()
	require.NoError(t, r.Record(ctx, completed))
	require.NoError(t, r.Record(ctx, cancelled))

	records, err := r.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "b", records[0].SessionID)
	assert.Equal(t, "cancelled", records[0].Outcome)
	assert.Nil(t, records[0].Metrics)
	assert.InDelta(t, 42.5, records[0].Progress, 1e-9)

	assert.Equal(t, "a", records[1].SessionID)
	assert.True(t, base.Equal(records[1].FinishedAt))
	require.NotNil(t, records[1].Metrics)
	assert.Equal(t, 24.2, records[1].Metrics.BMI.Value)
	assert.Equal(t, "male", records[1].Gender)

	records, err = r.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestRecordRejectsEmptySession(t *testing.T) {
	r, err := history.NewService(testConfig(t), logger.Nop())
	require.NoError(t, err)
	defer r.Close()

	err = r.Record(context.Background(), &history.Record{})
	assert.True(t, errors.HasCode(err, history.ErrInvalidRecord))
}

func TestFromEventIgnoresNonTerminal(t *testing.T) {
	assert.Nil(t, history.FromEvent(scan.Event{Type: scan.EventProgress}, testUser()))
}

func TestCloseFlushesBufferedRecords(t *testing.T) {
	cfg := testConfig(t)

	r, err := history.NewService(cfg, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, r.Record(context.Background(), &history.Record{
		SessionID:  "buffered",
		Outcome:    "error",
		ErrorCode:  "capture_unavailable",
		FinishedAt: time.Now(),
		Gender:     "other",
		Posture:    "standing",
	}))
	require.NoError(t, r.Close())

	r, err = history.NewService(cfg, logger.Nop())
	require.NoError(t, err)
	defer r.Close()

	records, err := r.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "capture_unavailable", records[0].ErrorCode)
}

func TestSchemaMismatchBacksUpAndRecreates(t *testing.T) {
	cfg := testConfig(t)

	db, err := sql.Open("sqlite3", cfg.DBPath)
	require.NoError(t, err)
	_, err = db.Exec(`
		CREATE TABLE schema_versions (version INTEGER PRIMARY KEY, applied_at TEXT NOT NULL);
		INSERT INTO schema_versions VALUES (99, datetime('now'));`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	r, err := history.NewService(cfg, logger.Nop())
	require.NoError(t, err)
	defer r.Close()

	backups, err := os.ReadDir(cfg.BackupDir)
	require.NoError(t, err)
	assert.Len(t, backups, 1)

	records, err := r.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}
