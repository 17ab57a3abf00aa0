package postgres

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/redtable/combat-tracker/internal/database"
	"github.com/redtable/combat-tracker/internal/model"
	"github.com/redtable/combat-tracker/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	_ storage.Backend     = (*Backend)(nil)
	_ storage.HitRecorder = (*Backend)(nil)
)

// newTestBackend injects a SQLite database in place of Postgres.
func newTestBackend(t *testing.T, flush time.Duration) (*Backend, *gorm.DB) {
	t.Helper()
	db, err := database.OpenSqlite(filepath.Join(t.TempDir(), "pg.db"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	b := New(Dependencies{DB: db, Encounter: "Warehouse", FlushInterval: flush})
	require.NoError(t, b.Init())
	return b, db
}

func TestNew_DefaultFlushInterval(t *testing.T) {
	b := New(Dependencies{})
	assert.Equal(t, defaultFlushInterval, b.deps.FlushInterval)
	assert.NotNil(t, b.deps.Logger)
}

func TestSaveLoad(t *testing.T) {
	b, _ := newTestBackend(t, time.Hour)
	defer func() { require.NoError(t, b.Close()) }()
	ctx := context.Background()

	require.NoError(t, b.Save(ctx, []model.Record{{"id": "c1", "name": "Ganger"}, {"id": "c2", "name": "Boss"}}))

	got, err := b.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Boss", got[1].String("name"))
}

func TestRecordHit_QueuedUntilFlush(t *testing.T) {
	b, db := newTestBackend(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, b.RecordHit(ctx, model.HitEvent{CombatantID: "c1", Applied: 5}))
	require.NoError(t, b.RecordHit(ctx, model.HitEvent{CombatantID: "c1", Applied: 7}))
	assert.Equal(t, 2, b.PendingHits())

	var count int64
	require.NoError(t, db.Model(&model.HitEvent{}).Count(&count).Error)
	assert.Zero(t, count)

	require.NoError(t, b.Close())
	assert.Zero(t, b.PendingHits())
	require.NoError(t, db.Model(&model.HitEvent{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestHitWriter_FlushesPeriodically(t *testing.T) {
	b, db := newTestBackend(t, 10*time.Millisecond)
	defer func() { require.NoError(t, b.Close()) }()

	require.NoError(t, b.RecordHit(context.Background(), model.HitEvent{CombatantID: "c9", Applied: 3}))

	assert.Eventually(t, func() bool {
		var count int64
		if err := db.Model(&model.HitEvent{}).Count(&count).Error; err != nil {
			return false
		}
		return count == 1
	}, 2*time.Second, 10*time.Millisecond)
}
