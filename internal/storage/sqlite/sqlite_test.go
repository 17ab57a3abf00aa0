package sqlitestorage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/redtable/combat-tracker/internal/config"
	"github.com/redtable/combat-tracker/internal/database"
	"github.com/redtable/combat-tracker/internal/model"
	"github.com/redtable/combat-tracker/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ storage.Backend     = (*Backend)(nil)
	_ storage.HitRecorder = (*Backend)(nil)
)

func TestSaveSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.db")
	ctx := context.Background()

	b, err := New(config.SQLiteConfig{Path: path}, "Warehouse", nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())
	require.NoError(t, b.Save(ctx, []model.Record{{"id": "c1", "name": "Ganger", "init": 12}}))
	require.NoError(t, b.Close())

	reopened, err := New(config.SQLiteConfig{Path: path}, "Warehouse", nil)
	require.NoError(t, err)
	require.NoError(t, reopened.Init())
	defer reopened.Close()

	got, err := reopened.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Ganger", got[0].String("name"))
	assert.Equal(t, 12, got[0].IntOr("init", 0))
}

func TestDumpLoopAndFinalDump(t *testing.T) {
	dir := t.TempDir()
	dumpPath := filepath.Join(dir, "dump.db")
	ctx := context.Background()

	b, err := New(config.SQLiteConfig{
		Path:         filepath.Join(dir, "live.db"),
		DumpPath:     dumpPath,
		DumpInterval: 20 * time.Millisecond,
	}, "Warehouse", nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())

	require.NoError(t, b.Save(ctx, []model.Record{{"id": "c1", "name": "Ganger"}}))
	assert.Eventually(t, func() bool {
		_, err := os.Stat(dumpPath)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, b.Save(ctx, []model.Record{{"id": "c2", "name": "Boss"}}))
	require.NoError(t, b.Close())

	db, err := database.OpenSqlite(dumpPath)
	require.NoError(t, err)
	defer database.Close(db)

	var rows []model.Combatant
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "Boss", rows[0].Name)
}
