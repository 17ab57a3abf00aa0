package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/redtable/combat-tracker/internal/config"
	"github.com/redtable/combat-tracker/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestPostgresDSN(t *testing.T) {
	dsn := PostgresDSN(config.DBConfig{
		Host: "db", Port: "5432", Username: "gm", Password: "pw", Database: "combat_tracker",
	})
	assert.Equal(t, "host=db port=5432 user=gm password=pw dbname=combat_tracker sslmode=disable", dsn)
}

func TestOpenSqlite_FileMigrateAndDump(t *testing.T) {
	dir := t.TempDir()
	db, err := OpenSqlite(filepath.Join(dir, "live.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	require.NoError(t, Migrate(db))
	assert.True(t, db.Migrator().HasTable(&model.Encounter{}))
	assert.True(t, db.Migrator().HasTable(&model.Combatant{}))

	row := model.Combatant{
		Position:    0,
		CombatantID: "c1",
		Kind:        "mook",
		Name:        "Ganger",
		Record:      datatypes.JSONMap{"name": "Ganger", "init": 14},
	}
	require.NoError(t, db.Create(&row).Error)

	dump := filepath.Join(dir, "dump.db")
	require.NoError(t, os.WriteFile(dump, []byte("stale"), 0644))
	require.NoError(t, DumpSqliteToDisk(db, dump))

	restored, err := OpenSqlite(dump)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(restored) })

	var got []model.Combatant
	require.NoError(t, restored.Find(&got).Error)
	require.Len(t, got, 1)
	assert.Equal(t, "Ganger", got[0].Name)
}

func TestDumpSqliteToDisk_RequiresPath(t *testing.T) {
	db, err := OpenSqlite(filepath.Join(t.TempDir(), "x.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	assert.Error(t, DumpSqliteToDisk(db, ""))
}
