// internal/storage/memory/memory_test.go
package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/redtable/combat-tracker/internal/config"
	"github.com/redtable/combat-tracker/internal/model"
	"github.com/redtable/combat-tracker/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ storage.Backend     = (*Backend)(nil)
	_ storage.HitRecorder = (*Backend)(nil)
	_ storage.Exporter    = (*Backend)(nil)
)

func sampleRecords() []model.Record {
	return []model.Record{
		{"id": "c1", "type": "mook", "name": "Ganger", "init": 18, "notifications": []string{}},
		{"id": "c2", "type": "robot", "name": "Loader", "init": 9, "notifications": []string{"Torso disabled"}},
	}
}

func TestLoad_EmptyBeforeSave(t *testing.T) {
	b := New(config.MemoryConfig{}, "Warehouse")
	require.NoError(t, b.Init())
	defer b.Close()

	got, err := b.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Empty(t, b.ExportedFilePath())
}

func TestSaveLoad_RoundTripWithoutOutputDir(t *testing.T) {
	b := New(config.MemoryConfig{}, "Warehouse")
	require.NoError(t, b.Init())

	records := sampleRecords()
	require.NoError(t, b.Save(context.Background(), records))

	// Later changes by the caller do not leak into the stored copy.
	records[0]["name"] = "changed"
	records[1]["notifications"].([]string)[0] = "changed"

	got, err := b.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Ganger", got[0]["name"])
	assert.Equal(t, []string{"Torso disabled"}, got[1]["notifications"])
	assert.Empty(t, b.ExportedFilePath())
}

func TestSave_ReplacesPreviousSnapshot(t *testing.T) {
	b := New(config.MemoryConfig{}, "Warehouse")
	ctx := context.Background()

	require.NoError(t, b.Save(ctx, sampleRecords()))
	require.NoError(t, b.Save(ctx, []model.Record{{"id": "c3", "name": "Solo"}}))

	got, err := b.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Solo", got[0]["name"])
}

func TestRecordHit_BoundedLog(t *testing.T) {
	b := New(config.MemoryConfig{}, "Warehouse")
	ctx := context.Background()

	for i := 0; i < maxHits+5; i++ {
		require.NoError(t, b.RecordHit(ctx, model.HitEvent{CombatantID: fmt.Sprintf("c%d", i)}))
	}

	hits := b.Hits()
	require.Len(t, hits, maxHits)
	assert.Equal(t, "c5", hits[0].CombatantID)
	assert.Equal(t, fmt.Sprintf("c%d", maxHits+4), hits[len(hits)-1].CombatantID)
}
