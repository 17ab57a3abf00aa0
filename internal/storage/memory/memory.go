// internal/storage/memory/memory.go
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/redtable/combat-tracker/internal/config"
	"github.com/redtable/combat-tracker/internal/model"
)

// maxHits bounds the hit log kept alongside the turn order.
const maxHits = 500

// Backend keeps the encounter in memory and, when an output directory is
// configured, mirrors every save to a JSON file.
type Backend struct {
	cfg       config.MemoryConfig
	encounter string

	records    []model.Record
	hits       []model.HitEvent
	savedAt    time.Time
	exportPath string

	mu sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig, encounter string) *Backend {
	return &Backend{cfg: cfg, encounter: encounter}
}

// Init restores the previous export when one exists in the output directory.
func (b *Backend) Init() error {
	if b.cfg.OutputDir == "" {
		return nil
	}

	export, path, err := readExport(b.cfg.OutputDir)
	if err != nil {
		return err
	}
	if export == nil {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.records = export.Combatants
	b.hits = export.Hits
	b.savedAt = export.SavedAt
	b.exportPath = path
	return nil
}

func (b *Backend) Close() error {
	return nil
}

// Save replaces the stored turn order and rewrites the export file.
func (b *Backend) Save(_ context.Context, records []model.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.records = model.CloneRecords(records)
	b.savedAt = time.Now().UTC()
	return b.writeExport()
}

// Load returns a copy of the last saved turn order.
func (b *Backend) Load(_ context.Context) ([]model.Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.records == nil {
		return nil, nil
	}
	return model.CloneRecords(b.records), nil
}

// RecordHit appends to the hit log, dropping the oldest entries past maxHits.
func (b *Backend) RecordHit(_ context.Context, hit model.HitEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.hits = append(b.hits, hit)
	if over := len(b.hits) - maxHits; over > 0 {
		b.hits = append([]model.HitEvent(nil), b.hits[over:]...)
	}
	return nil
}

// Hits returns a copy of the hit log, oldest first.
func (b *Backend) Hits() []model.HitEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]model.HitEvent(nil), b.hits...)
}

// ExportedFilePath returns the file written by the last save, if any.
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.exportPath
}
