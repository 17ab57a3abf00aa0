// Package sqlitestorage implements storage.Backend on SQLite. It wraps the
// GORM backend; the only SQLite-specific concerns are opening the database
// and the optional periodic dump via VACUUM INTO.
package sqlitestorage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redtable/combat-tracker/internal/config"
	"github.com/redtable/combat-tracker/internal/database"
	"github.com/redtable/combat-tracker/internal/model"
	gormstorage "github.com/redtable/combat-tracker/internal/storage/gorm"
	"gorm.io/gorm"
)

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	db       *gorm.DB
	cfg      config.SQLiteConfig
	log      *slog.Logger
	stopChan chan struct{}
	wg       sync.WaitGroup

	// writeMu keeps dumps from running inside a write.
	writeMu sync.Mutex
}

// New opens the database at cfg.Path, or an in-memory one when the path is
// empty.
func New(cfg config.SQLiteConfig, encounter string, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := database.OpenSqlite(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite DB: %w", err)
	}

	log := logger.With("backend", "sqlite")
	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{
			DB:        db,
			Logger:    log,
			Encounter: encounter,
		}),
		db:       db,
		cfg:      cfg,
		log:      log,
		stopChan: make(chan struct{}),
	}, nil
}

// Init migrates the schema and starts the dump goroutine when configured.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}

	if b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0 {
		b.wg.Add(1)
		go b.dumpLoop()
	}
	return nil
}

// Close stops the dump goroutine, writes a final dump and closes the database.
func (b *Backend) Close() error {
	close(b.stopChan)
	b.wg.Wait()

	if b.cfg.DumpPath != "" {
		b.dump()
	}
	return database.Close(b.db)
}

func (b *Backend) Save(ctx context.Context, records []model.Record) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	return b.Backend.Save(ctx, records)
}

func (b *Backend) RecordHit(ctx context.Context, hit model.HitEvent) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	return b.Backend.RecordHit(ctx, hit)
}

// dumpLoop periodically snapshots the database to cfg.DumpPath.
func (b *Backend) dumpLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			b.dump()
		}
	}
}

func (b *Backend) dump() {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	start := time.Now()
	if err := database.DumpSqliteToDisk(b.db, b.cfg.DumpPath); err != nil {
		b.log.Error("Error dumping to disk", "path", b.cfg.DumpPath, "error", err)
		return
	}
	b.log.Debug("Dumped to disk", "path", b.cfg.DumpPath, "duration", time.Since(start))
}
