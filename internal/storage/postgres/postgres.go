// Package postgres implements storage.Backend on PostgreSQL. Saves go
// straight through the GORM backend; hit log rows are queued and written in
// batches by a background goroutine.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redtable/combat-tracker/internal/config"
	"github.com/redtable/combat-tracker/internal/database"
	"github.com/redtable/combat-tracker/internal/model"
	"github.com/redtable/combat-tracker/internal/queue"
	gormstorage "github.com/redtable/combat-tracker/internal/storage/gorm"
	"gorm.io/gorm"
)

const defaultFlushInterval = 2 * time.Second

// Dependencies holds everything the Postgres backend needs. When DB is nil,
// Init connects using Config.
type Dependencies struct {
	DB            *gorm.DB
	Config        config.DBConfig
	Logger        *slog.Logger
	Encounter     string
	FlushInterval time.Duration
}

// Backend implements storage.Backend using GORM/PostgreSQL.
type Backend struct {
	*gormstorage.Backend
	deps     Dependencies
	ownsDB   bool
	hits     *queue.Queue[model.HitEvent]
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates a new Postgres storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	deps.Logger = deps.Logger.With("backend", "postgres")
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = defaultFlushInterval
	}
	return &Backend{
		deps:     deps,
		hits:     queue.New[model.HitEvent](),
		stopChan: make(chan struct{}),
	}
}

// Init connects if needed, migrates the schema and starts the hit writer.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		db, err := database.OpenPostgres(b.deps.Config)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		b.deps.DB = db
		b.ownsDB = true
	}

	b.Backend = gormstorage.New(gormstorage.Dependencies{
		DB:        b.deps.DB,
		Logger:    b.deps.Logger,
		Encounter: b.deps.Encounter,
	})
	if err := b.Backend.Init(); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.wg.Add(1)
	go b.hitWriter()
	return nil
}

// Close stops the hit writer, flushes what is left and releases the
// connection if Init opened it.
func (b *Backend) Close() error {
	close(b.stopChan)
	b.wg.Wait()

	if b.Backend != nil {
		b.flushHits(context.Background())
	}
	if b.ownsDB {
		return database.Close(b.deps.DB)
	}
	return nil
}

// RecordHit queues a hit log row for the next batch.
func (b *Backend) RecordHit(_ context.Context, hit model.HitEvent) error {
	b.hits.Push(hit)
	return nil
}

// PendingHits is the number of queued hit rows not yet written.
func (b *Backend) PendingHits() int {
	return b.hits.Len()
}

func (b *Backend) hitWriter() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			b.flushHits(context.Background())
		}
	}
}

// flushHits writes the queued rows in one insert. A failed batch goes back
// to the front of the queue.
func (b *Backend) flushHits(ctx context.Context) {
	if b.hits.Empty() {
		return
	}
	batch := b.hits.GetAndEmpty()
	if err := b.Backend.RecordHits(ctx, batch); err != nil {
		b.deps.Logger.Error("Error writing hits", "count", len(batch), "error", err)
		b.hits.Requeue(batch...)
		return
	}
	b.deps.Logger.Debug("Wrote hits", "count", len(batch))
}
