// Package gormstorage implements storage.Backend on any GORM dialect. The
// SQLite and Postgres backends wrap it and add only connection handling.
package gormstorage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redtable/combat-tracker/internal/database"
	"github.com/redtable/combat-tracker/internal/model"
	"github.com/redtable/combat-tracker/internal/model/convert"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// encounterID is the primary key of the single saved encounter row.
const encounterID = 1

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB        *gorm.DB
	Logger    *slog.Logger
	Encounter string
}

// Backend stores the turn order as one row per combatant.
type Backend struct {
	deps Dependencies
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Backend{deps: deps}
}

// DB exposes the connection for wrappers that manage its lifecycle.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init migrates the schema.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return errors.New("gorm backend has no database")
	}
	b.deps.Logger.Info("Migrating schema", "dialect", b.deps.DB.Name())
	return database.Migrate(b.deps.DB)
}

// Close is a no-op; the wrapper owns the connection.
func (b *Backend) Close() error {
	return nil
}

// Save replaces every combatant row and stamps the encounter row in one
// transaction.
func (b *Backend) Save(ctx context.Context, records []model.Record) error {
	rows := make([]model.Combatant, len(records))
	for i, r := range records {
		rows[i] = convert.RecordToGorm(i, r)
	}

	err := b.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&model.Combatant{}).Error; err != nil {
			return fmt.Errorf("clear combatants: %w", err)
		}
		if len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("insert combatants: %w", err)
			}
		}
		enc := model.Encounter{
			ID:         encounterID,
			Name:       b.deps.Encounter,
			Combatants: len(rows),
			SavedAt:    time.Now().UTC(),
		}
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&enc).Error; err != nil {
			return fmt.Errorf("stamp encounter: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	b.deps.Logger.Debug("Saved encounter", "combatants", len(rows))
	return nil
}

// Load returns the saved turn order by position, or nil when nothing was
// ever saved.
func (b *Backend) Load(ctx context.Context) ([]model.Record, error) {
	db := b.deps.DB.WithContext(ctx)

	var enc model.Encounter
	err := db.First(&enc, encounterID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load encounter: %w", err)
	}

	var rows []model.Combatant
	if err := db.Order("position").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load combatants: %w", err)
	}

	records := make([]model.Record, len(rows))
	for i, row := range rows {
		records[i] = convert.GormToRecord(row)
	}
	return records, nil
}

// RecordHit inserts one hit log row.
func (b *Backend) RecordHit(ctx context.Context, hit model.HitEvent) error {
	return b.RecordHits(ctx, []model.HitEvent{hit})
}

// RecordHits inserts a batch of hit log rows in one statement.
func (b *Backend) RecordHits(ctx context.Context, hits []model.HitEvent) error {
	if len(hits) == 0 {
		return nil
	}
	if err := b.deps.DB.WithContext(ctx).Create(&hits).Error; err != nil {
		return fmt.Errorf("insert hits: %w", err)
	}
	return nil
}

// Hits returns up to limit hit log rows, newest first. A limit of zero or
// less returns all of them.
func (b *Backend) Hits(ctx context.Context, limit int) ([]model.HitEvent, error) {
	q := b.deps.DB.WithContext(ctx).Order("time desc, id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var hits []model.HitEvent
	if err := q.Find(&hits).Error; err != nil {
		return nil, fmt.Errorf("load hits: %w", err)
	}
	return hits, nil
}
