// internal/storage/storage.go
package storage

import (
	"context"

	"github.com/redtable/combat-tracker/internal/model"
)

// Backend is the interface all storage implementations must satisfy. Save
// receives the whole turn order after every change; Load returns the last
// saved turn order, or nothing when no encounter has been saved yet.
type Backend interface {
	Init() error
	Close() error

	Save(ctx context.Context, records []model.Record) error
	Load(ctx context.Context) ([]model.Record, error)
}

// HitRecorder is an optional interface for backends that keep a log of
// resolved attacks.
type HitRecorder interface {
	RecordHit(ctx context.Context, hit model.HitEvent) error
}

// Exporter is an optional interface for backends that write the encounter
// to a file.
type Exporter interface {
	ExportedFilePath() string
}
