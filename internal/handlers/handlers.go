// Package handlers owns the running encounter: every command reads and
// mutates the turn order through one Service, which persists the result.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redtable/combat-tracker/internal/dice"
	"github.com/redtable/combat-tracker/internal/encounter"
	"github.com/redtable/combat-tracker/internal/model"
	"github.com/redtable/combat-tracker/internal/model/convert"
	"github.com/redtable/combat-tracker/internal/parser"
	"github.com/redtable/combat-tracker/internal/storage"
	"github.com/redtable/combat-tracker/internal/tracker"
	"github.com/redtable/combat-tracker/pkg/core"
)

// HitReporter receives every resolved attack, e.g. for telemetry.
type HitReporter interface {
	ReportHit(ctx context.Context, hit model.HitEvent) error
}

// Dependencies holds all dependencies needed by the service
type Dependencies struct {
	Store     *tracker.Store
	Parser    *parser.Parser
	Backend   storage.Backend
	Reporter  HitReporter // optional
	Encounter *encounter.Context
	Logger    *slog.Logger
	Now       func() time.Time
}

// Service serializes all access to the turn order. The store and the
// parser's dice roller are not safe for concurrent use, so both are only
// touched under mu.
type Service struct {
	mu     sync.Mutex
	deps   Dependencies
	logger *slog.Logger
}

// NewService creates a new handler service, filling in defaults for any
// missing dependency except the backend.
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Store == nil {
		roller := dice.New(0)
		deps.Store = tracker.New(deps.Logger, roller)
		if deps.Parser == nil {
			deps.Parser = parser.NewParser(deps.Logger, roller)
		}
	}
	if deps.Parser == nil {
		deps.Parser = parser.NewParser(deps.Logger, nil)
	}
	if deps.Encounter == nil {
		deps.Encounter = encounter.NewContext("")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{
		deps:   deps,
		logger: deps.Logger.With("component", "handlers"),
	}
}

// Encounter returns the encounter context.
func (s *Service) Encounter() *encounter.Context {
	return s.deps.Encounter
}

// Update runs fn with exclusive access to the store and parser. When fn
// succeeds the new turn order is saved to the backend. A failed save is
// logged; the change itself stays applied.
func (s *Service) Update(ctx context.Context, fn func(*tracker.Store, *parser.Parser) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(s.deps.Store, s.deps.Parser); err != nil {
		return err
	}
	s.syncActing()
	s.save(ctx)
	return nil
}

// View runs fn with exclusive access to the store without saving.
func (s *Service) View(fn func(*tracker.Store)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.deps.Store)
}

// Records returns the turn order in its persisted form.
func (s *Service) Records() []model.Record {
	var records []model.Record
	s.View(func(st *tracker.Store) {
		records = convert.CombatantsToRecords(st.Snapshot())
	})
	return records
}

// RecordHit logs a resolved attack to the backend and the reporter, when
// they take one. Failures are logged and do not undo the hit. It is meant
// to be called from inside Update.
func (s *Service) RecordHit(ctx context.Context, target core.Combatant, out core.HitOutcome) model.HitEvent {
	hit := convert.OutcomeToHitEvent(target, out, s.deps.Now())

	if hr, ok := s.deps.Backend.(storage.HitRecorder); ok {
		if err := hr.RecordHit(ctx, hit); err != nil {
			s.logger.Error("Failed to record hit", "id", hit.CombatantID, "error", err)
		}
	}
	if s.deps.Reporter != nil {
		if err := s.deps.Reporter.ReportHit(ctx, hit); err != nil {
			s.logger.Warn("Failed to report hit", "id", hit.CombatantID, "error", err)
		}
	}

	s.logger.Info("Hit resolved",
		"id", hit.CombatantID,
		"name", hit.Name,
		"location", hit.Location,
		"raw", hit.Raw,
		"applied", hit.Applied,
		"notification", hit.Notification,
	)
	return hit
}

// Restore loads the last saved turn order from the backend into the store.
// It returns how many combatants were restored; zero when nothing was saved.
func (s *Service) Restore(ctx context.Context) (int, error) {
	if s.deps.Backend == nil {
		return 0, nil
	}
	records, err := s.deps.Backend.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading encounter: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}
	list, err := convert.RecordsToCombatants(records)
	if err != nil {
		return 0, fmt.Errorf("decoding encounter: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.deps.Store.Load(list)
	s.syncActing()
	s.logger.Info("Encounter restored", "combatants", len(list))
	return len(list), nil
}

// Close releases the backend.
func (s *Service) Close() error {
	if s.deps.Backend == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deps.Backend.Close()
}

func (s *Service) syncActing() {
	name := ""
	for _, c := range s.deps.Store.Snapshot() {
		if c.Acting {
			name = c.Name
			break
		}
	}
	s.deps.Encounter.SetActing(name)
}

func (s *Service) save(ctx context.Context) {
	if s.deps.Backend == nil {
		return
	}
	records := convert.CombatantsToRecords(s.deps.Store.Snapshot())
	start := time.Now()
	if err := s.deps.Backend.Save(ctx, records); err != nil {
		s.logger.Error("Failed to save encounter", "combatants", len(records), "error", err)
		return
	}
	s.logger.Debug("Encounter saved", "combatants", len(records), "duration", time.Since(start))
}

// IsClientError reports whether err was caused by the request rather than
// by the tracker, so the caller can answer with a 4xx.
func IsClientError(err error) bool {
	return errors.Is(err, tracker.ErrNotFound) ||
		errors.Is(err, tracker.ErrInvalidInput) ||
		errors.Is(err, tracker.ErrMissingArmor) ||
		errors.Is(err, tracker.ErrNoRules) ||
		errors.Is(err, tracker.ErrReadOnlyField) ||
		errors.Is(err, tracker.ErrUnknownField)
}
