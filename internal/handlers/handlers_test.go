package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redtable/combat-tracker/internal/dice"
	"github.com/redtable/combat-tracker/internal/encounter"
	"github.com/redtable/combat-tracker/internal/model"
	"github.com/redtable/combat-tracker/internal/parser"
	"github.com/redtable/combat-tracker/internal/storage"
	"github.com/redtable/combat-tracker/internal/tracker"
	"github.com/redtable/combat-tracker/pkg/core"
)

// fakeBackend implements storage.Backend and storage.HitRecorder for testing
type fakeBackend struct {
	saves   [][]model.Record
	hits    []model.HitEvent
	load    []model.Record
	saveErr error
	loadErr error
	closed  bool
}

func (b *fakeBackend) Init() error  { return nil }
func (b *fakeBackend) Close() error { b.closed = true; return nil }

func (b *fakeBackend) Save(_ context.Context, records []model.Record) error {
	if b.saveErr != nil {
		return b.saveErr
	}
	b.saves = append(b.saves, records)
	return nil
}

func (b *fakeBackend) Load(context.Context) ([]model.Record, error) {
	return b.load, b.loadErr
}

func (b *fakeBackend) RecordHit(_ context.Context, hit model.HitEvent) error {
	b.hits = append(b.hits, hit)
	return nil
}

var (
	_ storage.Backend     = (*fakeBackend)(nil)
	_ storage.HitRecorder = (*fakeBackend)(nil)
)

type fakeReporter struct {
	hits []model.HitEvent
	err  error
}

func (r *fakeReporter) ReportHit(_ context.Context, hit model.HitEvent) error {
	r.hits = append(r.hits, hit)
	return r.err
}

var testTime = time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

func newTestService(b storage.Backend, r HitReporter) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	roller := dice.New(7)
	return NewService(Dependencies{
		Store:     tracker.New(logger, roller),
		Parser:    parser.NewParser(logger, roller),
		Backend:   b,
		Reporter:  r,
		Encounter: encounter.NewContext("Test"),
		Logger:    logger,
		Now:       func() time.Time { return testTime },
	})
}

func addMook(t *testing.T, s *Service, name string, init int) core.Combatant {
	t.Helper()
	var c core.Combatant
	err := s.Update(context.Background(), func(st *tracker.Store, _ *parser.Parser) error {
		var err error
		c, err = st.Insert(core.CreateParams{Name: name, Initiative: &init})
		return err
	})
	require.NoError(t, err)
	return c
}

func TestNewService_Defaults(t *testing.T) {
	s := NewService(Dependencies{})
	require.NotNil(t, s.deps.Store)
	require.NotNil(t, s.deps.Parser)
	assert.Equal(t, "Encounter", s.Encounter().Name())
	assert.Empty(t, s.Records())

	// No backend: updates still apply.
	addMook(t, s, "Ganger", 10)
	assert.Len(t, s.Records(), 1)
	assert.NoError(t, s.Close())
}

func TestUpdate_SavesAfterMutation(t *testing.T) {
	b := &fakeBackend{}
	s := newTestService(b, nil)

	addMook(t, s, "Ganger", 10)
	addMook(t, s, "Boss", 20)

	require.Len(t, b.saves, 2)
	last := b.saves[1]
	require.Len(t, last, 2)
	assert.Equal(t, "Boss", last[0]["name"])
	assert.Equal(t, "Ganger", last[1]["name"])

	// The first combatant added is acting.
	assert.Equal(t, "Ganger", s.Encounter().Acting())
}

func TestUpdate_ErrorSkipsSave(t *testing.T) {
	b := &fakeBackend{}
	s := newTestService(b, nil)

	err := s.Update(context.Background(), func(st *tracker.Store, _ *parser.Parser) error {
		return st.Remove("missing")
	})
	require.ErrorIs(t, err, tracker.ErrNotFound)
	assert.Empty(t, b.saves)
}

func TestUpdate_SaveFailureKeepsChange(t *testing.T) {
	b := &fakeBackend{saveErr: errors.New("disk full")}
	s := newTestService(b, nil)

	addMook(t, s, "Ganger", 10)
	assert.Len(t, s.Records(), 1)
}

func TestRecordHit(t *testing.T) {
	b := &fakeBackend{}
	r := &fakeReporter{err: errors.New("influx down")}
	s := newTestService(b, r)
	c := addMook(t, s, "Ganger", 10)

	var hit model.HitEvent
	err := s.Update(context.Background(), func(st *tracker.Store, _ *parser.Parser) error {
		out, err := st.ApplyHit(c.ID, core.AttackRequest{Roll: 2, Damage: 17})
		if err != nil {
			return err
		}
		target, err := st.Get(c.ID)
		if err != nil {
			return err
		}
		hit = s.RecordHit(context.Background(), target, out)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, c.ID, hit.CombatantID)
	assert.Equal(t, "Ganger", hit.Name)
	assert.Equal(t, string(core.LocTorso), hit.Location)
	assert.Equal(t, 3, hit.Applied)
	assert.Equal(t, testTime, hit.Time)

	require.Len(t, b.hits, 1)
	assert.Equal(t, hit, b.hits[0])
	// Reporter errors are logged, not returned.
	require.Len(t, r.hits, 1)
}

func TestRestore(t *testing.T) {
	src := newTestService(&fakeBackend{}, nil)
	addMook(t, src, "Ganger", 10)
	addMook(t, src, "Boss", 20)

	b := &fakeBackend{load: src.Records()}
	s := newTestService(b, nil)

	n, err := s.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, src.Records(), s.Records())
	assert.Equal(t, "Ganger", s.Encounter().Acting())
	// Restoring does not write back.
	assert.Empty(t, b.saves)
}

func TestRestore_Empty(t *testing.T) {
	tests := []struct {
		name    string
		backend storage.Backend
	}{
		{"no backend", nil},
		{"nothing saved", &fakeBackend{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestService(tt.backend, nil)
			n, err := s.Restore(context.Background())
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestRestore_LoadError(t *testing.T) {
	s := newTestService(&fakeBackend{loadErr: errors.New("boom")}, nil)
	_, err := s.Restore(context.Background())
	assert.ErrorContains(t, err, "loading encounter")
}

func TestClose(t *testing.T) {
	b := &fakeBackend{}
	s := newTestService(b, nil)
	require.NoError(t, s.Close())
	assert.True(t, b.closed)
}

func TestIsClientError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{tracker.ErrNotFound, true},
		{tracker.ErrInvalidInput, true},
		{tracker.ErrMissingArmor, true},
		{tracker.ErrNoRules, true},
		{tracker.ErrReadOnlyField, true},
		{tracker.ErrUnknownField, true},
		{errors.New("database locked"), false},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, IsClientError(tt.err))
		})
	}
}
