package worker

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redtable/combat-tracker/internal/dice"
	"github.com/redtable/combat-tracker/internal/dispatcher"
	"github.com/redtable/combat-tracker/internal/encounter"
	"github.com/redtable/combat-tracker/internal/handlers"
	"github.com/redtable/combat-tracker/internal/model"
	"github.com/redtable/combat-tracker/internal/parser"
	"github.com/redtable/combat-tracker/internal/storage"
	"github.com/redtable/combat-tracker/internal/tracker"
	"github.com/redtable/combat-tracker/pkg/core"
)

// mockLogger implements dispatcher.Logger for testing
type mockLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *mockLogger) log(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

func (l *mockLogger) Debug(msg string, _ ...any) { l.log(msg) }
func (l *mockLogger) Info(msg string, _ ...any)  { l.log(msg) }
func (l *mockLogger) Error(msg string, _ ...any) { l.log(msg) }

// mockBackend implements storage.Backend and storage.HitRecorder for testing
type mockBackend struct {
	mu    sync.Mutex
	saves int
	last  []model.Record
	hits  []model.HitEvent
}

func (b *mockBackend) Init() error  { return nil }
func (b *mockBackend) Close() error { return nil }

func (b *mockBackend) Save(_ context.Context, records []model.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.saves++
	b.last = records
	return nil
}

func (b *mockBackend) Load(context.Context) ([]model.Record, error) { return nil, nil }

func (b *mockBackend) RecordHit(_ context.Context, hit model.HitEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hits = append(b.hits, hit)
	return nil
}

var _ storage.HitRecorder = (*mockBackend)(nil)

type testEnv struct {
	d       *dispatcher.Dispatcher
	backend *mockBackend
	enc     *encounter.Context
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	roller := dice.New(3)
	backend := &mockBackend{}
	enc := encounter.NewContext("Test")

	svc := handlers.NewService(handlers.Dependencies{
		Store:     tracker.New(logger, roller),
		Parser:    parser.NewParser(logger, roller),
		Backend:   backend,
		Encounter: enc,
		Logger:    logger,
	})

	d, err := dispatcher.New(&mockLogger{})
	require.NoError(t, err)
	t.Cleanup(d.Close)

	NewManager(svc, logger).RegisterHandlers(d)
	return &testEnv{d: d, backend: backend, enc: enc}
}

func (e *testEnv) dispatch(t *testing.T, cmd string, args ...string) any {
	t.Helper()
	out, err := e.d.Dispatch(dispatcher.Event{Command: cmd, Args: args})
	require.NoError(t, err, cmd)
	return out
}

func (e *testEnv) add(t *testing.T, block string) model.Record {
	t.Helper()
	r, ok := e.dispatch(t, ":ADD:", block).(model.Record)
	require.True(t, ok)
	return r
}

func idOf(r model.Record) string {
	return r["id"].(string)
}

func TestRegisterHandlers(t *testing.T) {
	env := newTestEnv(t)

	want := []string{
		":ADD:", ":CLEAR:", ":COPY:", ":EDIT:", ":EXPAND:", ":FIELDS:",
		":FIRE:", ":HIT:", ":INIT:", ":INIT:MOD:", ":KIND:", ":LIST:",
		":NEXT:", ":PREV:", ":RELOAD:", ":REMOVE:", ":ROLL:", ":ROLL:INIT:",
		":STUN:",
	}
	assert.Equal(t, want, env.d.Commands())
}

func TestHandleAdd(t *testing.T) {
	env := newTestEnv(t)

	r := env.add(t, "type: mook\nname: Tyger Claw\ninit: 14")
	assert.Equal(t, "Tyger Claw", r["name"])
	assert.Equal(t, 14, r["init"])
	assert.Equal(t, true, r["isHighlighted"])
	assert.NotEmpty(t, idOf(r))

	assert.Equal(t, 1, env.backend.saves)
	assert.Equal(t, "Tyger Claw", env.enc.Acting())
}

func TestHandleList(t *testing.T) {
	env := newTestEnv(t)
	env.add(t, "name: Low\ninit: 5")
	env.add(t, "name: High\ninit: 25")

	list, ok := env.dispatch(t, ":LIST:").([]model.Record)
	require.True(t, ok)
	require.Len(t, list, 2)
	assert.Equal(t, "High", list[0]["name"])
	assert.Equal(t, "Low", list[1]["name"])
}

func TestHandleRemoveAndCopy(t *testing.T) {
	env := newTestEnv(t)
	a := env.add(t, "name: Ganger\ninit: 10")

	cp, ok := env.dispatch(t, ":COPY:", idOf(a)).(model.Record)
	require.True(t, ok)
	assert.Equal(t, "Ganger (Copy)", cp["name"])
	assert.NotEqual(t, idOf(a), idOf(cp))

	res := env.dispatch(t, ":REMOVE:", idOf(a))
	assert.Equal(t, RemoveResult{ID: idOf(a)}, res)

	list := env.dispatch(t, ":LIST:").([]model.Record)
	require.Len(t, list, 1)
	// The copy inherits the turn.
	assert.Equal(t, true, list[0]["isHighlighted"])
}

func TestHandleKindAndFields(t *testing.T) {
	env := newTestEnv(t)
	a := env.add(t, "name: Bot")

	r := env.dispatch(t, ":KIND:", idOf(a), "drone").(model.Record)
	assert.Equal(t, "drone", r["type"])

	fields, ok := env.dispatch(t, ":FIELDS:", "drone").([]tracker.Field)
	require.True(t, ok)
	assert.Equal(t, tracker.Fields(core.KindDrone), fields)
}

func TestHandleInit(t *testing.T) {
	env := newTestEnv(t)
	a := env.add(t, "name: A\ninit: 10")
	env.add(t, "name: B\ninit: 20")

	r := env.dispatch(t, ":INIT:", idOf(a), "30").(model.Record)
	assert.Equal(t, 30, r["init"])

	list := env.dispatch(t, ":LIST:").([]model.Record)
	assert.Equal(t, "A", list[0]["name"])

	r = env.dispatch(t, ":INIT:MOD:", idOf(a), "3").(model.Record)
	assert.Equal(t, 3, r["initMod"])
}

func TestHandleRollInit(t *testing.T) {
	env := newTestEnv(t)
	a := env.add(t, "name: A\ninitMod: 100")
	env.add(t, "name: B")

	res := env.dispatch(t, ":ROLL:INIT:", idOf(a)).(RollResult)
	assert.Equal(t, idOf(a), res.ID)
	assert.GreaterOrEqual(t, res.Roll, 101)
	assert.LessOrEqual(t, res.Roll, 110)

	all, ok := env.dispatch(t, ":ROLL:INIT:").([]model.Record)
	require.True(t, ok)
	require.Len(t, all, 2)
	assert.Equal(t, "A", all[0]["name"])
}

func TestHandleRoll(t *testing.T) {
	env := newTestEnv(t)
	for range 20 {
		res := env.dispatch(t, ":ROLL:").(RollResult)
		assert.GreaterOrEqual(t, res.Roll, 1)
		assert.LessOrEqual(t, res.Roll, 10)
	}
	assert.Zero(t, env.backend.saves)
}

func TestHandleNextPrev_Rounds(t *testing.T) {
	env := newTestEnv(t)
	env.add(t, "name: A\ninit: 30")
	env.add(t, "name: B\ninit: 20")
	env.add(t, "name: C\ninit: 10")

	// A was added first and is acting.
	steps := []struct {
		cmd    string
		acting string
		round  int
	}{
		{":NEXT:", "B", 1},
		{":NEXT:", "C", 1},
		{":NEXT:", "A", 2},
		{":NEXT:", "B", 2},
		{":PREV:", "A", 2},
		{":PREV:", "C", 1},
		{":PREV:", "B", 1},
	}
	for _, s := range steps {
		res := env.dispatch(t, s.cmd).(TurnResult)
		assert.Equal(t, s.acting, res.Acting["name"], s.cmd)
		assert.Equal(t, s.round, res.Round, s.cmd)
	}
	assert.Equal(t, "B", env.enc.Acting())
}

func TestHandleNext_Empty(t *testing.T) {
	env := newTestEnv(t)
	res := env.dispatch(t, ":NEXT:").(TurnResult)
	assert.Nil(t, res.Acting)
	assert.Equal(t, 1, res.Round)
}

func TestHandleHit(t *testing.T) {
	env := newTestEnv(t)
	a := env.add(t, "name: Ganger")

	// Torso: 17-12 = 5, BTM -2 = 3.
	res, ok := env.dispatch(t, ":HIT:", idOf(a), "2", "17").(HitResult)
	require.True(t, ok)
	assert.Equal(t, "torso", res.Location)
	assert.Equal(t, 3, res.Applied)
	assert.Equal(t, core.NoteStunSave, res.Notification)
	assert.Equal(t, 3, res.Combatant["dmgTaken"])
	assert.Nil(t, res.Rolled)

	require.Len(t, env.backend.hits, 1)
	assert.Equal(t, "Ganger", env.backend.hits[0].Name)

	env.dispatch(t, ":CLEAR:", idOf(a))
	list := env.dispatch(t, ":LIST:").([]model.Record)
	assert.Equal(t, core.NoteNone, list[0]["notification"])
}

func TestHandleHit_DiceDamage(t *testing.T) {
	env := newTestEnv(t)
	a := env.add(t, "name: Ganger")

	res := env.dispatch(t, ":HIT:", idOf(a), "2", "2d6", "bypass").(HitResult)
	require.NotNil(t, res.Rolled)
	assert.Equal(t, float64(res.Rolled.Total), res.Raw)
}

func TestHandleAmmo(t *testing.T) {
	env := newTestEnv(t)
	a := env.add(t, "name: Ganger\nnumShots: 2\nnumShotsMax: 10\nmags: 1")

	res := env.dispatch(t, ":FIRE:", idOf(a)).(AmmoResult)
	assert.Equal(t, AmmoResult{ID: idOf(a), Shots: 1, ShotsMax: 10, Mags: 1, OK: true}, res)

	res = env.dispatch(t, ":FIRE:", idOf(a), "5").(AmmoResult)
	assert.False(t, res.OK)
	assert.Equal(t, 1, res.Shots)

	res = env.dispatch(t, ":RELOAD:", idOf(a)).(AmmoResult)
	assert.True(t, res.OK)
	assert.Equal(t, 10, res.Shots)
	assert.Equal(t, 0, res.Mags)
}

func TestHandleStunEditExpand(t *testing.T) {
	env := newTestEnv(t)
	a := env.add(t, "name: Ganger")

	res := env.dispatch(t, ":STUN:", idOf(a)).(StunResult)
	assert.True(t, res.Stunned)

	r := env.dispatch(t, ":EDIT:", idOf(a), "name", "Big", "Boss").(model.Record)
	assert.Equal(t, "Big Boss", r["name"])

	r = env.dispatch(t, ":EXPAND:", idOf(a), "true", "false").(model.Record)
	assert.Equal(t, true, r["expanded"])
	assert.Equal(t, false, r["hitExpanded"])
}

func TestHandlers_Errors(t *testing.T) {
	env := newTestEnv(t)
	a := env.add(t, "type: player\nname: V")
	saves := env.backend.saves

	tests := []struct {
		name    string
		cmd     string
		args    []string
		wantErr error
	}{
		{"unknown combatant", ":REMOVE:", []string{"nobody"}, tracker.ErrNotFound},
		{"missing id", ":COPY:", nil, tracker.ErrInvalidInput},
		{"bad type", ":KIND:", []string{idOf(a), "tank"}, tracker.ErrInvalidInput},
		{"player has no ammo", ":FIRE:", []string{idOf(a), "1"}, tracker.ErrNoRules},
		{"player has no notification", ":CLEAR:", []string{idOf(a)}, tracker.ErrNoRules},
		{"bad damage", ":HIT:", []string{idOf(a), "2", "lots"}, tracker.ErrInvalidInput},
		{"edit unknown combatant", ":EDIT:", []string{"nobody", "name", "x"}, tracker.ErrNotFound},
		{"fields without type", ":FIELDS:", nil, tracker.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.d.Dispatch(dispatcher.Event{Command: tt.cmd, Args: tt.args})
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, handlers.IsClientError(err))
		})
	}
	assert.Equal(t, saves, env.backend.saves, "failed commands must not save")
}
