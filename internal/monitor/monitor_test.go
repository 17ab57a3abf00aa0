package monitor

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redtable/combat-tracker/internal/config"
	"github.com/redtable/combat-tracker/internal/encounter"
	"github.com/redtable/combat-tracker/internal/handlers"
	"github.com/redtable/combat-tracker/internal/parser"
	"github.com/redtable/combat-tracker/internal/storage/memory"
	"github.com/redtable/combat-tracker/internal/tracker"
)

type fixedCommands []string

func (c fixedCommands) Commands() []string { return c }

func newService(t *testing.T, statusPath string) (*Service, *handlers.Service) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	backend := memory.New(config.MemoryConfig{OutputDir: t.TempDir()}, "Warehouse")
	require.NoError(t, backend.Init())

	enc := encounter.NewContext("Warehouse")
	svc := handlers.NewService(handlers.Dependencies{
		Backend:   backend,
		Encounter: enc,
		Logger:    logger,
	})
	err := svc.Update(context.Background(), func(s *tracker.Store, p *parser.Parser) error {
		params, err := p.ParseAddBlock("name: Ganger\ninit: 12")
		if err != nil {
			return err
		}
		_, err = s.Insert(params)
		return err
	})
	require.NoError(t, err)

	return NewService(Dependencies{
		Service:    svc,
		Backend:    backend,
		Commands:   fixedCommands{":ADD:", ":HIT:"},
		StatusPath: statusPath,
		Interval:   10 * time.Millisecond,
		Logger:     logger,
		Started:    time.Now().Add(-90 * time.Second),
	}), svc
}

func TestGetStatus(t *testing.T) {
	mon, svc := newService(t, "")
	svc.Encounter().SetActing("Ganger")

	st := mon.GetStatus()
	assert.Equal(t, "Warehouse", st.Encounter)
	assert.Equal(t, 1, st.Round)
	assert.Equal(t, "Ganger", st.Acting)
	assert.Equal(t, 1, st.Combatants)
	assert.Equal(t, 2, st.Commands)
	assert.GreaterOrEqual(t, st.UptimeSec, int64(90))
	assert.NotEmpty(t, st.ExportPath)
}

func TestWriteStatus_NoPath(t *testing.T) {
	mon, _ := newService(t, "")
	assert.NoError(t, mon.WriteStatus())
}

func TestStartStop_WritesStatusFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status", "status.json")
	mon, _ := newService(t, path)

	mon.Start()
	mon.Start() // second start is a no-op
	assert.True(t, mon.IsRunning())
	mon.Stop()
	assert.False(t, mon.IsRunning())
	mon.Stop()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var st Status
	require.NoError(t, json.Unmarshal(data, &st))
	assert.Equal(t, "Warehouse", st.Encounter)
	assert.Equal(t, 1, st.Combatants)
}
