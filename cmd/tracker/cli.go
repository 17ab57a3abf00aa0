package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/redtable/combat-tracker/internal/api"
	"github.com/redtable/combat-tracker/internal/config"
	"github.com/redtable/combat-tracker/internal/model"
	"github.com/redtable/combat-tracker/internal/storage"
	"github.com/redtable/combat-tracker/internal/storage/memory"
)

// exportHitLimit caps how many hits are read from a database backend.
const exportHitLimit = 10000

type hitQuerier interface {
	Hits(ctx context.Context, limit int) ([]model.HitEvent, error)
}

type hitLister interface {
	Hits() []model.HitEvent
}

// runExport reads the saved encounter from the configured backend and writes
// it to outputPath in the memory backend's export format.
func runExport(ctx context.Context, storageCfg config.StorageConfig, encounter, outputPath string, logger *slog.Logger) error {
	if strings.EqualFold(storageCfg.Type, "websocket") {
		return errors.New("websocket storage keeps no encounter to export")
	}

	backend, err := newBackend(storageCfg, encounter, logger)
	if err != nil {
		return err
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("storage init: %w", err)
	}
	defer backend.Close()

	records, err := backend.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading encounter: %w", err)
	}

	hits, err := loadHits(ctx, backend)
	if err != nil {
		return fmt.Errorf("loading hits: %w", err)
	}

	if records == nil {
		records = []model.Record{}
	}
	data := memory.EncounterExport{
		Encounter:  encounter,
		SavedAt:    time.Now().UTC(),
		Combatants: records,
		Hits:       hits,
	}
	if err := memory.WriteExportFile(outputPath, data); err != nil {
		return err
	}
	logger.Info("Encounter exported", "path", outputPath, "combatants", len(records), "hits", len(hits))
	return nil
}

func loadHits(ctx context.Context, backend storage.Backend) ([]model.HitEvent, error) {
	switch b := backend.(type) {
	case hitQuerier:
		return b.Hits(ctx, exportHitLimit)
	case hitLister:
		return b.Hits(), nil
	}
	return nil, nil
}

const sendUsage = `send commands:
  health
  status
  list
  add <file | ->          add block read from a file or stdin
  remove <id>
  next | prev
  <action> <id> [args...] e.g. hit c1 3 17, fire c1 2, edit c1 name "Big Boss"`

// runSend forwards one command to a running server and prints its answer.
func runSend(out io.Writer, baseURL string, args []string) error {
	if len(args) == 0 {
		return errors.New(sendUsage)
	}
	client := api.New(baseURL)

	var (
		raw json.RawMessage
		err error
	)
	switch cmd := strings.ToLower(args[0]); cmd {
	case "health":
		if err := client.Healthcheck(); err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, "ok")
		return err
	case "status":
		raw, err = client.Status()
	case "list":
		raw, err = client.List()
	case "add":
		if len(args) != 2 {
			return errors.New("add needs a file name, or - for stdin")
		}
		var block []byte
		if args[1] == "-" {
			block, err = io.ReadAll(os.Stdin)
		} else {
			block, err = os.ReadFile(args[1])
		}
		if err != nil {
			return fmt.Errorf("reading add block: %w", err)
		}
		raw, err = client.Add(string(block))
	case "remove":
		if len(args) != 2 {
			return errors.New("remove needs a combatant id")
		}
		raw, err = client.Remove(args[1])
	case "next", "prev":
		raw, err = client.Turn(cmd == "next")
	default:
		if len(args) < 2 {
			return fmt.Errorf("%s needs a combatant id\n\n%s", cmd, sendUsage)
		}
		raw, err = client.Action(args[1], cmd, args[2:]...)
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(out, strings.TrimSpace(string(raw)))
	return err
}
