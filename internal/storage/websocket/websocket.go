// Package websocket pushes the encounter to a live display server. It is a
// write-only backend: Load never returns anything.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redtable/combat-tracker/internal/model"
	"github.com/redtable/combat-tracker/pkg/streaming"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL       string
	Secret    string
	Encounter string
}

// Backend streams snapshots and hits over WebSocket.
type Backend struct {
	link *displayLink
	cfg  Config
}

// New creates a new WebSocket storage backend.
func New(cfg Config, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		link: newDisplayLink(logger.With("backend", "websocket")),
		cfg:  cfg,
	}
}

// Init connects and opens the session with a hello the server must ack.
func (b *Backend) Init() error {
	if err := b.link.open(b.cfg.URL, b.cfg.Secret); err != nil {
		return err
	}

	data, err := marshalEnvelope(streaming.TypeHello, streaming.HelloPayload{
		Encounter: b.cfg.Encounter,
		Secret:    b.cfg.Secret,
	})
	if err != nil {
		return err
	}

	b.link.mu.Lock()
	b.link.hello = data
	b.link.mu.Unlock()

	return b.link.pushAndWait(data, streaming.TypeHello, ackTimeout)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.link.shutdown()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	env, err := streaming.NewEnvelope(msgType, payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// Save pushes the full turn order. A snapshot still waiting to be written
// is replaced rather than queued behind.
func (b *Backend) Save(_ context.Context, records []model.Record) error {
	combatants := make([]map[string]any, len(records))
	for i, r := range records {
		combatants[i] = r
	}
	data, err := marshalEnvelope(streaming.TypeSnapshot, streaming.SnapshotPayload{
		Encounter:  b.cfg.Encounter,
		Combatants: combatants,
	})
	if err != nil {
		return err
	}

	b.link.pushSnapshot(data)
	return nil
}

// Load returns nothing; the display server is not a source of truth.
func (b *Backend) Load(_ context.Context) ([]model.Record, error) {
	return nil, nil
}

// RecordHit pushes one resolved attack (fire-and-forget).
func (b *Backend) RecordHit(_ context.Context, hit model.HitEvent) error {
	data, err := marshalEnvelope(streaming.TypeHit, streaming.HitPayload{
		CombatantID:  hit.CombatantID,
		Name:         hit.Name,
		Location:     hit.Location,
		Raw:          hit.Raw,
		Applied:      hit.Applied,
		Notification: hit.Notification,
	})
	if err != nil {
		return err
	}
	b.link.pushFrame(data)
	return nil
}
