package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redtable/combat-tracker/internal/model"
	"github.com/redtable/combat-tracker/internal/storage"
	"github.com/redtable/combat-tracker/pkg/streaming"
)

var (
	_ storage.Backend     = (*Backend)(nil)
	_ storage.HitRecorder = (*Backend)(nil)
)

// testServer upgrades to WebSocket, records received messages, and acks
// hello messages when ack is true.
func testServer(t *testing.T, ack bool) (*httptest.Server, *messageLog) {
	t.Helper()
	ml := &messageLog{}

	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ml.setSecret(r.URL.Query().Get("secret"))
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer c.Close()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}

			var env streaming.Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				continue
			}
			ml.add(env)

			if ack && env.Type == streaming.TypeHello {
				data, _ := json.Marshal(streaming.AckMessage{Type: streaming.TypeAck, For: env.Type})
				if err := c.WriteMessage(ws.TextMessage, data); err != nil {
					return
				}
			}
		}
	}))

	return srv, ml
}

type messageLog struct {
	mu       sync.Mutex
	messages []streaming.Envelope
	secret   string
}

func (m *messageLog) add(env streaming.Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, env)
}

func (m *messageLog) setSecret(s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secret = s
}

func (m *messageLog) all() []streaming.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]streaming.Envelope, len(m.messages))
	copy(cp, m.messages)
	return cp
}

func (m *messageLog) count(msgType string) int {
	n := 0
	for _, env := range m.all() {
		if env.Type == msgType {
			n++
		}
	}
	return n
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestInit_SendsHello(t *testing.T) {
	srv, ml := testServer(t, true)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv), Secret: "s3cret", Encounter: "Warehouse"}, nil)
	require.NoError(t, b.Init())
	defer b.Close()

	msgs := ml.all()
	require.NotEmpty(t, msgs)
	assert.Equal(t, streaming.TypeHello, msgs[0].Type)

	var hello streaming.HelloPayload
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &hello))
	assert.Equal(t, "Warehouse", hello.Encounter)

	ml.mu.Lock()
	assert.Equal(t, "s3cret", ml.secret)
	ml.mu.Unlock()
}

func TestSaveAndRecordHit(t *testing.T) {
	srv, ml := testServer(t, true)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv), Encounter: "Warehouse"}, nil)
	require.NoError(t, b.Init())
	defer b.Close()

	ctx := context.Background()
	require.NoError(t, b.Save(ctx, []model.Record{{"id": "c1", "name": "Ganger", "init": 12}}))
	require.NoError(t, b.RecordHit(ctx, model.HitEvent{CombatantID: "c1", Name: "Ganger", Location: "head", Raw: 9, Applied: 18}))

	require.Eventually(t, func() bool {
		return ml.count(streaming.TypeSnapshot) == 1 && ml.count(streaming.TypeHit) == 1
	}, 2*time.Second, 10*time.Millisecond)

	for _, env := range ml.all() {
		switch env.Type {
		case streaming.TypeSnapshot:
			var snap streaming.SnapshotPayload
			require.NoError(t, json.Unmarshal(env.Payload, &snap))
			require.Len(t, snap.Combatants, 1)
			assert.Equal(t, "Ganger", snap.Combatants[0]["name"])
		case streaming.TypeHit:
			var hit streaming.HitPayload
			require.NoError(t, json.Unmarshal(env.Payload, &hit))
			assert.Equal(t, "head", hit.Location)
			assert.Equal(t, 18, hit.Applied)
		}
	}

	got, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestInit_TimesOutWithoutAck(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the ack timeout")
	}
	srv, _ := testServer(t, false)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv)}, nil)
	err := b.Init()
	defer b.Close()
	assert.ErrorContains(t, err, "timeout waiting for ack")
}

func TestInit_BadURL(t *testing.T) {
	b := New(Config{URL: "ws://127.0.0.1:1/nothing"}, nil)
	assert.Error(t, b.Init())
	assert.NoError(t, b.Close())
}

func TestMarshalEnvelope(t *testing.T) {
	data, err := marshalEnvelope(streaming.TypeHit, streaming.HitPayload{CombatantID: "c1"})
	require.NoError(t, err)

	var env streaming.Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, streaming.TypeHit, env.Type)

	_, err = marshalEnvelope(streaming.TypeHit, make(chan int))
	assert.Error(t, err)
}

func TestResync_ResendsLatestSnapshot(t *testing.T) {
	ml := &messageLog{}
	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}
			var env streaming.Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				continue
			}
			ml.add(env)

			var reply streaming.AckMessage
			switch {
			case env.Type == streaming.TypeHello:
				reply = streaming.AckMessage{Type: streaming.TypeAck, For: env.Type}
			case env.Type == streaming.TypeSnapshot && ml.count(streaming.TypeSnapshot) == 1:
				reply = streaming.AckMessage{Type: streaming.TypeResync}
			default:
				continue
			}
			data, _ := json.Marshal(reply)
			if err := c.WriteMessage(ws.TextMessage, data); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	b := New(Config{URL: wsURL(srv), Encounter: "Warehouse"}, nil)
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.Save(context.Background(), []model.Record{{"id": "c1", "name": "Ganger"}}))

	require.Eventually(t, func() bool {
		return ml.count(streaming.TypeSnapshot) == 2
	}, 2*time.Second, 10*time.Millisecond)

	snaps := []streaming.Envelope{}
	for _, env := range ml.all() {
		if env.Type == streaming.TypeSnapshot {
			snaps = append(snaps, env)
		}
	}
	assert.JSONEq(t, string(snaps[0].Payload), string(snaps[1].Payload))
}

func TestBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{5, 16 * time.Second},
		{6, maxBackoff},
		{40, maxBackoff},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, backoff(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestPushSnapshot_KeepsOnlyNewest(t *testing.T) {
	l := newDisplayLink(slog.New(slog.NewTextHandler(io.Discard, nil)))
	l.pushSnapshot([]byte("first"))
	l.pushSnapshot([]byte("second"))

	assert.Len(t, l.snapshotReady, 1)
	assert.Equal(t, []byte("second"), l.unsent)
	assert.Equal(t, []byte("second"), l.lastSnapshot)
}
