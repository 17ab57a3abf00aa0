// Package streaming defines the messages pushed to a live display server.
package streaming

import "encoding/json"

// Message type constants of the display protocol.
const (
	TypeHello    = "hello"
	TypeSnapshot = "snapshot"
	TypeHit      = "hit"
	TypeAck      = "ack"

	// TypeResync is sent by the display when it lost state and wants the
	// current turn order again.
	TypeResync = "resync"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is a control message from the display: an ack, or a resync
// request with For left empty.
type AckMessage struct {
	Type string `json:"type"`
	For  string `json:"for,omitempty"` // the message type being acknowledged
}

// HelloPayload opens a session for one encounter.
type HelloPayload struct {
	Encounter string `json:"encounter"`
	Secret    string `json:"secret,omitempty"`
}

// SnapshotPayload is the full turn order after a change.
type SnapshotPayload struct {
	Encounter  string           `json:"encounter"`
	Combatants []map[string]any `json:"combatants"`
}

// HitPayload reports one resolved attack.
type HitPayload struct {
	CombatantID  string  `json:"combatantId"`
	Name         string  `json:"name"`
	Location     string  `json:"location"`
	Raw          float64 `json:"raw"`
	Applied      int     `json:"applied"`
	Notification string  `json:"notification,omitempty"`
}

// NewEnvelope marshals payload under msgType.
func NewEnvelope(msgType string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: msgType, Payload: raw}, nil
}
