// Package protocol defines the wire format spoken between a room host and
// its clients: a small JSON envelope with typed payloads, plus the relay
// categories that decide who may forward what.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// Type identifies the payload carried by an Envelope.
type Type string

const (
	// Membership.
	TypeJoin       Type = "join"
	TypeLeave      Type = "leave"
	TypeReady      Type = "ready"
	TypeUnready    Type = "unready"
	TypeRosterSync Type = "roster_sync"

	// Lifecycle.
	TypeDealCards Type = "deal_cards"
	TypeGameEnd   Type = "game_end"

	// Turn actions.
	TypePlayCards Type = "play_cards"
	TypePassTurn  Type = "pass_turn"
	TypeAllPassed Type = "all_passed"

	// Timer.
	TypeTurnTimerSync Type = "turn_timer_sync"
	TypeAutoAction    Type = "auto_action"

	// Resilience.
	TypePing             Type = "ping"
	TypePong             Type = "pong"
	TypeSyncRequest      Type = "sync_request"
	TypeSyncGameState    Type = "sync_game_state"
	TypeResumeGame       Type = "resume_game"
	TypeDisconnectNotice Type = "disconnect_notice"
	TypeReconnectNotice  Type = "reconnect_notice"

	TypeChat  Type = "chat"
	TypeError Type = "error"
)

// Envelope is the outer frame of every message on the wire.
type Envelope struct {
	Type      Type            `json:"type"`
	SenderID  string          `json:"senderId"`
	Timestamp int64           `json:"timestamp"` // unix millis
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope wraps a payload for sending. A nil payload leaves the field
// empty (ping, pong, leave and ready flags carry none).
func NewEnvelope(t Type, senderID string, payload any) (Envelope, error) {
	env := Envelope{
		Type:      t,
		SenderID:  senderID,
		Timestamp: time.Now().UnixMilli(),
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Envelope{}, fmt.Errorf("encode %s payload: %w", t, err)
		}
		env.Payload = raw
	}
	return env, nil
}

// Decode unmarshals the envelope payload into v.
func (e Envelope) Decode(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%s message has no payload", e.Type)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

// IsTurnAction reports whether the type is a turn action the host must apply
// to its own engine before relaying with the authoritative next index.
func (t Type) IsTurnAction() bool {
	return t == TypePlayCards || t == TypePassTurn
}
