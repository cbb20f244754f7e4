package session

import (
	"context"

	"slave/internal/domain"
	"slave/internal/protocol"
)

// Conn is the outbound half of a peer link. transport.Peer implements it;
// tests substitute a recorder.
type Conn interface {
	Send(ctx context.Context, env protocol.Envelope) error
	Close()
	CloseWithReason(reason string)
}

// Event kinds surfaced to the UI layer.
const (
	EventRoster     = "roster"
	EventDeal       = "deal"
	EventPlay       = "play"
	EventPass       = "pass"
	EventRoundReset = "round_reset"
	EventTurn       = "turn"
	EventAutoAction = "auto_action"
	EventChat       = "chat"
	EventGameEnd    = "game_end"
	EventDisconnect = "disconnect"
	EventReconnect  = "reconnect"
	EventLinkState  = "link_state"
	EventError      = "error"
)

// Event is a user-visible happening pushed to the UI layer. The session
// never blocks on a slow consumer; events are dropped when the buffer is
// full.
type Event struct {
	Kind     string
	PlayerID string
	Name     string
	Text     string
	Cards    []domain.Card
}
