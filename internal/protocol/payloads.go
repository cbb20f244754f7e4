package protocol

import "slave/internal/domain"

// PeerInfo is a roster entry for one seat in the room.
type PeerInfo struct {
	ConnID    string `json:"connId"`   // per-connection, changes on refresh
	PlayerID  string `json:"playerId"` // stable across reconnects
	Name      string `json:"name"`
	Avatar    int    `json:"avatar"`
	Host      bool   `json:"host"`
	Ready     bool   `json:"ready"`
	Connected bool   `json:"connected"`
	Bot       bool   `json:"bot"`
}

// JoinPayload is sent by a client right after the websocket opens. The
// reconnect token, when present, proves a prior seat in this room.
type JoinPayload struct {
	Player         PeerInfo `json:"player"`
	ReconnectToken string   `json:"reconnectToken,omitempty"`
}

// RosterSyncPayload carries the full roster; the host rebroadcasts it on
// every membership change.
type RosterSyncPayload struct {
	RoomCode string     `json:"roomCode"`
	Status   string     `json:"status"`
	Players  []PeerInfo `json:"players"`
	// ReconnectToken is set only on the copy sent to a freshly seated peer.
	ReconnectToken string `json:"reconnectToken,omitempty"`
}

// DealCardsPayload is host → one client: that client's real hand plus the
// public view of everyone else.
type DealCardsPayload struct {
	Hand                []domain.Card `json:"hand"`
	PlayerIndex         int           `json:"playerIndex"`
	StartingPlayerIndex int           `json:"startingPlayerIndex"`
	AllHandCounts       []int         `json:"allHandCounts"`
	AllPlayers          []PeerInfo    `json:"allPlayers"`
}

// PlayCardsPayload announces a play. NextPlayerIndex is nil on the
// client → host leg and set on the host's authoritative relay.
type PlayCardsPayload struct {
	PlayerID        string             `json:"playerId"`
	Cards           []domain.Card      `json:"cards"`
	PlayedHand      *domain.PlayedHand `json:"playedHand,omitempty"`
	NextPlayerIndex *int               `json:"nextPlayerIndex,omitempty"`
}

// PassTurnPayload announces a pass, with the same augmentation rule.
type PassTurnPayload struct {
	PlayerID        string `json:"playerId"`
	NextPlayerIndex *int   `json:"nextPlayerIndex,omitempty"`
}

// AllPassedPayload signals a round reset: the table clears and the named
// player leads the new round.
type AllPassedPayload struct {
	NextPlayerID string `json:"nextPlayerId"`
	RoundNumber  int    `json:"roundNumber"`
}

// TurnTimerSyncPayload broadcasts the host-assigned deadline for the
// current turn.
type TurnTimerSyncPayload struct {
	TurnDeadline    int64  `json:"turnDeadline"` // unix millis
	CurrentPlayerID string `json:"currentPlayerId"`
}

// Auto action kinds.
const (
	AutoPlay = "auto_play"
	AutoPass = "auto_pass"
)

// AutoActionPayload is a forced move the host performed on a stalled
// player's behalf. Cards and PlayedHand are set only for AutoPlay.
type AutoActionPayload struct {
	PlayerID        string             `json:"playerId"`
	ActionType      string             `json:"actionType"`
	Cards           []domain.Card      `json:"cards,omitempty"`
	PlayedHand      *domain.PlayedHand `json:"playedHand,omitempty"`
	NextPlayerIndex *int               `json:"nextPlayerIndex,omitempty"`
}

// SyncRequestPayload asks the host for a fresh snapshot.
type SyncRequestPayload struct {
	PlayerID string `json:"playerId"`
}

// SyncGameStatePayload is the host's answer to a sync request, scoped to
// the requester: their real hand, counts for everyone else.
type SyncGameStatePayload struct {
	GameState domain.Snapshot `json:"gameState"`
}

// ResumeGamePayload ships the same snapshot to a reconnecting peer along
// with a fresh reconnect token.
type ResumeGamePayload struct {
	GameState      domain.Snapshot `json:"gameState"`
	ReconnectToken string          `json:"reconnectToken,omitempty"`
}

// DisconnectNoticePayload tells the room a peer went offline.
type DisconnectNoticePayload struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
}

// ReconnectNoticePayload tells the room a dropped peer is back.
type ReconnectNoticePayload struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
}

// GameEndPayload announces the final standings.
type GameEndPayload struct {
	FinishOrder []string                `json:"finishOrder"`
	Players     []domain.PlayerSnapshot `json:"players"`
}

// ChatPayload is relayed verbatim, never augmented.
type ChatPayload struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Text     string `json:"text"`
}

// Error codes sent back to an offending peer.
const (
	ErrCodeRoomFull    = "room_full"
	ErrCodeBadMessage  = "bad_message"
	ErrCodeIllegalMove = "illegal_move"
	ErrCodeNotInRoom   = "not_in_room"
)

// ErrorPayload is sent only to the peer that caused it.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
