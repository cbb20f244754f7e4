// Package session manages one room: the host's authoritative loop, the
// client mirror loop, roster membership and connection health.
package session

import (
	"errors"

	"slave/internal/protocol"
)

// Room statuses.
const (
	StatusWaiting  = "waiting"
	StatusReady    = "ready"
	StatusPlaying  = "playing"
	StatusFinished = "finished"
)

// RoomCapacity is fixed: the game is defined for exactly four seats.
const RoomCapacity = 4

var ErrRoomFull = errors.New("room is full")

// RoomState is the lobby-level view of a room. It outlives a single match:
// a round reset replaces the Game but keeps the roster.
type RoomState struct {
	Code    string
	Status  string
	IsHost  bool
	Players []*protocol.PeerInfo
}

func NewRoomState(code string, isHost bool) *RoomState {
	return &RoomState{Code: code, Status: StatusWaiting, IsHost: isHost}
}

// AddPlayer seats a joiner. Dedupe is by stable player id first, then by
// display name, so a refreshed session with a new connection id reclaims
// its old seat instead of eating a second one.
func (r *RoomState) AddPlayer(p protocol.PeerInfo) (*protocol.PeerInfo, error) {
	if existing := r.FindPlayer(p.PlayerID); existing != nil {
		existing.ConnID = p.ConnID
		existing.Connected = true
		return existing, nil
	}
	if existing := r.FindPlayerByName(p.Name); existing != nil {
		// Keep the stable id: the engine knows this seat by it, and the
		// joiner adopts it from the roster sync.
		existing.ConnID = p.ConnID
		existing.Connected = true
		return existing, nil
	}
	if len(r.Players) >= RoomCapacity {
		return nil, ErrRoomFull
	}
	seated := p
	seated.Connected = true
	r.Players = append(r.Players, &seated)
	return r.Players[len(r.Players)-1], nil
}

// RemovePlayer frees a seat entirely (lobby leave). During play the seat is
// kept and only flagged disconnected; see MarkDisconnected.
func (r *RoomState) RemovePlayer(playerID string) bool {
	for i, p := range r.Players {
		if p.PlayerID == playerID {
			r.Players = append(r.Players[:i], r.Players[i+1:]...)
			return true
		}
	}
	return false
}

func (r *RoomState) FindPlayer(playerID string) *protocol.PeerInfo {
	for _, p := range r.Players {
		if p.PlayerID == playerID {
			return p
		}
	}
	return nil
}

func (r *RoomState) FindPlayerByName(name string) *protocol.PeerInfo {
	if name == "" {
		return nil
	}
	for _, p := range r.Players {
		if p.Name == name {
			return p
		}
	}
	return nil
}

func (r *RoomState) FindByConn(connID string) *protocol.PeerInfo {
	for _, p := range r.Players {
		if p.ConnID == connID {
			return p
		}
	}
	return nil
}

// MarkDisconnected flags the seat without freeing it.
func (r *RoomState) MarkDisconnected(playerID string) {
	if p := r.FindPlayer(playerID); p != nil {
		p.Connected = false
	}
}

// SetReady flips a seat's ready flag and refreshes the room status.
func (r *RoomState) SetReady(playerID string, ready bool) {
	if p := r.FindPlayer(playerID); p != nil {
		p.Ready = ready
	}
	r.refreshStatus()
}

// AllReady reports whether every seat is taken and ready. Bots count as
// ready the moment they are seated.
func (r *RoomState) AllReady() bool {
	if len(r.Players) != RoomCapacity {
		return false
	}
	for _, p := range r.Players {
		if !p.Ready && !p.Bot {
			return false
		}
	}
	return true
}

func (r *RoomState) refreshStatus() {
	if r.Status == StatusPlaying || r.Status == StatusFinished {
		return
	}
	if r.AllReady() {
		r.Status = StatusReady
	} else {
		r.Status = StatusWaiting
	}
}

// Roster returns a value copy of the player list for broadcasting.
func (r *RoomState) Roster() []protocol.PeerInfo {
	out := make([]protocol.PeerInfo, 0, len(r.Players))
	for _, p := range r.Players {
		out = append(out, *p)
	}
	return out
}
