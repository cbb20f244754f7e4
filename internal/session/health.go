package session

import "time"

// Health states for a remote peer, as seen from the host.
type Health int

const (
	HealthOnline Health = iota
	HealthUnstable
	HealthOffline
)

func (h Health) String() string {
	switch h {
	case HealthOnline:
		return "online"
	case HealthUnstable:
		return "unstable"
	case HealthOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// PlayerConnection tracks one remote peer's liveness on the host side.
type PlayerConnection struct {
	PlayerID    string
	LastPong    time.Time
	MissedPings int
}

// HealthAt derives the status from the time since the last pong.
func (pc *PlayerConnection) HealthAt(now time.Time, unstable, offline time.Duration) Health {
	silent := now.Sub(pc.LastPong)
	switch {
	case silent >= offline:
		return HealthOffline
	case silent >= unstable:
		return HealthUnstable
	default:
		return HealthOnline
	}
}

// Pong records a heartbeat answer.
func (pc *PlayerConnection) Pong(now time.Time) {
	pc.LastPong = now
	pc.MissedPings = 0
}

// Client-side link states, derived from time since any host message.
type LinkState int

const (
	LinkHealthy LinkState = iota
	LinkStale
	LinkDisconnected
)

func (s LinkState) String() string {
	switch s {
	case LinkHealthy:
		return "healthy"
	case LinkStale:
		return "stale"
	case LinkDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// LinkStateAt classifies the client's view of the host link.
func LinkStateAt(lastSeen, now time.Time, stale, disconnected time.Duration) LinkState {
	silent := now.Sub(lastSeen)
	switch {
	case silent >= disconnected:
		return LinkDisconnected
	case silent >= stale:
		return LinkStale
	default:
		return LinkHealthy
	}
}
