package domain

import "time"

// PlayerSnapshot is the redacted per-player view shipped in snapshots.
// Opponent hands travel as counts only; real cards never leave the host
// except to their owner.
type PlayerSnapshot struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Avatar     int    `json:"avatar"`
	HandCount  int    `json:"handCount"`
	HasPassed  bool   `json:"hasPassed"`
	FinishRank int    `json:"finishRank"`
	Title      Title  `json:"title,omitempty"`
	Score      int    `json:"score"`
	RoundScore int    `json:"roundScore"`
	IsTurn     bool   `json:"isTurn"`
	IsBot      bool   `json:"isBot"`
}

// Snapshot is a full resync image scoped to one requester.
type Snapshot struct {
	Phase        Phase            `json:"phase"`
	Round        int              `json:"round"`
	TurnDeadline int64            `json:"turnDeadline"` // unix millis, zero when unset
	CurrentIndex int              `json:"currentIndex"`
	PlayerIndex  int              `json:"playerIndex"` // requester's seat
	Hand         []Card           `json:"hand"`        // requester's real hand
	TableHand    *PlayedHand      `json:"tableHand,omitempty"`
	LastPlayerID string           `json:"lastPlayerId,omitempty"`
	PassCount    int              `json:"passCount"`
	FirstTurn    bool             `json:"firstTurn"`
	Discards     []PlayedHand     `json:"discards,omitempty"`
	FinishOrder  []string         `json:"finishOrder,omitempty"`
	Players      []PlayerSnapshot `json:"players"`
}

// Snapshot builds the resync image for the given requester.
func (g *Game) Snapshot(forID string) Snapshot {
	snap := Snapshot{
		Phase:        g.Phase,
		Round:        g.Round,
		CurrentIndex: g.CurrentIndex,
		PlayerIndex:  g.indexOf(forID),
		TableHand:    g.TableHand,
		LastPlayerID: g.LastPlayerID,
		PassCount:    g.PassCount,
		FirstTurn:    g.FirstTurn,
		Discards:     append([]PlayedHand{}, g.Discards...),
		FinishOrder:  append([]string{}, g.FinishOrder...),
	}
	if !g.TurnDeadline.IsZero() {
		snap.TurnDeadline = g.TurnDeadline.UnixMilli()
	}

	snap.Players = make([]PlayerSnapshot, len(g.Players))
	for i, p := range g.Players {
		snap.Players[i] = PlayerSnapshot{
			ID:         p.ID,
			Name:       p.Name,
			Avatar:     p.Avatar,
			HandCount:  p.HandCount,
			HasPassed:  p.HasPassed,
			FinishRank: p.FinishRank,
			Title:      p.Title,
			Score:      p.Score,
			RoundScore: p.RoundScore,
			IsTurn:     p.IsTurn,
			IsBot:      p.IsBot,
		}
		if p.ID == forID {
			snap.Hand = append([]Card{}, p.Hand...)
		}
	}
	return snap
}

// ApplySnapshot overwrites local state with a host snapshot. It refuses
// snapshots that would grow the requester's own hand back: a hand already
// shrunk further locally means the snapshot predates an applied play.
func (g *Game) ApplySnapshot(selfID string, snap Snapshot) bool {
	if self, ok := g.PlayerByID(selfID); ok {
		if snap.Phase == PhasePlaying && g.Phase == PhasePlaying && len(snap.Hand) > self.HandCount {
			return false
		}
	}

	g.Phase = snap.Phase
	g.Round = snap.Round
	if snap.TurnDeadline > 0 {
		g.TurnDeadline = time.UnixMilli(snap.TurnDeadline)
	} else {
		g.TurnDeadline = time.Time{}
	}
	g.TableHand = snap.TableHand
	g.LastPlayerID = snap.LastPlayerID
	g.PassCount = snap.PassCount
	g.FirstTurn = snap.FirstTurn
	g.Discards = append([]PlayedHand{}, snap.Discards...)
	g.FinishOrder = append([]string{}, snap.FinishOrder...)

	for _, ps := range snap.Players {
		p, ok := g.PlayerByID(ps.ID)
		if !ok {
			continue
		}
		p.Name = ps.Name
		p.Avatar = ps.Avatar
		p.HandCount = ps.HandCount
		p.HasPassed = ps.HasPassed
		p.FinishRank = ps.FinishRank
		p.Title = ps.Title
		p.Score = ps.Score
		p.RoundScore = ps.RoundScore
		p.IsBot = ps.IsBot
		if p.ID == selfID {
			p.Hand = append([]Card{}, snap.Hand...)
			SortCards(p.Hand)
			p.HandCount = len(p.Hand)
		}
	}

	if snap.CurrentIndex >= 0 && snap.CurrentIndex < len(g.Players) {
		g.setCurrent(snap.CurrentIndex)
	}
	return true
}
