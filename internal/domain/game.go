package domain

import (
	"errors"
	"math/rand"
	"time"
)

// Phase represents the lifecycle stage of a match.
type Phase string

const (
	// PhaseWaiting is the pre-deal state where the roster is known but hands are empty.
	PhaseWaiting Phase = "waiting"
	// PhaseDealing is the transient state while cards are shuffled and dealt.
	PhaseDealing Phase = "dealing"
	// PhasePlaying is the active game state where cards are played.
	PhasePlaying Phase = "playing"
	// PhaseGameEnd is the state after three players have emptied their hands.
	PhaseGameEnd Phase = "game_end"
)

// Title is the rank name awarded by finish order.
type Title string

const (
	TitleKing     Title = "king"
	TitleNoble    Title = "noble"
	TitleCommoner Title = "commoner"
	TitleSlave    Title = "slave"
)

// MaxPlayers is fixed; the rules below assume exactly four seats.
const MaxPlayers = 4

var finishTitles = [MaxPlayers]Title{TitleKing, TitleNoble, TitleCommoner, TitleSlave}
var finishScores = [MaxPlayers]int{3, 2, 1, 0}

// TitleForRank maps a 1-based finish rank to its title.
func TitleForRank(rank int) Title {
	if rank < 1 || rank > MaxPlayers {
		return ""
	}
	return finishTitles[rank-1]
}

// Player holds the per-match state for a participant.
type Player struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar int    `json:"avatar"`

	// Hand holds real cards for the local player (and for everyone on the
	// host). For hidden opponents it stays empty and HandCount alone tracks
	// size; HandCount always mirrors len(Hand) when Hand is real.
	Hand      []Card `json:"-"`
	HandCount int    `json:"handCount"`

	IsTurn     bool  `json:"isTurn"`
	HasPassed  bool  `json:"hasPassed"`
	FinishRank int   `json:"finishRank"` // 1..4, 0 while still playing
	Title      Title `json:"title,omitempty"`
	Score      int   `json:"score"`
	RoundScore int   `json:"roundScore"`
	IsBot      bool  `json:"isBot"`
}

// Game is the authoritative state machine for one match. All mutation goes
// through its methods; callers own serialization (the session loop is the
// single writer).
type Game struct {
	Phase        Phase
	Round        int
	TurnDeadline time.Time

	Players      []*Player // seat order, fixed for the match
	CurrentIndex int

	TableHand    *PlayedHand
	LastPlayerID string
	PassCount    int
	FirstTurn    bool

	// Discards is the current round's pile; it clears on every round reset.
	// History keeps every hand played since the deal, so hands plus History
	// always account for the full deck.
	Discards []PlayedHand
	History  []PlayedHand

	FinishOrder []string

	rng *rand.Rand
}

var (
	ErrNotPlaying        = errors.New("game not in playing phase")
	ErrUnknownPlayer     = errors.New("player not found")
	ErrPlayerFinished    = errors.New("player already finished")
	ErrNotYourTurn       = errors.New("not this player's turn")
	ErrCardsNotOwned     = errors.New("player does not own all cards")
	ErrInvalidHand       = errors.New("cards form no legal hand")
	ErrCannotBeat        = errors.New("hand does not beat the table")
	ErrMustOpenWithThree = errors.New("opening play must include the three of clubs")
	ErrCannotPassNow     = errors.New("pass is not allowed when the table is clear")
	ErrWrongPlayerCount  = errors.New("match requires exactly four players")
)

// NewGame builds a match over the given roster with empty hands. Pass a nil
// rng to seed from the clock.
func NewGame(players []*Player, rng *rand.Rand) (*Game, error) {
	if len(players) != MaxPlayers {
		return nil, ErrWrongPlayerCount
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Game{
		Phase:   PhaseWaiting,
		Players: players,
		rng:     rng,
	}, nil
}

// Start shuffles, deals thirteen cards to each player and hands the opening
// turn to whoever holds the three of clubs. Returns the starting seat index.
// Host-only: clients mirror the deal via DealLocal.
func (g *Game) Start() int {
	g.Phase = PhaseDealing

	deck := ShuffleDeck(NewDeck(), g.rng)
	start := 0
	for i, p := range g.Players {
		p.Hand = append([]Card{}, deck[i*HandSize:(i+1)*HandSize]...)
		SortCards(p.Hand)
		p.HandCount = HandSize
		p.HasPassed = false
		p.FinishRank = 0
		p.Title = ""
		p.RoundScore = 0
		if ContainsCard(p.Hand, ThreeOfClubs) {
			start = i
		}
	}

	g.Round = 1
	g.FirstTurn = true
	g.TableHand = nil
	g.LastPlayerID = ""
	g.PassCount = 0
	g.Discards = nil
	g.History = nil
	g.FinishOrder = nil
	g.Phase = PhasePlaying
	g.setCurrent(start)
	return start
}

// DealLocal mirrors a host deal on a client: the local player's real hand,
// counts for everyone, and the host-chosen starting seat.
func (g *Game) DealLocal(selfID string, hand []Card, counts []int, startIndex int) {
	for i, p := range g.Players {
		p.Hand = nil
		p.HandCount = HandSize
		if i < len(counts) {
			p.HandCount = counts[i]
		}
		p.HasPassed = false
		p.FinishRank = 0
		p.Title = ""
		p.RoundScore = 0
		if p.ID == selfID {
			p.Hand = append([]Card{}, hand...)
			SortCards(p.Hand)
			p.HandCount = len(p.Hand)
		}
	}
	g.Round = 1
	g.FirstTurn = true
	g.TableHand = nil
	g.LastPlayerID = ""
	g.PassCount = 0
	g.Discards = nil
	g.History = nil
	g.FinishOrder = nil
	g.Phase = PhasePlaying
	g.setCurrent(startIndex)
}

// PlayResult reports the state transition caused by an accepted play.
type PlayResult struct {
	Hand      PlayedHand
	NextIndex int
	Finished  bool // the actor emptied their hand
	NewRound  bool
	GameEnded bool
}

// PlayCards validates and applies a play for the given player. Illegal moves
// return a sentinel error and leave the state untouched; the caller logs and
// drops them without emitting anything.
func (g *Game) PlayCards(playerID string, cards []Card) (PlayResult, error) {
	if g.Phase != PhasePlaying {
		return PlayResult{}, ErrNotPlaying
	}
	p, ok := g.PlayerByID(playerID)
	if !ok {
		return PlayResult{}, ErrUnknownPlayer
	}
	if p.FinishRank != 0 {
		return PlayResult{}, ErrPlayerFinished
	}
	if g.Players[g.CurrentIndex].ID != playerID {
		return PlayResult{}, ErrNotYourTurn
	}
	if !OwnsAll(p.Hand, cards) {
		return PlayResult{}, ErrCardsNotOwned
	}
	hand, ok := ClassifyHand(cards)
	if !ok {
		return PlayResult{}, ErrInvalidHand
	}
	if g.FirstTurn && !ContainsCard(hand.Cards, ThreeOfClubs) {
		return PlayResult{}, ErrMustOpenWithThree
	}
	if !CanBeat(hand, g.TableHand) {
		return PlayResult{}, ErrCannotBeat
	}

	hand.PlayerID = playerID
	g.applyPlay(p, hand)

	res := PlayResult{Hand: hand, Finished: p.FinishRank != 0}
	if g.Phase == PhaseGameEnd {
		res.GameEnded = true
		res.NextIndex = g.CurrentIndex
		return res, nil
	}
	res.NextIndex, res.NewRound = g.nextTurn()
	return res, nil
}

// PassResult reports the state transition caused by an accepted pass.
type PassResult struct {
	NextIndex int
	NewRound  bool
	Round     int
}

// Pass marks the player passed for the round. Passing is illegal on the
// opening turn and whenever the table is clear: someone must open.
func (g *Game) Pass(playerID string) (PassResult, error) {
	if g.Phase != PhasePlaying {
		return PassResult{}, ErrNotPlaying
	}
	p, ok := g.PlayerByID(playerID)
	if !ok {
		return PassResult{}, ErrUnknownPlayer
	}
	if p.FinishRank != 0 {
		return PassResult{}, ErrPlayerFinished
	}
	if g.Players[g.CurrentIndex].ID != playerID {
		return PassResult{}, ErrNotYourTurn
	}
	if g.FirstTurn || g.TableHand == nil {
		return PassResult{}, ErrCannotPassNow
	}

	p.HasPassed = true
	g.PassCount++

	if g.PassCount >= g.activeCount()-1 {
		idx := g.resetRoundState()
		return PassResult{NextIndex: idx, NewRound: true, Round: g.Round}, nil
	}

	idx, newRound := g.nextTurn()
	return PassResult{NextIndex: idx, NewRound: newRound, Round: g.Round}, nil
}

// ApplyRemotePlay mirrors a validated play on a peer. Validation is skipped:
// the message either originated here or carries the host's authoritative
// outcome. Hidden opponents shrink by count; real hands shed the cards.
func (g *Game) ApplyRemotePlay(playerID string, hand PlayedHand, nextIndex int) {
	if g.Phase != PhasePlaying {
		return
	}
	p, ok := g.PlayerByID(playerID)
	if !ok {
		return
	}

	hand.PlayerID = playerID
	if len(p.Hand) > 0 {
		p.Hand = RemoveCards(p.Hand, hand.Cards)
	}
	if p.HandCount >= len(hand.Cards) {
		p.HandCount -= len(hand.Cards)
	} else {
		p.HandCount = 0
	}

	table := hand
	g.TableHand = &table
	g.LastPlayerID = playerID
	g.PassCount = 0
	g.FirstTurn = false
	g.Discards = append(g.Discards, hand)
	g.History = append(g.History, hand)

	if p.HandCount == 0 && p.FinishRank == 0 {
		g.recordFinish(p)
	}
	if g.Phase == PhasePlaying && nextIndex >= 0 && nextIndex < len(g.Players) {
		g.setCurrent(nextIndex)
	}
}

// ApplyRemotePass mirrors a pass on a peer. A negative nextIndex leaves the
// turn pointer alone (a round reset message follows).
func (g *Game) ApplyRemotePass(playerID string, nextIndex int) {
	if g.Phase != PhasePlaying {
		return
	}
	p, ok := g.PlayerByID(playerID)
	if !ok {
		return
	}
	p.HasPassed = true
	g.PassCount++
	if nextIndex >= 0 && nextIndex < len(g.Players) {
		g.setCurrent(nextIndex)
	}
}

// ApplyRoundReset mirrors a host-announced round reset on a peer.
func (g *Game) ApplyRoundReset(nextPlayerID string, round int) {
	if g.Phase != PhasePlaying {
		return
	}
	g.TableHand = nil
	g.Discards = nil
	g.PassCount = 0
	if round > g.Round {
		g.Round = round
	}
	for _, p := range g.Players {
		p.HasPassed = false
	}
	if idx := g.indexOf(nextPlayerID); idx >= 0 {
		g.setCurrent(idx)
	}
}

// ApplyTurnSync mirrors a host-announced turn pointer. Out-of-range indexes
// are ignored.
func (g *Game) ApplyTurnSync(idx int) {
	if g.Phase != PhasePlaying || idx < 0 || idx >= len(g.Players) {
		return
	}
	g.setCurrent(idx)
}

// ForcedAction computes the move the host plays on a stalled player's behalf:
// the three of clubs on the opening turn, the lowest card when the table is
// clear, otherwise a pass (nil cards).
func (g *Game) ForcedAction() []Card {
	p := g.CurrentPlayer()
	if p == nil {
		return nil
	}
	if g.FirstTurn {
		return []Card{ThreeOfClubs}
	}
	if g.TableHand == nil {
		if len(p.Hand) == 0 {
			return nil
		}
		lowest := p.Hand[0]
		for _, c := range p.Hand[1:] {
			if c.Power() < lowest.Power() {
				lowest = c
			}
		}
		return []Card{lowest}
	}
	return nil
}

// ResetRound tears the match down for the next one, keeping cumulative
// scores and titles. The roster survives.
func (g *Game) ResetRound() {
	g.resetMatch(true)
}

// ResetGame wipes everything back to a fresh waiting state, scores included.
func (g *Game) ResetGame() {
	g.resetMatch(false)
}

func (g *Game) resetMatch(keepScores bool) {
	for _, p := range g.Players {
		p.Hand = nil
		p.HandCount = 0
		p.IsTurn = false
		p.HasPassed = false
		p.FinishRank = 0
		p.RoundScore = 0
		if !keepScores {
			p.Score = 0
			p.Title = ""
		}
	}
	g.Phase = PhaseWaiting
	g.Round = 0
	g.TurnDeadline = time.Time{}
	g.CurrentIndex = 0
	g.TableHand = nil
	g.LastPlayerID = ""
	g.PassCount = 0
	g.FirstTurn = false
	g.Discards = nil
	g.History = nil
	g.FinishOrder = nil
}

// CurrentPlayer returns the player whose turn it is, or nil outside playing.
func (g *Game) CurrentPlayer() *Player {
	if g.Phase != PhasePlaying || g.CurrentIndex < 0 || g.CurrentIndex >= len(g.Players) {
		return nil
	}
	return g.Players[g.CurrentIndex]
}

// PlayerByID looks a player up by id.
func (g *Game) PlayerByID(id string) (*Player, bool) {
	for _, p := range g.Players {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// HandCounts returns every seat's remaining card count in order.
func (g *Game) HandCounts() []int {
	counts := make([]int, len(g.Players))
	for i, p := range g.Players {
		counts[i] = p.HandCount
	}
	return counts
}

func (g *Game) indexOf(id string) int {
	for i, p := range g.Players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (g *Game) setCurrent(idx int) {
	g.CurrentIndex = idx
	for i, p := range g.Players {
		p.IsTurn = i == idx
	}
}

func (g *Game) activeCount() int {
	count := 0
	for _, p := range g.Players {
		if p.FinishRank == 0 {
			count++
		}
	}
	return count
}

// applyPlay commits an already-validated hand for the player.
func (g *Game) applyPlay(p *Player, hand PlayedHand) {
	p.Hand = RemoveCards(p.Hand, hand.Cards)
	p.HandCount = len(p.Hand)
	p.HasPassed = false

	table := hand
	g.TableHand = &table
	g.LastPlayerID = p.ID
	g.PassCount = 0
	g.FirstTurn = false
	g.Discards = append(g.Discards, hand)
	g.History = append(g.History, hand)

	if p.HandCount == 0 {
		g.recordFinish(p)
	}
}

// recordFinish assigns the next finish rank; the third finish drags the
// remaining player into last place and ends the game.
func (g *Game) recordFinish(p *Player) {
	p.FinishRank = len(g.FinishOrder) + 1
	g.FinishOrder = append(g.FinishOrder, p.ID)

	if len(g.FinishOrder) == MaxPlayers-1 {
		for _, last := range g.Players {
			if last.FinishRank == 0 {
				last.FinishRank = MaxPlayers
				g.FinishOrder = append(g.FinishOrder, last.ID)
				break
			}
		}
		g.finishGame()
	}
}

func (g *Game) finishGame() {
	for _, p := range g.Players {
		if p.FinishRank == 0 {
			continue
		}
		p.Title = TitleForRank(p.FinishRank)
		p.RoundScore = finishScores[p.FinishRank-1]
		p.Score += p.RoundScore
		p.IsTurn = false
	}
	g.Phase = PhaseGameEnd
	g.TurnDeadline = time.Time{}
}

// nextTurn advances to the next player who has neither finished nor passed
// this round. Wrapping all the way back to the last player who played is
// itself a round-end condition; the explicit pass-count check in Pass covers
// the common case but this guards the timing races.
func (g *Game) nextTurn() (int, bool) {
	n := len(g.Players)
	for step := 1; step <= n; step++ {
		idx := (g.CurrentIndex + step) % n
		p := g.Players[idx]
		if p.FinishRank != 0 || p.HasPassed {
			continue
		}
		if p.ID == g.LastPlayerID {
			return g.resetRoundState(), true
		}
		g.setCurrent(idx)
		return idx, false
	}
	return g.resetRoundState(), true
}

// resetRoundState clears the table for a new round and hands the lead back to
// the last player who played, skipping forward past finished seats.
func (g *Game) resetRoundState() int {
	g.TableHand = nil
	g.Discards = nil
	g.PassCount = 0
	g.Round++
	for _, p := range g.Players {
		p.HasPassed = false
	}

	idx := g.indexOf(g.LastPlayerID)
	if idx < 0 {
		idx = g.CurrentIndex
	}
	for g.Players[idx].FinishRank != 0 {
		idx = (idx + 1) % len(g.Players)
	}
	g.setCurrent(idx)
	return idx
}
