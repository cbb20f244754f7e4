package domain

import (
	"errors"
	"math/rand"
	"testing"
)

func testPlayers() []*Player {
	return []*Player{
		{ID: "p1", Name: "Anan"},
		{ID: "p2", Name: "Boon"},
		{ID: "p3", Name: "Chai"},
		{ID: "p4", Name: "Dao"},
	}
}

// newPlayingGame builds a mid-match game with fixed hands, table clear,
// opening already done, p1 to act.
func newPlayingGame(t *testing.T, hands [MaxPlayers][]Card) *Game {
	t.Helper()
	g, err := NewGame(testPlayers(), rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	for i, hand := range hands {
		g.Players[i].Hand = append([]Card{}, hand...)
		SortCards(g.Players[i].Hand)
		g.Players[i].HandCount = len(hand)
	}
	g.Phase = PhasePlaying
	g.Round = 1
	g.setCurrent(0)
	return g
}

func collectCards(g *Game) map[Card]int {
	cards := make(map[Card]int)
	for _, p := range g.Players {
		for _, c := range p.Hand {
			cards[c]++
		}
	}
	for _, h := range g.History {
		for _, c := range h.Cards {
			cards[c]++
		}
	}
	return cards
}

func assertDeckConserved(t *testing.T, g *Game) {
	t.Helper()
	cards := collectCards(g)
	if len(cards) != DeckSize {
		t.Fatalf("deck not conserved: %d unique cards", len(cards))
	}
	for c, n := range cards {
		if n != 1 {
			t.Fatalf("card %v appears %d times", c, n)
		}
	}
}

func assertTurnExclusive(t *testing.T, g *Game) {
	t.Helper()
	if g.Phase != PhasePlaying {
		return
	}
	turns := 0
	for _, p := range g.Players {
		if p.IsTurn {
			turns++
		}
	}
	if turns != 1 {
		t.Fatalf("%d players hold the turn flag, want 1", turns)
	}
}

func TestStartDealsAndOpensOnThreeOfClubs(t *testing.T) {
	g, err := NewGame(testPlayers(), rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	start := g.Start()

	if g.Phase != PhasePlaying {
		t.Fatalf("phase = %v, want playing", g.Phase)
	}
	if !g.FirstTurn {
		t.Error("first turn flag not set after deal")
	}
	assertDeckConserved(t, g)
	assertTurnExclusive(t, g)

	starter := g.Players[start]
	if !ContainsCard(starter.Hand, ThreeOfClubs) {
		t.Errorf("starting player %s does not hold the three of clubs", starter.ID)
	}
	for _, p := range g.Players {
		if p.HandCount != HandSize {
			t.Errorf("player %s dealt %d cards", p.ID, p.HandCount)
		}
	}
}

func TestOpeningLegality(t *testing.T) {
	g, _ := NewGame(testPlayers(), rand.New(rand.NewSource(42)))
	start := g.Start()
	starter := g.Players[start]

	// No pass before the opening play.
	if _, err := g.Pass(starter.ID); !errors.Is(err, ErrCannotPassNow) {
		t.Errorf("pass before opening: err = %v, want ErrCannotPassNow", err)
	}

	// The opening play must include the three of clubs.
	var other Card
	for _, c := range starter.Hand {
		if c != ThreeOfClubs {
			other = c
			break
		}
	}
	if _, err := g.PlayCards(starter.ID, []Card{other}); !errors.Is(err, ErrMustOpenWithThree) {
		t.Errorf("opening without 3C: err = %v, want ErrMustOpenWithThree", err)
	}

	res, err := g.PlayCards(starter.ID, []Card{ThreeOfClubs})
	if err != nil {
		t.Fatalf("opening with 3C rejected: %v", err)
	}
	if g.FirstTurn {
		t.Error("first turn flag survived the opening play")
	}
	if g.TableHand == nil || g.TableHand.Kind != KindSingle {
		t.Error("table hand not set by opening play")
	}
	if res.NextIndex == start {
		t.Error("turn did not advance after the opening play")
	}
	assertDeckConserved(t, g)
	assertTurnExclusive(t, g)
}

func TestPlayValidation(t *testing.T) {
	g := newPlayingGame(t, [MaxPlayers][]Card{
		{{Rank: 1, Suit: SuitClub}, {Rank: 5, Suit: SuitClub}},
		{{Rank: 2, Suit: SuitClub}, {Rank: 6, Suit: SuitClub}},
		{{Rank: 3, Suit: SuitClub}, {Rank: 7, Suit: SuitClub}},
		{{Rank: 4, Suit: SuitClub}, {Rank: 8, Suit: SuitClub}},
	})

	// Out of turn.
	if _, err := g.PlayCards("p2", []Card{{Rank: 2, Suit: SuitClub}}); !errors.Is(err, ErrNotYourTurn) {
		t.Errorf("out of turn: err = %v", err)
	}
	// Cards not owned.
	if _, err := g.PlayCards("p1", []Card{{Rank: 12, Suit: SuitSpade}}); !errors.Is(err, ErrCardsNotOwned) {
		t.Errorf("unowned cards: err = %v", err)
	}
	// Invalid combination.
	if _, err := g.PlayCards("p1", []Card{{Rank: 1, Suit: SuitClub}, {Rank: 5, Suit: SuitClub}}); !errors.Is(err, ErrInvalidHand) {
		t.Errorf("invalid hand: err = %v", err)
	}

	// Legal single.
	if _, err := g.PlayCards("p1", []Card{{Rank: 5, Suit: SuitClub}}); err != nil {
		t.Fatalf("legal play rejected: %v", err)
	}
	// p2 cannot answer with a weaker single.
	if _, err := g.PlayCards("p2", []Card{{Rank: 2, Suit: SuitClub}}); !errors.Is(err, ErrCannotBeat) {
		t.Errorf("weaker single: err = %v", err)
	}
	if _, err := g.PlayCards("p2", []Card{{Rank: 6, Suit: SuitClub}}); err != nil {
		t.Fatalf("stronger single rejected: %v", err)
	}
	assertTurnExclusive(t, g)
}

func TestRoundResetAfterThreePasses(t *testing.T) {
	g := newPlayingGame(t, [MaxPlayers][]Card{
		{{Rank: 1, Suit: SuitClub}, {Rank: 5, Suit: SuitClub}},
		{{Rank: 2, Suit: SuitClub}, {Rank: 6, Suit: SuitClub}},
		{{Rank: 3, Suit: SuitClub}, {Rank: 7, Suit: SuitClub}},
		{{Rank: 4, Suit: SuitClub}, {Rank: 8, Suit: SuitClub}},
	})

	if _, err := g.PlayCards("p1", []Card{{Rank: 1, Suit: SuitClub}}); err != nil {
		t.Fatalf("p1 play: %v", err)
	}
	for _, id := range []string{"p2", "p3"} {
		res, err := g.Pass(id)
		if err != nil {
			t.Fatalf("%s pass: %v", id, err)
		}
		if res.NewRound {
			t.Fatalf("round reset too early after %s", id)
		}
	}
	res, err := g.Pass("p4")
	if err != nil {
		t.Fatalf("p4 pass: %v", err)
	}
	if !res.NewRound {
		t.Fatal("three passes did not reset the round")
	}
	if res.NextIndex != 0 {
		t.Errorf("lead returned to seat %d, want 0 (p1)", res.NextIndex)
	}
	if g.TableHand != nil {
		t.Error("table hand not cleared on round reset")
	}
	if len(g.Discards) != 0 {
		t.Error("round discard pile not cleared on reset")
	}
	if g.Round != 2 {
		t.Errorf("round = %d, want 2", g.Round)
	}
	for _, p := range g.Players {
		if p.HasPassed {
			t.Errorf("player %s still marked passed after reset", p.ID)
		}
	}
	assertTurnExclusive(t, g)
}

func TestNextTurnWrapTriggersReset(t *testing.T) {
	g := newPlayingGame(t, [MaxPlayers][]Card{
		{{Rank: 1, Suit: SuitClub}, {Rank: 5, Suit: SuitClub}},
		{{Rank: 2, Suit: SuitClub}, {Rank: 6, Suit: SuitClub}},
		{{Rank: 3, Suit: SuitClub}, {Rank: 9, Suit: SuitClub}},
		{{Rank: 4, Suit: SuitClub}, {Rank: 8, Suit: SuitClub}},
	})

	// p1 plays, p2 passes, p3 plays over it, p4 and p1 pass: the wrap back
	// to p3 must close the round even though the pass counter never reached
	// active-1 consecutively.
	if _, err := g.PlayCards("p1", []Card{{Rank: 1, Suit: SuitClub}}); err != nil {
		t.Fatalf("p1 play: %v", err)
	}
	if _, err := g.Pass("p2"); err != nil {
		t.Fatalf("p2 pass: %v", err)
	}
	if _, err := g.PlayCards("p3", []Card{{Rank: 3, Suit: SuitClub}}); err != nil {
		t.Fatalf("p3 play: %v", err)
	}
	if _, err := g.Pass("p4"); err != nil {
		t.Fatalf("p4 pass: %v", err)
	}
	res, err := g.Pass("p1")
	if err != nil {
		t.Fatalf("p1 pass: %v", err)
	}
	if !res.NewRound {
		t.Fatal("wrap back to last player did not reset the round")
	}
	if res.NextIndex != 2 {
		t.Errorf("lead at seat %d, want 2 (p3)", res.NextIndex)
	}
	assertTurnExclusive(t, g)
}

func TestFinishOrderAndScoring(t *testing.T) {
	g := newPlayingGame(t, [MaxPlayers][]Card{
		{{Rank: 12, Suit: SuitSpade}},
		{{Rank: 11, Suit: SuitSpade}},
		{{Rank: 10, Suit: SuitSpade}},
		{{Rank: 0, Suit: SuitClub}, {Rank: 1, Suit: SuitClub}},
	})

	res, err := g.PlayCards("p1", []Card{{Rank: 12, Suit: SuitSpade}})
	if err != nil {
		t.Fatalf("p1 play: %v", err)
	}
	if !res.Finished {
		t.Fatal("p1 did not finish")
	}

	// Nobody can beat the single 2S; the two remaining contenders pass and
	// the lead skips past the finished p1 to p2.
	if _, err := g.Pass("p2"); err != nil {
		t.Fatalf("p2 pass: %v", err)
	}
	passRes, err := g.Pass("p3")
	if err != nil {
		t.Fatalf("p3 pass: %v", err)
	}
	if !passRes.NewRound || passRes.NextIndex != 1 {
		t.Fatalf("lead after finisher = seat %d (newRound=%v), want 1", passRes.NextIndex, passRes.NewRound)
	}

	if _, err := g.PlayCards("p2", []Card{{Rank: 11, Suit: SuitSpade}}); err != nil {
		t.Fatalf("p2 play: %v", err)
	}
	passRes, err = g.Pass("p3")
	if err != nil {
		t.Fatalf("p3 second pass: %v", err)
	}
	if !passRes.NewRound || passRes.NextIndex != 2 {
		t.Fatalf("lead = seat %d (newRound=%v), want 2", passRes.NextIndex, passRes.NewRound)
	}

	res, err = g.PlayCards("p3", []Card{{Rank: 10, Suit: SuitSpade}})
	if err != nil {
		t.Fatalf("p3 play: %v", err)
	}
	if !res.GameEnded {
		t.Fatal("third finish did not end the game")
	}
	if g.Phase != PhaseGameEnd {
		t.Fatalf("phase = %v, want game_end", g.Phase)
	}

	wantOrder := []string{"p1", "p2", "p3", "p4"}
	for i, id := range wantOrder {
		if g.FinishOrder[i] != id {
			t.Fatalf("finish order %v, want %v", g.FinishOrder, wantOrder)
		}
	}
	p4, _ := g.PlayerByID("p4")
	if p4.FinishRank != 4 {
		t.Errorf("p4 rank = %d, want auto-assigned 4", p4.FinishRank)
	}

	wantTitles := map[string]Title{"p1": TitleKing, "p2": TitleNoble, "p3": TitleCommoner, "p4": TitleSlave}
	wantScores := map[string]int{"p1": 3, "p2": 2, "p3": 1, "p4": 0}
	for id, title := range wantTitles {
		p, _ := g.PlayerByID(id)
		if p.Title != title {
			t.Errorf("%s title = %v, want %v", id, p.Title, title)
		}
		if p.Score != wantScores[id] {
			t.Errorf("%s score = %d, want %d", id, p.Score, wantScores[id])
		}
	}
}

func TestForcedAction(t *testing.T) {
	g := newPlayingGame(t, [MaxPlayers][]Card{
		{ThreeOfClubs, {Rank: 5, Suit: SuitClub}},
		{{Rank: 2, Suit: SuitClub}, {Rank: 6, Suit: SuitClub}},
		{{Rank: 3, Suit: SuitClub}, {Rank: 7, Suit: SuitClub}},
		{{Rank: 4, Suit: SuitClub}, {Rank: 8, Suit: SuitClub}},
	})

	// Opening turn: force the three of clubs.
	g.FirstTurn = true
	if cards := g.ForcedAction(); len(cards) != 1 || cards[0] != ThreeOfClubs {
		t.Errorf("opening forced action = %v, want the three of clubs", cards)
	}

	// Clear table, not opening: force the lowest card.
	g.FirstTurn = false
	if cards := g.ForcedAction(); len(cards) != 1 || cards[0] != ThreeOfClubs {
		t.Errorf("clear-table forced action = %v, want lowest card 3C", cards)
	}

	// Table occupied: force a pass.
	if _, err := g.PlayCards("p1", []Card{{Rank: 5, Suit: SuitClub}}); err != nil {
		t.Fatalf("setup play: %v", err)
	}
	if cards := g.ForcedAction(); cards != nil {
		t.Errorf("forced action with table set = %v, want pass", cards)
	}
}

func TestRemotePlayMatchesHostState(t *testing.T) {
	hands := [MaxPlayers][]Card{
		{{Rank: 1, Suit: SuitClub}, {Rank: 5, Suit: SuitClub}},
		{{Rank: 2, Suit: SuitClub}, {Rank: 6, Suit: SuitClub}},
		{{Rank: 3, Suit: SuitClub}, {Rank: 7, Suit: SuitClub}},
		{{Rank: 4, Suit: SuitClub}, {Rank: 8, Suit: SuitClub}},
	}
	host := newPlayingGame(t, hands)

	// The client mirrors p2's perspective: only counts for everyone else.
	client := newPlayingGame(t, [MaxPlayers][]Card{nil, hands[1], nil, nil})
	for i, p := range client.Players {
		if p.ID != "p2" {
			p.Hand = nil
			p.HandCount = len(hands[i])
		}
	}

	res, err := host.PlayCards("p1", []Card{{Rank: 1, Suit: SuitClub}})
	if err != nil {
		t.Fatalf("host play: %v", err)
	}
	client.ApplyRemotePlay("p1", res.Hand, res.NextIndex)

	if client.CurrentIndex != host.CurrentIndex {
		t.Errorf("client index %d, host index %d", client.CurrentIndex, host.CurrentIndex)
	}
	cp, _ := client.PlayerByID("p1")
	hp, _ := host.PlayerByID("p1")
	if cp.HandCount != hp.HandCount {
		t.Errorf("client count %d, host count %d", cp.HandCount, hp.HandCount)
	}
	if client.TableHand == nil || client.TableHand.High != host.TableHand.High {
		t.Error("client table hand does not match host")
	}
	assertTurnExclusive(t, client)
}

func TestSnapshotRoundTrip(t *testing.T) {
	hands := [MaxPlayers][]Card{
		{{Rank: 1, Suit: SuitClub}, {Rank: 5, Suit: SuitClub}},
		{{Rank: 2, Suit: SuitClub}, {Rank: 6, Suit: SuitClub}},
		{{Rank: 3, Suit: SuitClub}, {Rank: 7, Suit: SuitClub}},
		{{Rank: 4, Suit: SuitClub}, {Rank: 8, Suit: SuitClub}},
	}
	host := newPlayingGame(t, hands)
	if _, err := host.PlayCards("p1", []Card{{Rank: 1, Suit: SuitClub}}); err != nil {
		t.Fatalf("host play: %v", err)
	}

	snap := host.Snapshot("p2")
	if len(snap.Hand) != 2 {
		t.Fatalf("snapshot hand size %d, want 2", len(snap.Hand))
	}
	for _, ps := range snap.Players {
		if ps.ID == "p2" {
			continue
		}
		if ps.ID == "p1" && ps.HandCount != 1 {
			t.Errorf("p1 count in snapshot = %d, want 1", ps.HandCount)
		}
	}

	client := newPlayingGame(t, [MaxPlayers][]Card{nil, hands[1], nil, nil})
	if !client.ApplySnapshot("p2", snap) {
		t.Fatal("fresh snapshot rejected")
	}
	if client.CurrentIndex != host.CurrentIndex {
		t.Errorf("client index %d, host index %d", client.CurrentIndex, host.CurrentIndex)
	}
}

func TestSnapshotStaleRejected(t *testing.T) {
	hands := [MaxPlayers][]Card{
		{{Rank: 1, Suit: SuitClub}, {Rank: 5, Suit: SuitClub}},
		{{Rank: 2, Suit: SuitClub}, {Rank: 6, Suit: SuitClub}},
		{{Rank: 3, Suit: SuitClub}, {Rank: 7, Suit: SuitClub}},
		{{Rank: 4, Suit: SuitClub}, {Rank: 8, Suit: SuitClub}},
	}
	host := newPlayingGame(t, hands)
	snap := host.Snapshot("p1") // taken before p1's play: 2 cards

	client := newPlayingGame(t, hands)
	if _, err := client.PlayCards("p1", []Card{{Rank: 1, Suit: SuitClub}}); err != nil {
		t.Fatalf("client play: %v", err)
	}
	if client.ApplySnapshot("p1", snap) {
		t.Fatal("stale snapshot was applied over a further-advanced hand")
	}
	p1, _ := client.PlayerByID("p1")
	if p1.HandCount != 1 {
		t.Errorf("client hand regressed to %d cards", p1.HandCount)
	}
}

func TestResetRoundKeepsScores(t *testing.T) {
	g := newPlayingGame(t, [MaxPlayers][]Card{
		{{Rank: 1, Suit: SuitClub}}, {{Rank: 2, Suit: SuitClub}}, {{Rank: 3, Suit: SuitClub}}, {{Rank: 4, Suit: SuitClub}},
	})
	g.Players[0].Score = 7
	g.ResetRound()
	if g.Phase != PhaseWaiting {
		t.Errorf("phase = %v, want waiting", g.Phase)
	}
	if g.Players[0].Score != 7 {
		t.Error("cumulative score lost on round reset")
	}

	g.Players[0].Score = 7
	g.ResetGame()
	if g.Players[0].Score != 0 {
		t.Error("full reset kept cumulative score")
	}
}
