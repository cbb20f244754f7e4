package internal

import "slave/internal/domain"

// Weights tune move scoring for the heuristic strategy.
type Weights struct {
	AvgPowerPenalty float64 // per point of average card power spent
	TwoPenalty      float64 // per rank-two card spent
	ComboBonus      float64 // per card in the combination
	GroupClearBonus float64 // playing every held copy of a rank
	EndgameBonus    float64 // any play while the hand is nearly empty
	FinishBonus     float64 // the play empties the hand
}

// EndgameHandSize is the "nearly empty" threshold for the endgame bonus.
const EndgameHandSize = 4

// ScoredMove holds a move with its computed score.
type ScoredMove struct {
	Move  ValidMove
	Score float64
}

// ScoreMoves evaluates each legal move for the given hand.
func ScoreMoves(hand []domain.Card, moves []ValidMove, w Weights) []ScoredMove {
	scored := make([]ScoredMove, 0, len(moves))
	for _, mv := range moves {
		scored = append(scored, ScoredMove{Move: mv, Score: scoreMove(hand, mv, w)})
	}
	return scored
}

func scoreMove(hand []domain.Card, mv ValidMove, w Weights) float64 {
	score := 0.0

	total := 0
	twos := 0
	for _, c := range mv.Cards {
		total += c.Power()
		if c.Rank == domain.RankTwo {
			twos++
		}
	}
	score -= w.AvgPowerPenalty * float64(total) / float64(len(mv.Cards))
	score -= w.TwoPenalty * float64(twos)
	score += w.ComboBonus * float64(len(mv.Cards))

	if clearsRankGroups(hand, mv.Cards) {
		score += w.GroupClearBonus
	}

	remaining := len(hand) - len(mv.Cards)
	if len(hand) <= EndgameHandSize {
		score += w.EndgameBonus
	}
	if remaining == 0 {
		score += w.FinishBonus
	}
	return score
}

// clearsRankGroups reports whether the move spends every held copy of each
// rank it touches, leaving no orphaned leftovers of those ranks.
func clearsRankGroups(hand []domain.Card, cards []domain.Card) bool {
	held := make(map[int]int)
	for _, c := range hand {
		held[c.Rank]++
	}
	spent := make(map[int]int)
	for _, c := range cards {
		spent[c.Rank]++
	}
	for rank, n := range spent {
		if held[rank] != n {
			return false
		}
	}
	return true
}
