package domain

import "sort"

// HandKind classifies a set of played cards.
type HandKind int

const (
	KindInvalid HandKind = iota
	KindSingle
	KindPair
	KindTriple
	KindFour
	KindStraight
	KindPairStraight
	KindTripleStraight
)

func (k HandKind) String() string {
	switch k {
	case KindSingle:
		return "single"
	case KindPair:
		return "pair"
	case KindTriple:
		return "triple"
	case KindFour:
		return "four"
	case KindStraight:
		return "straight"
	case KindPairStraight:
		return "pair_straight"
	case KindTripleStraight:
		return "triple_straight"
	default:
		return "invalid"
	}
}

// PlayedHand is a classified set of cards on the table. Construct only via
// ClassifyHand; a hand that does not classify never becomes a PlayedHand.
type PlayedHand struct {
	Kind     HandKind `json:"kind"`
	Cards    []Card   `json:"cards"` // sorted ascending by power
	High     Card     `json:"high"`
	PlayerID string   `json:"playerId,omitempty"`
}

// ClassifyHand detects the combination formed by the cards. The second return
// is false when the cards form no legal hand.
func ClassifyHand(cards []Card) (PlayedHand, bool) {
	n := len(cards)
	if n == 0 {
		return PlayedHand{}, false
	}

	sorted := append([]Card{}, cards...)
	SortCards(sorted)
	high := sorted[n-1]

	if n == 1 {
		return PlayedHand{Kind: KindSingle, Cards: sorted, High: high}, true
	}

	if allSameRank(sorted) {
		switch n {
		case 2:
			return PlayedHand{Kind: KindPair, Cards: sorted, High: high}, true
		case 3:
			return PlayedHand{Kind: KindTriple, Cards: sorted, High: high}, true
		case 4:
			return PlayedHand{Kind: KindFour, Cards: sorted, High: high}, true
		}
		return PlayedHand{}, false
	}

	if isStraight(sorted) {
		return PlayedHand{Kind: KindStraight, Cards: sorted, High: high}, true
	}
	if isGroupStraight(sorted, 2) {
		return PlayedHand{Kind: KindPairStraight, Cards: sorted, High: high}, true
	}
	if isGroupStraight(sorted, 3) {
		return PlayedHand{Kind: KindTripleStraight, Cards: sorted, High: high}, true
	}

	return PlayedHand{}, false
}

// CanBeat reports whether the candidate may be played over the table hand.
// A nil table means the round is open and any classified hand is playable.
func CanBeat(candidate PlayedHand, table *PlayedHand) bool {
	if candidate.Kind == KindInvalid {
		return false
	}
	if table == nil {
		return true
	}

	// Cross-kind overrides: a triple takes any single, a four takes any
	// single or pair, regardless of rank.
	switch candidate.Kind {
	case KindTriple:
		if table.Kind == KindSingle {
			return true
		}
	case KindFour:
		if table.Kind == KindSingle || table.Kind == KindPair {
			return true
		}
	}

	if candidate.Kind != table.Kind || len(candidate.Cards) != len(table.Cards) {
		return false
	}
	return candidate.High.Power() > table.High.Power()
}

func allSameRank(cards []Card) bool {
	if len(cards) == 0 {
		return false
	}
	r := cards[0].Rank
	for _, c := range cards {
		if c.Rank != r {
			return false
		}
	}
	return true
}

// isStraight requires 3+ consecutive distinct ranks with no 2s.
func isStraight(cards []Card) bool {
	if len(cards) < 3 {
		return false
	}
	ranks := make([]int, len(cards))
	for i, c := range cards {
		if c.Rank == RankTwo {
			return false
		}
		ranks[i] = c.Rank
	}
	sort.Ints(ranks)
	for i := 1; i < len(ranks); i++ {
		if ranks[i] != ranks[i-1]+1 {
			return false
		}
	}
	return true
}

// isGroupStraight covers pair-straights (groupSize 2, 2+ consecutive pairs)
// and triple-straights (groupSize 3, 2+ consecutive triples). No 2s.
func isGroupStraight(cards []Card, groupSize int) bool {
	if len(cards) < groupSize*2 || len(cards)%groupSize != 0 {
		return false
	}
	ranks := make([]int, len(cards))
	for i, c := range cards {
		if c.Rank == RankTwo {
			return false
		}
		ranks[i] = c.Rank
	}
	sort.Ints(ranks)

	groupRanks := make([]int, 0, len(ranks)/groupSize)
	for i := 0; i < len(ranks); i += groupSize {
		for j := 1; j < groupSize; j++ {
			if ranks[i+j] != ranks[i] {
				return false
			}
		}
		groupRanks = append(groupRanks, ranks[i])
	}

	for i := 1; i < len(groupRanks); i++ {
		if groupRanks[i] != groupRanks[i-1]+1 {
			return false
		}
	}
	return true
}
