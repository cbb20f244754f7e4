package internal

import (
	"sort"

	"slave/internal/domain"
)

// ValidMove represents a possible legal play together with its classification.
type ValidMove struct {
	Cards []domain.Card
	Hand  domain.PlayedHand
}

// LegalMoves returns every legal play for the hand against the table. On the
// opening turn only plays containing the three of clubs survive. A clear
// table (nil) admits any classified combination.
func LegalMoves(hand []domain.Card, table *domain.PlayedHand, firstTurn bool) []ValidMove {
	sorted := append([]domain.Card{}, hand...)
	domain.SortCards(sorted)

	var candidates [][]domain.Card
	candidates = append(candidates, findSingles(sorted)...)
	candidates = append(candidates, findSameRankSets(sorted)...)
	candidates = append(candidates, findStraights(sorted)...)
	candidates = append(candidates, findGroupStraights(sorted, 2)...)
	candidates = append(candidates, findGroupStraights(sorted, 3)...)

	moves := make([]ValidMove, 0, len(candidates))
	for _, cards := range candidates {
		classified, ok := domain.ClassifyHand(cards)
		if !ok {
			continue
		}
		if firstTurn && !domain.ContainsCard(cards, domain.ThreeOfClubs) {
			continue
		}
		if !domain.CanBeat(classified, table) {
			continue
		}
		moves = append(moves, ValidMove{Cards: cards, Hand: classified})
	}
	return moves
}

func findSingles(hand []domain.Card) [][]domain.Card {
	out := make([][]domain.Card, 0, len(hand))
	for _, c := range hand {
		out = append(out, []domain.Card{c})
	}
	return out
}

// findSameRankSets emits every pair, triple and four that the hand can form.
func findSameRankSets(hand []domain.Card) [][]domain.Card {
	var out [][]domain.Card
	for _, group := range rankGroups(hand) {
		n := len(group)
		for i := 0; i < n-1; i++ {
			for j := i + 1; j < n; j++ {
				out = append(out, []domain.Card{group[i], group[j]})
			}
		}
		for i := 0; i < n-2; i++ {
			for j := i + 1; j < n-1; j++ {
				for k := j + 1; k < n; k++ {
					out = append(out, []domain.Card{group[i], group[j], group[k]})
				}
			}
		}
		if n == 4 {
			out = append(out, append([]domain.Card{}, group...))
		}
	}
	return out
}

// findStraights builds one straight per consecutive rank run and length,
// spending the lowest suit at each rank except the top, where the highest
// suit keeps the straight as strong as the hand allows.
func findStraights(hand []domain.Card) [][]domain.Card {
	groups, ranks := indexedGroups(hand)

	var out [][]domain.Card
	for i := 0; i < len(ranks); i++ {
		for length := 3; i+length <= len(ranks); length++ {
			if !consecutive(ranks[i : i+length]) {
				break
			}
			straight := make([]domain.Card, length)
			for k := 0; k < length; k++ {
				group := groups[ranks[i+k]]
				if k == length-1 {
					straight[k] = group[len(group)-1]
				} else {
					straight[k] = group[0]
				}
			}
			out = append(out, straight)
		}
	}
	return out
}

// findGroupStraights builds pair-straights (groupSize 2) and triple-straights
// (groupSize 3): two or more consecutive ranks each contributing groupSize
// cards.
func findGroupStraights(hand []domain.Card, groupSize int) [][]domain.Card {
	groups, ranks := indexedGroups(hand)

	eligible := ranks[:0:0]
	for _, r := range ranks {
		if len(groups[r]) >= groupSize {
			eligible = append(eligible, r)
		}
	}

	var out [][]domain.Card
	for i := 0; i < len(eligible); i++ {
		for length := 2; i+length <= len(eligible); length++ {
			if !consecutive(eligible[i : i+length]) {
				break
			}
			run := make([]domain.Card, 0, length*groupSize)
			for k := 0; k < length; k++ {
				run = append(run, groups[eligible[i+k]][:groupSize]...)
			}
			out = append(out, run)
		}
	}
	return out
}

// rankGroups buckets a sorted hand by rank, preserving suit order.
func rankGroups(hand []domain.Card) map[int][]domain.Card {
	groups := make(map[int][]domain.Card)
	for _, c := range hand {
		groups[c.Rank] = append(groups[c.Rank], c)
	}
	return groups
}

// indexedGroups returns straight-eligible rank groups (twos excluded) with
// the sorted list of present ranks.
func indexedGroups(hand []domain.Card) (map[int][]domain.Card, []int) {
	groups := make(map[int][]domain.Card)
	var ranks []int
	for _, c := range hand {
		if c.Rank == domain.RankTwo {
			continue
		}
		if _, ok := groups[c.Rank]; !ok {
			ranks = append(ranks, c.Rank)
		}
		groups[c.Rank] = append(groups[c.Rank], c)
	}
	sort.Ints(ranks)
	return groups, ranks
}

func consecutive(ranks []int) bool {
	for i := 1; i < len(ranks); i++ {
		if ranks[i] != ranks[i-1]+1 {
			return false
		}
	}
	return true
}
