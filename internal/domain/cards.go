package domain

import (
	"fmt"
	"math/rand"
	"sort"
)

// Suit orders club < diamond < heart < spade for tie-breaking same-rank cards.
type Suit int

const (
	SuitClub Suit = iota
	SuitDiamond
	SuitHeart
	SuitSpade
)

func (s Suit) String() string {
	switch s {
	case SuitClub:
		return "C"
	case SuitDiamond:
		return "D"
	case SuitHeart:
		return "H"
	case SuitSpade:
		return "S"
	default:
		return "?"
	}
}

// Card is a single playing card. Rank runs 0..12 with 3 mapped to 0 and the
// 2 mapped to 12, so the natural ordering of the game falls out of the ints.
type Card struct {
	Rank int  `json:"rank"`
	Suit Suit `json:"suit"`
}

// RankTwo is the highest rank; it never participates in straights.
const RankTwo = 12

// ThreeOfClubs opens every match.
var ThreeOfClubs = Card{Rank: 0, Suit: SuitClub}

var rankLabels = [13]string{"3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A", "2"}

func (c Card) String() string {
	if c.Rank < 0 || c.Rank > 12 {
		return fmt.Sprintf("?%s", c.Suit)
	}
	return rankLabels[c.Rank] + c.Suit.String()
}

// Power collapses rank and suit into one comparable value.
func (c Card) Power() int {
	return c.Rank*4 + int(c.Suit)
}

// DeckSize is the number of cards in play; HandSize is dealt per player.
const (
	DeckSize = 52
	HandSize = 13
)

// NewDeck returns an ordered 52-card deck.
func NewDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for r := 0; r <= 12; r++ {
		for s := SuitClub; s <= SuitSpade; s++ {
			deck = append(deck, Card{Rank: r, Suit: s})
		}
	}
	return deck
}

// ShuffleDeck returns a shuffled copy of the given deck.
func ShuffleDeck(deck []Card, rng *rand.Rand) []Card {
	out := make([]Card, len(deck))
	copy(out, deck)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// SortCards orders cards by ascending power in place.
func SortCards(cards []Card) {
	sort.Slice(cards, func(i, j int) bool {
		return cards[i].Power() < cards[j].Power()
	})
}

// ContainsCard reports whether the hand holds the exact card.
func ContainsCard(hand []Card, target Card) bool {
	for _, c := range hand {
		if c == target {
			return true
		}
	}
	return false
}

// OwnsAll reports whether every requested card is present in the hand,
// counting duplicates.
func OwnsAll(hand []Card, requested []Card) bool {
	counts := make(map[Card]int, len(hand))
	for _, c := range hand {
		counts[c]++
	}
	for _, c := range requested {
		if counts[c] == 0 {
			return false
		}
		counts[c]--
	}
	return true
}

// RemoveCards removes the specified cards from a hand and returns the updated hand.
func RemoveCards(hand []Card, toRemove []Card) []Card {
	if len(toRemove) == 0 || len(hand) == 0 {
		return hand
	}

	removeCounts := make(map[Card]int, len(toRemove))
	for _, card := range toRemove {
		removeCounts[card]++
	}

	updated := make([]Card, 0, len(hand))
	for _, card := range hand {
		if count, ok := removeCounts[card]; ok && count > 0 {
			removeCounts[card] = count - 1
			continue
		}
		updated = append(updated, card)
	}

	return updated
}
