package bot

import (
	"math/rand"
	"sort"

	"slave/internal/bot/internal"
	"slave/internal/domain"
)

// MediumBot plays conservatively: it dumps the lowest combinations first and
// occasionally passes on a contested table to hold back its strong cards.
type MediumBot struct {
	rng *rand.Rand
}

// passChance is the probability MediumBot sits out a beatable table.
const passChance = 0.2

func (b *MediumBot) CalculateMove(game *domain.Game, player *domain.Player) (Move, error) {
	if player == nil || len(player.Hand) == 0 {
		return Move{Pass: true}, nil
	}

	moves := internal.LegalMoves(player.Hand, game.TableHand, game.FirstTurn)
	if len(moves) == 0 {
		return Move{Pass: true}, nil
	}

	if game.TableHand != nil && b.rng.Float64() < passChance {
		return Move{Pass: true}, nil
	}

	// Play the weakest option: lowest top card, bigger combos win ties so
	// trash pairs go before their lone equivalents.
	sort.Slice(moves, func(i, j int) bool {
		pi := moves[i].Hand.High.Power()
		pj := moves[j].Hand.High.Power()
		if pi != pj {
			return pi < pj
		}
		return len(moves[i].Cards) > len(moves[j].Cards)
	})

	return Move{Cards: moves[0].Cards}, nil
}
