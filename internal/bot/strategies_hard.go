package bot

import (
	"math/rand"
	"sort"

	"slave/internal/bot/internal"
	"slave/internal/domain"
)

// HardBot scores every legal move with the heuristic weights and samples
// among the top few, so two games against it never feel identical.
type HardBot struct {
	rng *rand.Rand
}

// sampleWidth bounds how many of the best-scored moves HardBot picks from.
const sampleWidth = 3

func (b *HardBot) CalculateMove(game *domain.Game, player *domain.Player) (Move, error) {
	if player == nil || len(player.Hand) == 0 {
		return Move{Pass: true}, nil
	}

	moves := internal.LegalMoves(player.Hand, game.TableHand, game.FirstTurn)
	if len(moves) == 0 {
		return Move{Pass: true}, nil
	}

	scored := internal.ScoreMoves(player.Hand, moves, hardBotWeights)
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		// Save higher cards when scores are equal.
		return scored[i].Move.Hand.High.Power() < scored[j].Move.Hand.High.Power()
	})

	// Never gamble away a win.
	if len(scored[0].Move.Cards) == len(player.Hand) {
		return Move{Cards: scored[0].Move.Cards}, nil
	}

	width := sampleWidth
	if len(scored) < width {
		width = len(scored)
	}
	pick := scored[b.rng.Intn(width)]
	return Move{Cards: pick.Move.Cards}, nil
}
