package bot

import (
	"math/rand"

	"slave/internal/bot/internal"
	"slave/internal/domain"
)

// EasyBot picks a uniformly random legal move. It never passes when it can
// act, which makes it easy to read and easy to bait.
type EasyBot struct {
	rng *rand.Rand
}

func (b *EasyBot) CalculateMove(game *domain.Game, player *domain.Player) (Move, error) {
	if player == nil || len(player.Hand) == 0 {
		return Move{Pass: true}, nil
	}

	moves := internal.LegalMoves(player.Hand, game.TableHand, game.FirstTurn)
	if len(moves) == 0 {
		return Move{Pass: true}, nil
	}

	pick := moves[b.rng.Intn(len(moves))]
	return Move{Cards: pick.Cards}, nil
}
