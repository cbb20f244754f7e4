package bot

import (
	"fmt"
	"math/rand"
	"time"
)

// NewBrain creates a new AI brain for the given difficulty. Each brain owns
// its own random source so bot decisions never contend with the game rng.
func NewBrain(difficulty Difficulty) (Brain, error) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	switch difficulty {
	case Easy:
		return &EasyBot{rng: rng}, nil
	case Medium:
		return &MediumBot{rng: rng}, nil
	case Hard:
		return &HardBot{rng: rng}, nil
	default:
		return nil, fmt.Errorf("unknown difficulty: %d", difficulty)
	}
}
