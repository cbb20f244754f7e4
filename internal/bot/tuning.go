package bot

import botinternal "slave/internal/bot/internal"

// hardBotWeights favours shedding cheap cards and whole rank groups while
// hoarding twos until the endgame.
var hardBotWeights = botinternal.Weights{
	AvgPowerPenalty: 0.5,
	TwoPenalty:      20.0,
	ComboBonus:      2.0,
	GroupClearBonus: 4.0,
	EndgameBonus:    6.0,
	FinishBonus:     1000.0,
}
