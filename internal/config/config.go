package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"
)

// GameConfig holds the timing constants for a room. All durations are in
// seconds in the file and exposed as time.Duration here.
type GameConfig struct {
	TurnSeconds          int `json:"turn_seconds"`
	PingIntervalSeconds  int `json:"ping_interval_seconds"`
	UnstableAfterSeconds int `json:"unstable_after_seconds"`
	OfflineAfterSeconds  int `json:"offline_after_seconds"`
	StaleAfterSeconds    int `json:"stale_after_seconds"`
	DisconnectedSeconds  int `json:"disconnected_seconds"`
	JoinTimeoutSeconds   int `json:"join_timeout_seconds"`
	// Bot "thinking" delay bounds, so simulated players do not answer
	// instantly.
	BotDelayMinSeconds int    `json:"bot_delay_min_seconds"`
	BotDelayMaxSeconds int    `json:"bot_delay_max_seconds"`
	BotDifficulty      string `json:"bot_difficulty"`
	TokenSecret        string `json:"token_secret"`
}

var (
	cfg      *GameConfig
	loadOnce sync.Once
	loadErr  error
)

func defaults() *GameConfig {
	return &GameConfig{
		TurnSeconds:          30,
		PingIntervalSeconds:  3,
		UnstableAfterSeconds: 6,
		OfflineAfterSeconds:  12,
		StaleAfterSeconds:    8,
		DisconnectedSeconds:  15,
		JoinTimeoutSeconds:   10,
		BotDelayMinSeconds:   1,
		BotDelayMaxSeconds:   3,
		BotDifficulty:        "medium",
	}
}

// Load reads the game configuration once. A missing file is not an error:
// defaults apply, then SLAVE_* environment variables override on top.
func Load(path string) error {
	loadOnce.Do(func() {
		c := defaults()
		if path != "" {
			data, err := os.ReadFile(path)
			if err != nil {
				if !os.IsNotExist(err) {
					loadErr = fmt.Errorf("read game config: %w", err)
					return
				}
			} else if err := json.Unmarshal(data, c); err != nil {
				loadErr = fmt.Errorf("unmarshal game config: %w", err)
				return
			}
		}
		applyEnv(c)
		cfg = c
	})
	return loadErr
}

// Get returns the global game configuration, loading defaults if Load was
// never called.
func Get() *GameConfig {
	if cfg == nil {
		_ = Load("")
	}
	return cfg
}

func applyEnv(c *GameConfig) {
	envInt("SLAVE_TURN_SECONDS", &c.TurnSeconds)
	envInt("SLAVE_PING_INTERVAL_SECONDS", &c.PingIntervalSeconds)
	envInt("SLAVE_JOIN_TIMEOUT_SECONDS", &c.JoinTimeoutSeconds)
	envInt("SLAVE_BOT_DELAY_MIN_SECONDS", &c.BotDelayMinSeconds)
	envInt("SLAVE_BOT_DELAY_MAX_SECONDS", &c.BotDelayMaxSeconds)
	if v := os.Getenv("SLAVE_BOT_DIFFICULTY"); v != "" {
		c.BotDifficulty = v
	}
	if v := os.Getenv("SLAVE_TOKEN_SECRET"); v != "" {
		c.TokenSecret = v
	}
}

func envInt(key string, dst *int) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return
	}
	*dst = n
}

func (c *GameConfig) TurnDuration() time.Duration {
	return time.Duration(c.TurnSeconds) * time.Second
}

func (c *GameConfig) PingInterval() time.Duration {
	return time.Duration(c.PingIntervalSeconds) * time.Second
}

func (c *GameConfig) UnstableAfter() time.Duration {
	return time.Duration(c.UnstableAfterSeconds) * time.Second
}

func (c *GameConfig) OfflineAfter() time.Duration {
	return time.Duration(c.OfflineAfterSeconds) * time.Second
}

func (c *GameConfig) StaleAfter() time.Duration {
	return time.Duration(c.StaleAfterSeconds) * time.Second
}

func (c *GameConfig) DisconnectedAfter() time.Duration {
	return time.Duration(c.DisconnectedSeconds) * time.Second
}

func (c *GameConfig) JoinTimeout() time.Duration {
	return time.Duration(c.JoinTimeoutSeconds) * time.Second
}

func (c *GameConfig) BotDelayMin() time.Duration {
	return time.Duration(c.BotDelayMinSeconds) * time.Second
}

func (c *GameConfig) BotDelayMax() time.Duration {
	return time.Duration(c.BotDelayMaxSeconds) * time.Second
}
