package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slave.json")
	if err := os.WriteFile(path, []byte(`{"turn_seconds": 45, "bot_difficulty": "hard"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SLAVE_PING_INTERVAL_SECONDS", "5")
	t.Setenv("SLAVE_TURN_SECONDS", "not-a-number")

	if err := Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	c := Get()

	if c.TurnDuration() != 45*time.Second {
		t.Errorf("file value ignored: turn = %v", c.TurnDuration())
	}
	if c.PingInterval() != 5*time.Second {
		t.Errorf("env override ignored: ping = %v", c.PingInterval())
	}
	if c.BotDifficulty != "hard" {
		t.Errorf("bot difficulty = %q", c.BotDifficulty)
	}
	// Untouched keys keep their defaults.
	if c.JoinTimeout() != 10*time.Second {
		t.Errorf("join timeout default lost: %v", c.JoinTimeout())
	}
}
