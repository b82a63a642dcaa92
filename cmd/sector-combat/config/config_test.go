package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	config := GetDefaultConfig()
	if err := config.Validate(); err != nil {
		t.Fatalf("Default config should validate: %v", err)
	}

	if config.Session.PlanningWindow != 30*time.Second {
		t.Errorf("Expected 30s planning window, got %v", config.Session.PlanningWindow)
	}

	if config.Session.MaxTicks != 10 {
		t.Errorf("Expected 10 max ticks, got %d", config.Session.MaxTicks)
	}

	if config.Scale.SkirmishMax != 50 {
		t.Errorf("Expected skirmish threshold 50, got %d", config.Scale.SkirmishMax)
	}

	if config.Scale.MassiveWarMax != 5000 {
		t.Errorf("Expected massive war threshold 5000, got %d", config.Scale.MassiveWarMax)
	}

	if config.Drones.EffectivenessPerTen != 0.05 {
		t.Errorf("Expected 5%% effectiveness per ten drones, got %f", config.Drones.EffectivenessPerTen)
	}

	if _, ok := config.Escape.BaseByClass["escape_pod"]; !ok {
		t.Error("Expected escape_pod in escape base table")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*BalanceConfig)
	}{
		{"zero planning window", func(c *BalanceConfig) { c.Session.PlanningWindow = 0 }},
		{"zero max ticks", func(c *BalanceConfig) { c.Session.MaxTicks = 0 }},
		{"crit chance above 1", func(c *BalanceConfig) { c.Damage.CriticalChance = 1.5 }},
		{"negative destruction chance", func(c *BalanceConfig) { c.Drones.BaseDestructionChance = -0.1 }},
		{"inverted absorb range", func(c *BalanceConfig) { c.Drones.ScreenAbsorbMax = 0 }},
		{"empty escape table", func(c *BalanceConfig) { c.Escape.BaseByClass = nil }},
		{"zero rate limit", func(c *BalanceConfig) { c.Validation.CommandsPerSecond = 0 }},
		{"non-increasing thresholds", func(c *BalanceConfig) { c.Scale.EngagementMax = 10 }},
		{"zero workers", func(c *BalanceConfig) { c.Performance.WorkerPoolSize = 0 }},
		{"zero advantage ratio", func(c *BalanceConfig) { c.Teamwork.AdvantageRatio = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := GetDefaultConfig()
			tt.mutate(config)
			if err := config.Validate(); err == nil {
				t.Errorf("Expected validation error for %s", tt.name)
			}
		})
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "balance.yaml")

	config := GetDefaultConfig()
	config.Session.MaxTicks = 25
	config.Validation.CommandsPerSecond = 7

	if err := SaveConfig(config, path); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if loaded.Session.MaxTicks != 25 {
		t.Errorf("Expected 25 max ticks after round trip, got %d", loaded.Session.MaxTicks)
	}

	if loaded.Validation.CommandsPerSecond != 7 {
		t.Errorf("Expected 7 commands/second after round trip, got %d", loaded.Validation.CommandsPerSecond)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("COMBAT_MAX_TICKS", "42")
	t.Setenv("COMBAT_COMMANDS_PER_SECOND", "9")
	t.Setenv("COMBAT_CRITICAL_CHANCE", "0.2")

	config := GetDefaultConfig()
	MergeWithEnvironment(config)

	if config.Session.MaxTicks != 42 {
		t.Errorf("Expected env override to 42 max ticks, got %d", config.Session.MaxTicks)
	}
	if config.Validation.CommandsPerSecond != 9 {
		t.Errorf("Expected env override to 9 cps, got %d", config.Validation.CommandsPerSecond)
	}
	if config.Damage.CriticalChance != 0.2 {
		t.Errorf("Expected env override to 0.2 crit chance, got %f", config.Damage.CriticalChance)
	}
}

func TestCLIOverrides(t *testing.T) {
	config := GetDefaultConfig()
	MergeWithCLIOverrides(config, map[string]interface{}{
		"max_ticks":      15,
		"planning_window": 10 * time.Second,
		"log_level":      "debug",
		"num_teams":      3,
	})

	if config.Session.MaxTicks != 15 {
		t.Errorf("Expected 15 max ticks, got %d", config.Session.MaxTicks)
	}
	if config.Session.PlanningWindow != 10*time.Second {
		t.Errorf("Expected 10s planning window, got %v", config.Session.PlanningWindow)
	}
	if config.Logging.ConsoleLevel != "debug" {
		t.Errorf("Expected debug log level, got %s", config.Logging.ConsoleLevel)
	}
	if config.Defaults.NumTeams != 3 {
		t.Errorf("Expected 3 teams, got %d", config.Defaults.NumTeams)
	}
}
