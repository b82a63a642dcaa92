package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads balance configuration from a YAML file
func LoadConfig(path string) (*BalanceConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Start from defaults so partial files stay valid
	config := GetDefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// LoadConfigOrDefault loads config from file or returns defaults, with
// environment overrides applied either way
func LoadConfigOrDefault(path string) (*BalanceConfig, error) {
	var config *BalanceConfig
	var err error

	if path != "" {
		config, err = LoadConfig(path)
		if err != nil {
			fmt.Printf("Warning: Could not load config from %s: %v\n", path, err)
			config = nil
		}
	}

	// Try default locations if no config loaded yet
	if config == nil {
		defaultPaths := []string{
			"balance.yaml",
			"sector-combat.yaml",
			filepath.Join("cmd", "sector-combat", "balance.yaml"),
		}

		for _, p := range defaultPaths {
			if _, err := os.Stat(p); err == nil {
				config, err = LoadConfig(p)
				if err == nil {
					fmt.Printf("Loaded config from: %s\n", p)
					break
				}
			}
		}
	}

	if config == nil {
		config = GetDefaultConfig()
	}

	MergeWithEnvironment(config)

	return config, nil
}

// SaveConfig saves balance configuration to a YAML file
func SaveConfig(config *BalanceConfig, path string) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// MergeWithCLIOverrides applies CLI parameter overrides to the configuration
func MergeWithCLIOverrides(config *BalanceConfig, overrides map[string]interface{}) {
	for key, value := range overrides {
		switch key {
		case "planning_window":
			if d, ok := value.(time.Duration); ok && d > 0 {
				config.Session.PlanningWindow = d
			}
		case "max_ticks":
			if n, ok := value.(int); ok && n > 0 {
				config.Session.MaxTicks = n
			}
		case "critical_chance":
			if f, ok := value.(float64); ok && f >= 0 && f <= 1 {
				config.Damage.CriticalChance = f
			}
		case "commands_per_second":
			if n, ok := value.(int); ok && n > 0 {
				config.Validation.CommandsPerSecond = n
			}
		case "worker_pool_size":
			if n, ok := value.(int); ok && n > 0 {
				config.Performance.WorkerPoolSize = n
			}
		case "num_teams":
			if n, ok := value.(int); ok && n >= 2 {
				config.Defaults.NumTeams = n
			}
		case "units_per_team":
			if n, ok := value.(int); ok && n > 0 {
				config.Defaults.UnitsPerTeam = n
			}
		case "seed":
			switch v := value.(type) {
			case int:
				config.Defaults.Seed = int64(v)
			case int64:
				config.Defaults.Seed = v
			}
		case "enable_aar":
			if b, ok := value.(bool); ok {
				config.Logging.EnableAAR = b
			}
		case "storage_enabled":
			if b, ok := value.(bool); ok {
				config.Storage.Enabled = b
			}
		case "storage_path":
			if s, ok := value.(string); ok {
				config.Storage.Path = s
			}
		case "log_level":
			if level, ok := value.(string); ok {
				validLevels := []string{"debug", "info", "warn", "error"}
				for _, valid := range validLevels {
					if level == valid {
						config.Logging.ConsoleLevel = level
						break
					}
				}
			}
		}
	}
}

// LoadConfigWithOverrides loads config and applies both environment and
// CLI overrides, validating the final result
func LoadConfigWithOverrides(path string, cliOverrides map[string]interface{}) (*BalanceConfig, error) {
	config, err := LoadConfigOrDefault(path)
	if err != nil {
		return nil, err
	}

	if cliOverrides != nil {
		MergeWithCLIOverrides(config, cliOverrides)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed after overrides: %w", err)
	}

	return config, nil
}

// MergeWithEnvironment merges config with environment variables
func MergeWithEnvironment(config *BalanceConfig) {
	if window := os.Getenv("COMBAT_PLANNING_WINDOW"); window != "" {
		if duration, err := time.ParseDuration(window); err == nil && duration > 0 {
			config.Session.PlanningWindow = duration
		}
	}

	if maxTicks := os.Getenv("COMBAT_MAX_TICKS"); maxTicks != "" {
		if n, err := strconv.Atoi(maxTicks); err == nil && n > 0 {
			config.Session.MaxTicks = n
		}
	}

	if critChance := os.Getenv("COMBAT_CRITICAL_CHANCE"); critChance != "" {
		if f, err := strconv.ParseFloat(critChance, 64); err == nil && f >= 0 && f <= 1 {
			config.Damage.CriticalChance = f
		}
	}

	if cps := os.Getenv("COMBAT_COMMANDS_PER_SECOND"); cps != "" {
		if n, err := strconv.Atoi(cps); err == nil && n > 0 {
			config.Validation.CommandsPerSecond = n
		}
	}

	if workerPool := os.Getenv("COMBAT_WORKER_POOL_SIZE"); workerPool != "" {
		if n, err := strconv.Atoi(workerPool); err == nil && n > 0 {
			config.Performance.WorkerPoolSize = n
		}
	}

	if seed := os.Getenv("COMBAT_SEED"); seed != "" {
		if n, err := strconv.ParseInt(seed, 10, 64); err == nil {
			config.Defaults.Seed = n
		}
	}

	if logLevel := os.Getenv("COMBAT_LOG_LEVEL"); logLevel != "" {
		validLevels := []string{"debug", "info", "warn", "error"}
		for _, valid := range validLevels {
			if strings.ToLower(logLevel) == valid {
				config.Logging.ConsoleLevel = valid
				break
			}
		}
	}

	if enableAAR := os.Getenv("COMBAT_ENABLE_AAR"); enableAAR != "" {
		if b, err := strconv.ParseBool(enableAAR); err == nil {
			config.Logging.EnableAAR = b
		}
	}

	if aarPath := os.Getenv("COMBAT_AAR_OUTPUT_PATH"); aarPath != "" {
		config.Logging.AAROutputPath = aarPath
	}

	if storageEnabled := os.Getenv("COMBAT_STORAGE_ENABLED"); storageEnabled != "" {
		if b, err := strconv.ParseBool(storageEnabled); err == nil {
			config.Storage.Enabled = b
		}
	}

	if storagePath := os.Getenv("COMBAT_STORAGE_PATH"); storagePath != "" {
		config.Storage.Path = storagePath
	}
}
