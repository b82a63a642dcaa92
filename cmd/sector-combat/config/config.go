package config

import (
	"fmt"
	"time"
)

// BalanceConfig holds the complete game-balance configuration for the
// combat resolution engine. Everything in here is tunable by game
// design without touching engine code.
type BalanceConfig struct {
	// Basic settings
	Simulation SimulationSettings `yaml:"simulation"`

	// Session lifecycle
	Session SessionConfig `yaml:"session"`

	// Damage pipeline tuning
	Damage DamageConfig `yaml:"damage"`

	// Drone engagement tuning
	Drones DroneConfig `yaml:"drones"`

	// Escape resolution tuning
	Escape EscapeConfig `yaml:"escape"`

	// Team coordination tuning
	Teamwork TeamworkConfig `yaml:"teamwork"`

	// Anti-cheat validation
	Validation ValidationConfig `yaml:"validation"`

	// Scale classification and partitioning
	Scale ScaleConfig `yaml:"scale"`

	// Performance settings
	Performance PerformanceConfig `yaml:"performance"`

	// Logging and reporting
	Logging LoggingConfig `yaml:"logging"`

	// Audit persistence
	Storage StorageConfig `yaml:"storage"`

	// Default scenario parameters
	Defaults DefaultsConfig `yaml:"defaults"`
}

// SimulationSettings holds basic settings
type SimulationSettings struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// SessionConfig defines session lifecycle parameters
type SessionConfig struct {
	PlanningWindow time.Duration `yaml:"planning_window"`
	MaxTicks       int           `yaml:"max_ticks"`
}

// DamageConfig defines damage pipeline parameters
type DamageConfig struct {
	CriticalChance     float64 `yaml:"critical_chance"`     // 0.0 to 1.0
	CriticalMultiplier float64 `yaml:"critical_multiplier"` // bonus = raw hull damage x this
	SubsystemHitFactor float64 `yaml:"subsystem_hit_factor"`
	DefendReduction    float64 `yaml:"defend_reduction"` // incoming hull reduction while defending
	EvadeReduction     float64 `yaml:"evade_reduction"`  // incoming reduction while evading
}

// DroneConfig defines drone engagement parameters
type DroneConfig struct {
	EffectivenessPerTen     float64 `yaml:"effectiveness_per_ten"`      // +5% per 10 attack drones
	IncomingReductionPerTen float64 `yaml:"incoming_reduction_per_ten"` // -5% per 10 defense drones
	PlanetaryBonus          float64 `yaml:"planetary_bonus"`            // flat bonus for planet-deployed drones
	BaseDestructionChance   float64 `yaml:"base_destruction_chance"`
	ShipDamagePerDrone      float64 `yaml:"ship_damage_per_drone"` // hull damage per unopposed attack drone
	ScreenAbsorbMin         int     `yaml:"screen_absorb_min"`
	ScreenAbsorbMax         int     `yaml:"screen_absorb_max"`
}

// EscapeConfig defines escape resolution parameters
type EscapeConfig struct {
	BaseByClass     map[string]float64 `yaml:"base_by_class"`
	PursuitByClass  map[string]float64 `yaml:"pursuit_by_class"`
	HullFactorFloor float64            `yaml:"hull_factor_floor"`
	EdgeFalloff     float64            `yaml:"edge_falloff"`
}

// TeamworkConfig defines multi-team coordination tuning. The team
// advantage ratio and coordinated-attack bonus are deliberately config,
// not constants.
type TeamworkConfig struct {
	AdvantageRatio          float64 `yaml:"advantage_ratio"`
	CoordinatedBonusPerAlly float64 `yaml:"coordinated_bonus_per_ally"`
	CoordinatedBonusCap     float64 `yaml:"coordinated_bonus_cap"`
}

// ValidationConfig defines anti-cheat validation parameters
type ValidationConfig struct {
	CommandsPerSecond int `yaml:"commands_per_second"`
	BurstAllowance    int `yaml:"burst_allowance"`
}

// ScaleConfig defines the unit-count thresholds for scale classes
type ScaleConfig struct {
	SkirmishMax   int `yaml:"skirmish_max"`
	EngagementMax int `yaml:"engagement_max"`
	CampaignMax   int `yaml:"campaign_max"`
	MassiveWarMax int `yaml:"massive_war_max"`
}

// PerformanceConfig defines parallel resolution settings
type PerformanceConfig struct {
	WorkerPoolSize int `yaml:"worker_pool_size"`
}

// LoggingConfig defines logging and reporting settings
type LoggingConfig struct {
	ConsoleLevel  string `yaml:"console_level"` // "debug", "info", "warn", "error"
	EnableAAR     bool   `yaml:"enable_aar"`
	AAROutputPath string `yaml:"aar_output_path"`
}

// StorageConfig defines audit-log persistence settings
type StorageConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // sqlite file; empty means in-memory
}

// DefaultsConfig defines default scenario parameters
type DefaultsConfig struct {
	NumTeams     int   `yaml:"num_teams"`
	UnitsPerTeam int   `yaml:"units_per_team"`
	Seed         int64 `yaml:"seed"`
}

// GetDefaultConfig returns the shipped balance defaults
func GetDefaultConfig() *BalanceConfig {
	return &BalanceConfig{
		Simulation: SimulationSettings{
			Name:        "sector-combat",
			Description: "Server-authoritative sector combat resolution",
		},
		Session: SessionConfig{
			PlanningWindow: 30 * time.Second,
			MaxTicks:       10,
		},
		Damage: DamageConfig{
			CriticalChance:     0.1,
			CriticalMultiplier: 0.5,
			SubsystemHitFactor: 0.25,
			DefendReduction:    0.25,
			EvadeReduction:     0.15,
		},
		Drones: DroneConfig{
			EffectivenessPerTen:     0.05,
			IncomingReductionPerTen: 0.05,
			PlanetaryBonus:          0.05,
			BaseDestructionChance:   0.5,
			ShipDamagePerDrone:      0.4,
			ScreenAbsorbMin:         1,
			ScreenAbsorbMax:         3,
		},
		Escape: EscapeConfig{
			BaseByClass: map[string]float64{
				"escape_pod":      0.95,
				"fast_courier":    0.75,
				"scout_ship":      0.70,
				"light_freighter": 0.55,
				"warp_jumper":     0.65,
				"cargo_hauler":    0.40,
				"colony_ship":     0.35,
				"defender":        0.45,
				"carrier":         0.30,
			},
			PursuitByClass: map[string]float64{
				"escape_pod":      0.5,
				"fast_courier":    1.5,
				"scout_ship":      1.4,
				"light_freighter": 1.0,
				"warp_jumper":     1.2,
				"cargo_hauler":    0.8,
				"colony_ship":     0.7,
				"defender":        1.6,
				"carrier":         1.8,
			},
			HullFactorFloor: 0.25,
			EdgeFalloff:     0.6,
		},
		Teamwork: TeamworkConfig{
			AdvantageRatio:          1.5, // 60/40
			CoordinatedBonusPerAlly: 0.05,
			CoordinatedBonusCap:     0.25,
		},
		Validation: ValidationConfig{
			CommandsPerSecond: 4,
			BurstAllowance:    2,
		},
		Scale: ScaleConfig{
			SkirmishMax:   50,
			EngagementMax: 200,
			CampaignMax:   1000,
			MassiveWarMax: 5000,
		},
		Performance: PerformanceConfig{
			WorkerPoolSize: 8,
		},
		Logging: LoggingConfig{
			ConsoleLevel:  "info",
			EnableAAR:     true,
			AAROutputPath: "./reports",
		},
		Storage: StorageConfig{
			Enabled: false,
			Path:    "",
		},
		Defaults: DefaultsConfig{
			NumTeams:     2,
			UnitsPerTeam: 5,
			Seed:         0,
		},
	}
}

// Validate checks if the configuration is valid
func (c *BalanceConfig) Validate() error {
	if c.Simulation.Name == "" {
		return fmt.Errorf("simulation name is required")
	}

	if c.Session.PlanningWindow <= 0 {
		return fmt.Errorf("planning window must be positive")
	}

	if c.Session.MaxTicks <= 0 {
		return fmt.Errorf("max ticks must be positive")
	}

	if c.Damage.CriticalChance < 0 || c.Damage.CriticalChance > 1 {
		return fmt.Errorf("critical chance must be between 0.0 and 1.0")
	}

	if c.Damage.CriticalMultiplier < 0 {
		return fmt.Errorf("critical multiplier must be non-negative")
	}

	if c.Drones.BaseDestructionChance < 0 || c.Drones.BaseDestructionChance > 1 {
		return fmt.Errorf("base destruction chance must be between 0.0 and 1.0")
	}

	if c.Drones.ShipDamagePerDrone < 0 {
		return fmt.Errorf("ship damage per drone must be non-negative")
	}

	if c.Drones.ScreenAbsorbMin < 1 || c.Drones.ScreenAbsorbMax < c.Drones.ScreenAbsorbMin {
		return fmt.Errorf("drone screen absorb range is invalid")
	}

	if len(c.Escape.BaseByClass) == 0 {
		return fmt.Errorf("escape base chances by ship class are required")
	}

	for class, chance := range c.Escape.BaseByClass {
		if chance < 0 || chance > 1 {
			return fmt.Errorf("escape base chance for %s must be between 0.0 and 1.0", class)
		}
	}

	if c.Validation.CommandsPerSecond <= 0 {
		return fmt.Errorf("commands per second must be positive")
	}

	if c.Scale.SkirmishMax <= 0 ||
		c.Scale.EngagementMax <= c.Scale.SkirmishMax ||
		c.Scale.CampaignMax <= c.Scale.EngagementMax ||
		c.Scale.MassiveWarMax <= c.Scale.CampaignMax {
		return fmt.Errorf("scale thresholds must be strictly increasing")
	}

	if c.Performance.WorkerPoolSize <= 0 {
		return fmt.Errorf("worker pool size must be positive")
	}

	if c.Teamwork.AdvantageRatio <= 0 {
		return fmt.Errorf("team advantage ratio must be positive")
	}

	return nil
}

// String returns a human-readable representation of the configuration
func (c *BalanceConfig) String() string {
	return fmt.Sprintf(`Balance Configuration:
  Name: %s
  Description: %s

Session:
  Planning Window: %v
  Max Ticks: %d

Damage:
  Critical Chance: %.2f
  Critical Multiplier: %.2f
  Subsystem Hit Factor: %.2f

Drones:
  Effectiveness per 10 attack drones: +%.0f%%
  Incoming reduction per 10 defense drones: -%.0f%%
  Planetary bonus: +%.0f%%
  Ship damage per unopposed attack drone: %.1f

Validation:
  Commands/second: %d (burst %d)

Scale Thresholds:
  Skirmish: <=%d  Engagement: <=%d  Campaign: <=%d  Massive War: <=%d

Performance:
  Worker Pool Size: %d`,
		c.Simulation.Name,
		c.Simulation.Description,
		c.Session.PlanningWindow,
		c.Session.MaxTicks,
		c.Damage.CriticalChance,
		c.Damage.CriticalMultiplier,
		c.Damage.SubsystemHitFactor,
		c.Drones.EffectivenessPerTen*100,
		c.Drones.IncomingReductionPerTen*100,
		c.Drones.PlanetaryBonus*100,
		c.Drones.ShipDamagePerDrone,
		c.Validation.CommandsPerSecond,
		c.Validation.BurstAllowance,
		c.Scale.SkirmishMax,
		c.Scale.EngagementMax,
		c.Scale.CampaignMax,
		c.Scale.MassiveWarMax,
		c.Performance.WorkerPoolSize,
	)
}
