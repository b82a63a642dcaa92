package models

import (
	"github.com/google/uuid"
)

// UnitKind identifies the broad category of a combat-capable entity
type UnitKind string

const (
	UnitKindShip             UnitKind = "ship"
	UnitKindDrone            UnitKind = "drone"
	UnitKindPlanetaryDefense UnitKind = "planetary-defense"
)

// ShipClass identifies the hull class of a ship, which drives base
// initiative, escape chance and pursuit strength
type ShipClass string

const (
	ClassEscapePod      ShipClass = "escape_pod"
	ClassLightFreighter ShipClass = "light_freighter"
	ClassCargoHauler    ShipClass = "cargo_hauler"
	ClassFastCourier    ShipClass = "fast_courier"
	ClassScoutShip      ShipClass = "scout_ship"
	ClassColonyShip     ShipClass = "colony_ship"
	ClassDefender       ShipClass = "defender"
	ClassCarrier        ShipClass = "carrier"
	ClassWarpJumper     ShipClass = "warp_jumper"
)

// Subsystem identifies a targetable ship subsystem
type Subsystem string

const (
	SubsystemEngines Subsystem = "engines"
	SubsystemWeapons Subsystem = "weapons"
	SubsystemShields Subsystem = "shields"
	SubsystemSensors Subsystem = "sensors"
)

// Pool is a bounded resource pool such as hull points
type Pool struct {
	Current float64 `json:"current" yaml:"current"`
	Max     float64 `json:"max" yaml:"max"`
}

// Fraction returns Current/Max, or 0 for an empty pool
func (p Pool) Fraction() float64 {
	if p.Max <= 0 {
		return 0
	}
	return p.Current / p.Max
}

// Clamp forces Current into [0, Max]
func (p *Pool) Clamp() {
	if p.Current < 0 {
		p.Current = 0
	}
	if p.Current > p.Max {
		p.Current = p.Max
	}
}

// Shields is a shield pool with a damage resistance rating
type Shields struct {
	Current    float64 `json:"current" yaml:"current"`
	Max        float64 `json:"max" yaml:"max"`
	Resistance float64 `json:"resistance" yaml:"resistance"` // 0.0 to 1.0
}

// Clamp forces Current into [0, Max]
func (s *Shields) Clamp() {
	if s.Current < 0 {
		s.Current = 0
	}
	if s.Current > s.Max {
		s.Current = s.Max
	}
}

// Weapon describes a mounted weapon and its per-shot costs
type Weapon struct {
	Name       string  `json:"name" yaml:"name"`
	BaseDamage float64 `json:"base_damage" yaml:"base_damage"`
	RangeKm    float64 `json:"range_km" yaml:"range_km"`
	AmmoCost   int     `json:"ammo_cost" yaml:"ammo_cost"`
	FuelCost   float64 `json:"fuel_cost" yaml:"fuel_cost"`
}

// SubsystemState holds the health fraction (0.0 to 1.0) of each ship
// subsystem. A subsystem at 0 is disabled for the rest of the session.
type SubsystemState struct {
	Engines float64 `json:"engines" yaml:"engines"`
	Weapons float64 `json:"weapons" yaml:"weapons"`
	Shields float64 `json:"shields" yaml:"shields"`
	Sensors float64 `json:"sensors" yaml:"sensors"`
}

// FullSubsystems returns a SubsystemState with everything at full health
func FullSubsystems() SubsystemState {
	return SubsystemState{Engines: 1, Weapons: 1, Shields: 1, Sensors: 1}
}

// Get returns the health fraction of the named subsystem
func (s SubsystemState) Get(sub Subsystem) float64 {
	switch sub {
	case SubsystemEngines:
		return s.Engines
	case SubsystemWeapons:
		return s.Weapons
	case SubsystemShields:
		return s.Shields
	case SubsystemSensors:
		return s.Sensors
	}
	return 0
}

// Set stores the health fraction of the named subsystem, clamped to [0,1]
func (s *SubsystemState) Set(sub Subsystem, health float64) {
	if health < 0 {
		health = 0
	}
	if health > 1 {
		health = 1
	}
	switch sub {
	case SubsystemEngines:
		s.Engines = health
	case SubsystemWeapons:
		s.Weapons = health
	case SubsystemShields:
		s.Shields = health
	case SubsystemSensors:
		s.Sensors = health
	}
}

// Unit is a canonical combat-capable entity: a ship, a drone wing, or a
// planetary defense installation. Units are owned by the unit registry
// and mutated only by the session that holds them claimed for a tick.
type Unit struct {
	ID      uuid.UUID `json:"id"`
	Index   int       `json:"index"` // session-local arena index, stable for the session
	Name    string    `json:"name"`
	Kind    UnitKind  `json:"kind"`
	Class   ShipClass `json:"class"`
	OwnerID uuid.UUID `json:"owner_id"`
	TeamID  string    `json:"team_id"`

	Hull        Pool           `json:"hull"`
	Shields     Shields        `json:"shields"`
	ArmorRating float64        `json:"armor_rating"` // 0.0 to 1.0
	Evasion     float64        `json:"evasion"`      // 0.0 to 1.0
	Weapons     []Weapon       `json:"weapons"`
	Subsystems  SubsystemState `json:"subsystems"`

	// MaintenanceMultiplier scales outgoing damage and incoming damage
	// resistance. 1.0 is a perfectly maintained ship. Supplied by the
	// ship-maintenance collaborator at session start.
	MaintenanceMultiplier float64 `json:"maintenance_multiplier"`

	Ammo int     `json:"ammo"`
	Fuel float64 `json:"fuel"`

	// Cargo maps resource name to amount held. Salvage draws from the
	// cargo of destroyed units.
	Cargo map[string]int `json:"cargo,omitempty"`

	// Drone screens carried by this unit
	AttackDrones  int `json:"attack_drones"`
	DefenseDrones int `json:"defense_drones"`

	// PlanetBased drones and defenses get a flat effectiveness bonus
	PlanetBased bool `json:"planet_based"`

	// DistanceToEdgeKm is the unit's distance to the nearest sector
	// escape route, maintained by the sector/environment collaborator
	DistanceToEdgeKm float64 `json:"distance_to_edge_km"`

	Destroyed bool `json:"destroyed"`
	Escaped   bool `json:"escaped"`
}

// Alive reports whether the unit still participates in resolution
func (u *Unit) Alive() bool {
	return !u.Destroyed && !u.Escaped && u.Hull.Current > 0
}

// Mobile reports whether the unit can move or flee. Planetary defenses
// lack the mobility capability entirely.
func (u *Unit) Mobile() bool {
	return u.Kind != UnitKindPlanetaryDefense
}

// Targetable reports whether the unit may currently be targeted
func (u *Unit) Targetable() bool {
	return u.Alive()
}

// PrimaryWeapon returns the unit's first weapon, or a zero-value weapon
// if it is unarmed
func (u *Unit) PrimaryWeapon() Weapon {
	if len(u.Weapons) == 0 {
		return Weapon{}
	}
	return u.Weapons[0]
}

// Clone returns a deep copy of the unit, used for immutable tick-start
// snapshots
func (u *Unit) Clone() *Unit {
	c := *u
	c.Weapons = make([]Weapon, len(u.Weapons))
	copy(c.Weapons, u.Weapons)
	if u.Cargo != nil {
		c.Cargo = make(map[string]int, len(u.Cargo))
		for k, v := range u.Cargo {
			c.Cargo[k] = v
		}
	}
	return &c
}
