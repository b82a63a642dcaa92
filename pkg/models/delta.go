package models

import (
	"time"

	"github.com/google/uuid"
)

// UnitDelta is the per-unit portion of a tick's aggregate state change
type UnitDelta struct {
	UnitID uuid.UUID `json:"unit_id"`
	Index  int       `json:"index"`

	HullDamage    float64 `json:"hull_damage,omitempty"`
	ShieldDamage  float64 `json:"shield_damage,omitempty"`
	HullAfter     float64 `json:"hull_after"`
	ShieldsAfter  float64 `json:"shields_after"`
	DronesLost    int     `json:"drones_lost,omitempty"`
	AttackDrones  int     `json:"attack_drones"`
	DefenseDrones int     `json:"defense_drones"`

	Subsystems SubsystemState `json:"subsystems"`

	Destroyed bool `json:"destroyed,omitempty"`
	Escaped   bool `json:"escaped,omitempty"`

	AmmoSpent int     `json:"ammo_spent,omitempty"`
	FuelSpent float64 `json:"fuel_spent,omitempty"`
}

// StateDelta is the authoritative per-tick state change emitted to the
// broadcast collaborator after the resolution barrier commits
type StateDelta struct {
	SessionID uuid.UUID   `json:"session_id"`
	Tick      int         `json:"tick"`
	Units     []UnitDelta `json:"units"`
	Events    []string    `json:"events,omitempty"`
	Checksum  uint64      `json:"checksum"`
	EmittedAt time.Time   `json:"emitted_at"`
}
