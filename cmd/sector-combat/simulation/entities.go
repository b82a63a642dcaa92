package simulation

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/sectorwars/combat-engine/cmd/sector-combat/core"
	"github.com/sectorwars/combat-engine/pkg/models"
)

// Position is a unit's location within the sector plane, in km from
// the sector center
type Position struct {
	X float64
	Y float64
}

// DistanceTo returns the straight-line distance to another position
func (p Position) DistanceTo(other Position) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// sectorRadiusKm bounds the combat arena; units at the rim are close
// to an escape route
const sectorRadiusKm = 15.0

// fleetTemplate describes one hull slot in a spawned fleet. Fleets
// cycle through the templates so every team fields a class mix.
type fleetTemplate struct {
	class   models.ShipClass
	hull    float64
	shields float64
	resist  float64
	armor   float64
	evasion float64
	weapon  models.Weapon
	attack  int // attack drones carried
	defense int // defense drones carried
	cargo   map[string]int
}

var fleetTemplates = []fleetTemplate{
	{
		class: models.ClassDefender, hull: 220, shields: 120,
		resist: 0.15, armor: 0.10, evasion: 0.05,
		weapon: models.Weapon{Name: "heavy plasma battery", BaseDamage: 55, RangeKm: 12, AmmoCost: 2, FuelCost: 1},
	},
	{
		class: models.ClassScoutShip, hull: 90, shields: 50,
		resist: 0.05, armor: 0.02, evasion: 0.25,
		weapon: models.Weapon{Name: "pulse laser", BaseDamage: 28, RangeKm: 10, AmmoCost: 1, FuelCost: 0.5},
	},
	{
		class: models.ClassCarrier, hull: 320, shields: 160,
		resist: 0.20, armor: 0.15, evasion: 0.02,
		weapon:  models.Weapon{Name: "point defense grid", BaseDamage: 35, RangeKm: 8, AmmoCost: 1, FuelCost: 1.5},
		attack:  25, defense: 20,
		cargo: map[string]int{"ore": 120, "fuel_cells": 60},
	},
	{
		class: models.ClassLightFreighter, hull: 140, shields: 70,
		resist: 0.08, armor: 0.05, evasion: 0.12,
		weapon: models.Weapon{Name: "defensive turret", BaseDamage: 20, RangeKm: 9, AmmoCost: 1, FuelCost: 0.5},
		cargo:  map[string]int{"equipment": 40, "rations": 80},
	},
	{
		class: models.ClassFastCourier, hull: 70, shields: 40,
		resist: 0.03, armor: 0.01, evasion: 0.30,
		weapon: models.Weapon{Name: "light railgun", BaseDamage: 24, RangeKm: 11, AmmoCost: 1, FuelCost: 0.4},
		cargo:  map[string]int{"dispatches": 10},
	},
}

// spawnFleet builds one team's ships deterministically from the seed.
// Positions spread each team along its own bearing so opposing fleets
// open the session in weapons range of each other near the center.
func spawnFleet(teamID string, teamIdx, count int, seed int64) ([]*models.Unit, map[uuid.UUID]Position) {
	units := make([]*models.Unit, 0, count)
	positions := make(map[uuid.UUID]Position, count)

	bearing := float64(teamIdx) * 2 * math.Pi / 3

	for i := 0; i < count; i++ {
		tpl := fleetTemplates[i%len(fleetTemplates)]
		rng := core.StreamFor(seed, 0, uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s-%d", teamID, i))))

		// Ships fan out from 3km to the mid-sector along the team
		// bearing, jittered so no two overlap
		radius := 3.0 + float64(i)*0.8 + rng.Float64()
		angle := bearing + (rng.Float64()-0.5)*0.6

		unit := &models.Unit{
			ID:     uuid.New(),
			Name:   fmt.Sprintf("SW-%s-%02d", teamID, i+1),
			Kind:   models.UnitKindShip,
			Class:  tpl.class,
			TeamID: teamID,
			Hull:   models.Pool{Current: tpl.hull, Max: tpl.hull},
			Shields: models.Shields{
				Current: tpl.shields, Max: tpl.shields, Resistance: tpl.resist,
			},
			ArmorRating:           tpl.armor,
			Evasion:               tpl.evasion,
			Weapons:               []models.Weapon{tpl.weapon},
			Subsystems:            models.FullSubsystems(),
			MaintenanceMultiplier: 0.9 + rng.Float64()*0.1,
			Ammo:                  60,
			Fuel:                  100,
			AttackDrones:          tpl.attack,
			DefenseDrones:         tpl.defense,
		}
		if tpl.cargo != nil {
			unit.Cargo = make(map[string]int, len(tpl.cargo))
			for k, v := range tpl.cargo {
				unit.Cargo[k] = v
			}
		}

		pos := Position{
			X: radius * math.Cos(angle),
			Y: radius * math.Sin(angle),
		}
		unit.DistanceToEdgeKm = sectorRadiusKm - math.Sqrt(pos.X*pos.X+pos.Y*pos.Y)
		if unit.DistanceToEdgeKm < 0 {
			unit.DistanceToEdgeKm = 0
		}

		units = append(units, unit)
		positions[unit.ID] = pos
	}

	return units, positions
}
