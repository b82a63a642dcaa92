package core

import (
	"math"
	"math/rand"
)

// DroneForce describes one side's drone screen entering an engagement
type DroneForce struct {
	AttackDrones  int
	DefenseDrones int
	PlanetBased   bool
	TeamID        string
}

// DroneEngagementResult reports losses from one tick's drone-vs-drone
// resolution between two opposing forces. The caller applies the losses
// to whatever carries the drones.
type DroneEngagementResult struct {
	PairsResolved int
	SideALosses   int
	SideBLosses   int
}

// DroneParams carries the balance tuning for drone resolution
type DroneParams struct {
	EffectivenessPerTen     float64
	IncomingReductionPerTen float64
	PlanetaryBonus          float64
	BaseDestructionChance   float64
	ShipDamagePerDrone      float64
}

// DefaultDroneParams returns neutral balance values
func DefaultDroneParams() DroneParams {
	return DroneParams{
		EffectivenessPerTen:     0.05,
		IncomingReductionPerTen: 0.05,
		PlanetaryBonus:          0.05,
		BaseDestructionChance:   0.5,
		ShipDamagePerDrone:      0.4,
	}
}

// EffectivenessMultiplier returns the outgoing effectiveness for a
// force: +EffectivenessPerTen for every 10 attack drones, plus the flat
// planetary bonus for planet-deployed screens.
func (p DroneParams) EffectivenessMultiplier(f DroneForce) float64 {
	mult := 1 + p.EffectivenessPerTen*(float64(f.AttackDrones)/10.0)
	if f.PlanetBased {
		mult *= 1 + p.PlanetaryBonus
	}
	return mult
}

// IncomingMultiplier returns the incoming-damage multiplier for a
// force: -IncomingReductionPerTen for every 10 defense drones, floored
// at zero.
func (p DroneParams) IncomingMultiplier(f DroneForce) float64 {
	mult := 1 - p.IncomingReductionPerTen*(float64(f.DefenseDrones)/10.0)
	return math.Max(0, mult)
}

// ResolveDroneEngagement resolves one tick of drone-vs-drone combat
// between two opposing forces. Opposing drones pair off; in each pair
// both drones roll independent destruction chances scaled by their
// opponent's effectiveness and their own side's defensive screen.
// With neutral bonuses both chances equal the base, so aggregate
// losses trend 1:1 over many resolutions while any single tick may be
// asymmetric.
//
// The attacking pool on each side is its attack drones; a side with
// only defense drones still screens but pairs off passively.
func (p DroneParams) ResolveDroneEngagement(sideA, sideB DroneForce, rng *rand.Rand) DroneEngagementResult {
	var result DroneEngagementResult

	pairs := minInt(totalDrones(sideA), totalDrones(sideB))
	if pairs == 0 {
		return result
	}

	aEffect := p.EffectivenessMultiplier(sideA)
	bEffect := p.EffectivenessMultiplier(sideB)
	aIncoming := p.IncomingMultiplier(sideA)
	bIncoming := p.IncomingMultiplier(sideB)

	// The net multiplier is applied to the destruction probability
	// before the roll, never to the roll itself.
	pBLoss := clampProbability(p.BaseDestructionChance * aEffect * bIncoming)
	pALoss := clampProbability(p.BaseDestructionChance * bEffect * aIncoming)

	for i := 0; i < pairs; i++ {
		// Fixed draw order keeps replay deterministic
		if rng.Float64() < pBLoss {
			result.SideBLosses++
		}
		if rng.Float64() < pALoss {
			result.SideALosses++
		}
	}

	result.PairsResolved = pairs
	return result
}

// ShipStrikeDamage returns the raw hull strike an unopposed attack
// swarm delivers in one tick. Callers invoke this only once the
// opposing side has no drones left to screen its ships; damage then
// flows through the normal damage pipeline so shields and armor still
// apply. The single jitter draw keeps replay deterministic.
func (p DroneParams) ShipStrikeDamage(f DroneForce, rng *rand.Rand) float64 {
	if f.AttackDrones <= 0 {
		return 0
	}
	raw := float64(f.AttackDrones) * p.ShipDamagePerDrone * p.EffectivenessMultiplier(f)
	return raw * (0.75 + 0.5*rng.Float64())
}

func totalDrones(f DroneForce) int {
	return f.AttackDrones + f.DefenseDrones
}

func clampProbability(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
