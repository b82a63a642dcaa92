package core

import (
	"math"

	"github.com/sectorwars/combat-engine/pkg/models"
)

// EscapeParams carries the balance tables for escape resolution
type EscapeParams struct {
	// BaseByClass is the base escape chance per ship class
	BaseByClass map[models.ShipClass]float64
	// PursuitByClass divides the escape chance when that class pursues.
	// Values above 1 make a class a strong pursuer.
	PursuitByClass map[models.ShipClass]float64
	// HullFactorFloor bounds how far low hull can suppress escape
	HullFactorFloor float64
	// EdgeFalloff controls how much distance from the sector edge
	// suppresses escape (0 = distance ignored)
	EdgeFalloff float64
}

// DefaultEscapeParams returns the shipped balance tables
func DefaultEscapeParams() EscapeParams {
	return EscapeParams{
		BaseByClass: map[models.ShipClass]float64{
			models.ClassEscapePod:      0.95,
			models.ClassFastCourier:    0.75,
			models.ClassScoutShip:      0.70,
			models.ClassWarpJumper:     0.65,
			models.ClassLightFreighter: 0.55,
			models.ClassDefender:       0.45,
			models.ClassCargoHauler:    0.40,
			models.ClassColonyShip:     0.35,
			models.ClassCarrier:        0.30,
		},
		PursuitByClass: map[models.ShipClass]float64{
			models.ClassEscapePod:      0.5,
			models.ClassFastCourier:    1.5,
			models.ClassScoutShip:      1.4,
			models.ClassWarpJumper:     1.2,
			models.ClassLightFreighter: 1.0,
			models.ClassDefender:       1.6,
			models.ClassCargoHauler:    0.8,
			models.ClassColonyShip:     0.7,
			models.ClassCarrier:        1.8,
		},
		HullFactorFloor: 0.25,
		EdgeFalloff:     0.6,
	}
}

// EscapeInput describes one flee attempt
type EscapeInput struct {
	Class        models.ShipClass
	HullFraction float64 // current/max, 0.0 to 1.0

	// Distance to the nearest escape route and the sector radius used
	// to normalize it
	DistanceToEdgeKm float64
	SectorRadiusKm   float64

	// PursuerClass is the strongest pursuing ship class; empty means
	// nobody pursues
	PursuerClass models.ShipClass

	// EnginesHealth is the fleeing unit's engines subsystem fraction.
	// Crippled engines suppress escape.
	EnginesHealth float64
}

// EscapeChance computes the probability that a flee attempt succeeds:
// base-by-class, scaled by hull fraction and proximity to the sector
// edge, divided by the pursuer's pursuit factor. Always in [0,1] for
// every input combination, including zero hull and zero distance.
func (p EscapeParams) EscapeChance(in EscapeInput) float64 {
	base, ok := p.BaseByClass[in.Class]
	if !ok {
		base = 0.5
	}

	chance := base
	chance *= p.hullFactor(in.HullFraction)
	chance *= p.proximityFactor(in.DistanceToEdgeKm, in.SectorRadiusKm)
	chance *= engineFactor(in.EnginesHealth)

	if in.PursuerClass != "" {
		pursuit, ok := p.PursuitByClass[in.PursuerClass]
		if !ok || pursuit <= 0 {
			pursuit = 1
		}
		chance /= pursuit
	}

	if chance < 0 {
		return 0
	}
	if chance > 1 {
		return 1
	}
	return chance
}

// hullFactor scales escape chance by remaining hull. A gutted ship
// still has the floor chance, never zero from hull alone.
func (p EscapeParams) hullFactor(fraction float64) float64 {
	fraction = clampUnit(fraction)
	floor := p.HullFactorFloor
	if floor < 0 || floor > 1 {
		floor = 0.25
	}
	return floor + (1-floor)*fraction
}

// proximityFactor is 1.0 at the sector edge and falls off with
// normalized distance. A zero or unknown sector radius disables the
// distance penalty rather than dividing by zero.
func (p EscapeParams) proximityFactor(distanceKm, radiusKm float64) float64 {
	if radiusKm <= 0 {
		return 1
	}
	normalized := math.Min(1, math.Max(0, distanceKm/radiusKm))
	falloff := p.EdgeFalloff
	if falloff < 0 || falloff > 1 {
		falloff = 0.6
	}
	return 1 - falloff*normalized
}

// engineFactor suppresses escape on crippled engines. Dead engines
// leave a 10% factor: drifting out is still barely possible.
func engineFactor(health float64) float64 {
	health = clampUnit(health)
	return 0.1 + 0.9*health
}
