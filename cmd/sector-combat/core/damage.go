package core

import (
	"math"

	"github.com/sectorwars/combat-engine/pkg/models"
)

// DamageInput carries everything the damage pipeline needs for one
// weapon hit. Maintenance multipliers and subsystem effectiveness are
// resolved by the caller from tick-start state; the pipeline itself is
// a pure function with no session access.
type DamageInput struct {
	BaseDamage float64

	// Attacker-side modifiers
	AttackerMaintenance float64 // 0.0 to 1.0, scales outgoing damage
	WeaponsHealth       float64 // attacker weapons subsystem fraction
	SensorsHealth       float64 // attacker sensors subsystem fraction, degrades targeting
	OutgoingMultiplier  float64 // teamwork / focus modifiers, 1.0 neutral

	// Target-side state
	TargetShields      models.Shields
	ShieldsHealth      float64 // target shields subsystem fraction, caps projectable charge
	TargetArmor        float64
	TargetMaintenance  float64 // scales incoming-damage resistance
	IncomingMultiplier float64 // stance modifiers, 1.0 neutral

	CriticalHit        bool
	CriticalMultiplier float64

	// Optional targeted subsystem strike
	SubsystemTarget *models.Subsystem
	SubsystemHealth float64
	SubsystemFactor float64 // health fraction removed on a landed strike
}

// NewDamageInput returns a DamageInput with all multipliers neutral
func NewDamageInput(baseDamage float64, shields models.Shields, armor float64) DamageInput {
	return DamageInput{
		BaseDamage:          baseDamage,
		AttackerMaintenance: 1,
		WeaponsHealth:       1,
		SensorsHealth:       1,
		OutgoingMultiplier:  1,
		TargetShields:       shields,
		ShieldsHealth:       1,
		TargetArmor:         armor,
		TargetMaintenance:   1,
		IncomingMultiplier:  1,
		CriticalMultiplier:  0.5,
	}
}

// ResolveDamage evaluates one weapon hit. Shields absorb up to their
// current strength before anything reaches the hull; resistance and
// armor reduce their shares independently. The critical bonus is
// computed from the pre-armor hull share and is additive, so
// ShieldDamage + HullDamage never exceeds the raw weapon damage on
// their own.
func ResolveDamage(in DamageInput) models.DamageResult {
	raw := in.BaseDamage

	// Degraded weapons, spoiled firing solutions and poor maintenance
	// all reduce output before the split.
	raw *= clampUnit(in.AttackerMaintenance)
	raw *= weaponsEffectiveness(in.WeaponsHealth)
	raw *= targetingAccuracy(in.SensorsHealth)
	if in.OutgoingMultiplier > 0 {
		raw *= in.OutgoingMultiplier
	}
	if in.IncomingMultiplier > 0 {
		raw *= in.IncomingMultiplier
	}
	if raw < 0 {
		raw = 0
	}

	// A damaged shield generator cannot project its full charge, so the
	// uncovered share of the hit bleeds straight to the hull.
	capacity := math.Max(0, in.TargetShields.Current) * clampUnit(in.ShieldsHealth)
	shieldRaw := math.Min(raw, capacity)
	hullRaw := raw - shieldRaw

	// A well-maintained target resists better. Maintenance scales the
	// resistance ratings themselves, never the raw split.
	resistance := clampUnit(in.TargetShields.Resistance * clampUnit(in.TargetMaintenance))
	armor := clampUnit(in.TargetArmor * clampUnit(in.TargetMaintenance))

	result := models.DamageResult{
		ShieldDamage: shieldRaw * (1 - resistance),
		HullDamage:   hullRaw * (1 - armor),
	}

	if in.CriticalHit {
		mult := in.CriticalMultiplier
		if mult <= 0 {
			mult = 0.5
		}
		result.CriticalBonusDamage = hullRaw * mult
	}

	if in.SubsystemTarget != nil {
		sub := *in.SubsystemTarget
		factor := in.SubsystemFactor
		if factor <= 0 {
			factor = 0.25
		}
		after := clampUnit(in.SubsystemHealth - factor)
		result.SubsystemHit = &sub
		result.SubsystemHealthAfter = after
		result.SubsystemDisabled = after == 0 && in.SubsystemHealth > 0
	}

	return result
}

// weaponsEffectiveness maps the weapons subsystem health fraction to an
// output multiplier. A destroyed weapons subsystem still leaves a
// quarter of output (point defense, improvised fire) rather than
// silencing the ship entirely.
func weaponsEffectiveness(health float64) float64 {
	health = clampUnit(health)
	return 0.25 + 0.75*health
}

// targetingAccuracy maps the sensors subsystem health fraction to an
// output multiplier. Blinded ships still land half their shots at
// sector combat ranges.
func targetingAccuracy(health float64) float64 {
	health = clampUnit(health)
	return 0.5 + 0.5*health
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
