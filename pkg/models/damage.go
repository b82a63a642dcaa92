package models

// DamageResult is the output of one damage pipeline evaluation.
// ShieldDamage + HullDamage never exceeds the raw weapon damage; the
// critical bonus is additive on top.
type DamageResult struct {
	ShieldDamage        float64 `json:"shield_damage"`
	HullDamage          float64 `json:"hull_damage"`
	CriticalBonusDamage float64 `json:"critical_bonus_damage,omitempty"`

	// SubsystemHit is set when a targeted subsystem strike landed
	SubsystemHit *Subsystem `json:"subsystem_hit,omitempty"`
	// SubsystemHealthAfter is the subsystem health fraction after the
	// hit, clamped to [0,1]
	SubsystemHealthAfter float64 `json:"subsystem_health_after,omitempty"`
	// SubsystemDisabled reports a subsystem driven to zero this hit
	SubsystemDisabled bool `json:"subsystem_disabled,omitempty"`
}

// TotalHullDamage returns hull damage including the critical bonus
func (r DamageResult) TotalHullDamage() float64 {
	return r.HullDamage + r.CriticalBonusDamage
}
