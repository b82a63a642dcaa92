package core

import (
	"math"
	"math/rand"
	"testing"

	"github.com/sectorwars/combat-engine/pkg/models"
)

func TestDamageAgainstPartialShields(t *testing.T) {
	// 100 base damage into 40 shields at 10% resistance, 5% armor
	in := NewDamageInput(100, models.Shields{Current: 40, Max: 100, Resistance: 0.1}, 0.05)

	result := ResolveDamage(in)

	if math.Abs(result.ShieldDamage-36) > 1e-9 {
		t.Errorf("Expected shield damage 36, got %f", result.ShieldDamage)
	}
	if math.Abs(result.HullDamage-57) > 1e-9 {
		t.Errorf("Expected hull damage 57, got %f", result.HullDamage)
	}
	if result.CriticalBonusDamage != 0 {
		t.Errorf("Expected no critical bonus, got %f", result.CriticalBonusDamage)
	}
}

func TestDamageWithNoShieldsNoArmor(t *testing.T) {
	in := NewDamageInput(100, models.Shields{Current: 0, Max: 100, Resistance: 0.2}, 0)

	result := ResolveDamage(in)

	if result.ShieldDamage != 0 {
		t.Errorf("Expected no shield damage, got %f", result.ShieldDamage)
	}
	if math.Abs(result.HullDamage-100) > 1e-9 {
		t.Errorf("Expected all 100 damage on hull, got %f", result.HullDamage)
	}
}

func TestCriticalBonusIsAdditive(t *testing.T) {
	in := NewDamageInput(100, models.Shields{Current: 40, Max: 100, Resistance: 0.1}, 0.05)
	in.CriticalHit = true

	result := ResolveDamage(in)

	// The bonus comes from the pre-armor hull share: 60 x 0.5
	if math.Abs(result.CriticalBonusDamage-30) > 1e-9 {
		t.Errorf("Expected critical bonus 30, got %f", result.CriticalBonusDamage)
	}
	// Base shares are unchanged by the critical
	if math.Abs(result.HullDamage-57) > 1e-9 {
		t.Errorf("Critical must not replace hull damage, got %f", result.HullDamage)
	}
	if math.Abs(result.TotalHullDamage()-87) > 1e-9 {
		t.Errorf("Expected total hull damage 87, got %f", result.TotalHullDamage())
	}
}

func TestDamageConservationProperty(t *testing.T) {
	// shieldDamage + hullDamage never exceeds the raw weapon damage,
	// critical bonus excluded
	rng := rand.New(rand.NewSource(99))
	for i := 0; i < 500; i++ {
		base := rng.Float64() * 200
		in := NewDamageInput(base, models.Shields{
			Current:    rng.Float64() * 150,
			Max:        150,
			Resistance: rng.Float64(),
		}, rng.Float64())
		in.CriticalHit = rng.Intn(2) == 0

		result := ResolveDamage(in)

		if result.ShieldDamage+result.HullDamage > base+1e-9 {
			t.Fatalf("Conservation violated: base=%f shield=%f hull=%f",
				base, result.ShieldDamage, result.HullDamage)
		}
		if result.ShieldDamage < 0 || result.HullDamage < 0 || result.CriticalBonusDamage < 0 {
			t.Fatalf("Negative damage component: %+v", result)
		}
	}
}

func TestMaintenanceScalesOutgoingDamage(t *testing.T) {
	in := NewDamageInput(100, models.Shields{Current: 0, Max: 100}, 0)
	in.AttackerMaintenance = 0.5

	result := ResolveDamage(in)

	if math.Abs(result.HullDamage-50) > 1e-9 {
		t.Errorf("Expected half output at 0.5 maintenance, got %f", result.HullDamage)
	}
}

func TestMaintenanceScalesTargetResistance(t *testing.T) {
	// A poorly maintained target resists less: armor 0.5 at 0.5
	// maintenance acts like armor 0.25
	in := NewDamageInput(100, models.Shields{Current: 0, Max: 100}, 0.5)
	in.TargetMaintenance = 0.5

	result := ResolveDamage(in)

	if math.Abs(result.HullDamage-75) > 1e-9 {
		t.Errorf("Expected 75 hull damage with degraded armor, got %f", result.HullDamage)
	}
}

func TestDegradedWeaponsSubsystemReducesOutput(t *testing.T) {
	in := NewDamageInput(100, models.Shields{Current: 0, Max: 100}, 0)
	in.WeaponsHealth = 0

	result := ResolveDamage(in)

	if math.Abs(result.HullDamage-25) > 1e-9 {
		t.Errorf("Expected quarter output with dead weapons, got %f", result.HullDamage)
	}
}

func TestDegradedSensorsReduceOutput(t *testing.T) {
	in := NewDamageInput(100, models.Shields{Current: 0, Max: 100}, 0)
	in.SensorsHealth = 0

	result := ResolveDamage(in)

	if math.Abs(result.HullDamage-50) > 1e-9 {
		t.Errorf("Expected half output with blinded sensors, got %f", result.HullDamage)
	}
}

func TestDegradedShieldGeneratorLeaksToHull(t *testing.T) {
	// 100 shield charge but a half-health generator only projects 50,
	// so the rest of an 80-point hit bleeds to the hull
	in := NewDamageInput(80, models.Shields{Current: 100, Max: 100}, 0)
	in.ShieldsHealth = 0.5

	result := ResolveDamage(in)

	if math.Abs(result.ShieldDamage-50) > 1e-9 {
		t.Errorf("Expected 50 absorbed by the weakened shield, got %f", result.ShieldDamage)
	}
	if math.Abs(result.HullDamage-30) > 1e-9 {
		t.Errorf("Expected 30 leaked to the hull, got %f", result.HullDamage)
	}
}

func TestSubsystemHitClampsAndDisables(t *testing.T) {
	sub := models.SubsystemEngines

	in := NewDamageInput(50, models.Shields{Current: 0, Max: 100}, 0)
	in.SubsystemTarget = &sub
	in.SubsystemHealth = 0.2
	in.SubsystemFactor = 0.25

	result := ResolveDamage(in)

	if result.SubsystemHit == nil || *result.SubsystemHit != models.SubsystemEngines {
		t.Fatal("Expected engines subsystem hit recorded")
	}
	if result.SubsystemHealthAfter != 0 {
		t.Errorf("Expected subsystem health clamped to 0, got %f", result.SubsystemHealthAfter)
	}
	if !result.SubsystemDisabled {
		t.Error("Expected subsystem disabled when driven to zero")
	}
}

func TestSubsystemHitOnAlreadyDeadSubsystem(t *testing.T) {
	sub := models.SubsystemSensors

	in := NewDamageInput(50, models.Shields{Current: 0, Max: 100}, 0)
	in.SubsystemTarget = &sub
	in.SubsystemHealth = 0

	result := ResolveDamage(in)

	if result.SubsystemDisabled {
		t.Error("An already-dead subsystem must not report a fresh disable")
	}
}
