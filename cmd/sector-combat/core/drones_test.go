package core

import (
	"math"
	"math/rand"
	"testing"
)

func TestDroneLossesTrendOneToOne(t *testing.T) {
	// With neutral bonuses, aggregate destruction over many pair
	// resolutions converges to ~1:1. Statistical property, not
	// per-tick.
	params := DefaultDroneParams()
	rng := rand.New(rand.NewSource(42))

	totalA, totalB := 0, 0
	for i := 0; i < 2000; i++ {
		result := params.ResolveDroneEngagement(
			DroneForce{AttackDrones: 1},
			DroneForce{AttackDrones: 1},
			rng,
		)
		totalA += result.SideALosses
		totalB += result.SideBLosses
	}

	if totalA == 0 || totalB == 0 {
		t.Fatalf("Expected losses on both sides, got %d vs %d", totalA, totalB)
	}

	ratio := float64(totalA) / float64(totalB)
	if math.Abs(ratio-1.0) > 0.1 {
		t.Errorf("Loss ratio should converge near 1:1, got %.3f (%d vs %d)", ratio, totalA, totalB)
	}
}

func TestEffectivenessBonusPerTenAttackDrones(t *testing.T) {
	params := DefaultDroneParams()

	// 25 attack drones: +5% x 2.5 = +12.5%
	mult := params.EffectivenessMultiplier(DroneForce{AttackDrones: 25})
	if math.Abs(mult-1.125) > 1e-9 {
		t.Errorf("Expected 1.125 effectiveness for 25 attack drones, got %f", mult)
	}
}

func TestIncomingReductionPerTenDefenseDrones(t *testing.T) {
	params := DefaultDroneParams()

	// 20 defense drones: -10% incoming
	mult := params.IncomingMultiplier(DroneForce{DefenseDrones: 20})
	if math.Abs(mult-0.9) > 1e-9 {
		t.Errorf("Expected 0.9 incoming multiplier for 20 defense drones, got %f", mult)
	}
}

func TestNetMultiplierAppliedBeforeRoll(t *testing.T) {
	// 25 attack drones vs 20 defense drones: the bonused side should
	// destroy measurably more over many resolutions
	params := DefaultDroneParams()
	rng := rand.New(rand.NewSource(7))

	lossesStrong, lossesWeak := 0, 0
	for i := 0; i < 2000; i++ {
		result := params.ResolveDroneEngagement(
			DroneForce{AttackDrones: 25},
			DroneForce{DefenseDrones: 20},
			rng,
		)
		lossesStrong += result.SideALosses
		lossesWeak += result.SideBLosses
	}

	// Side B's expected loss rate: 0.5 x 1.125 x 0.9 = 0.50625
	// Side A's expected loss rate: 0.5 x 1.0 x 1.0 = 0.5, so B loses
	// slightly more; verify the directional effect holds
	if lossesWeak <= lossesStrong {
		t.Errorf("Bonused side should inflict more losses: strong lost %d, weak lost %d",
			lossesStrong, lossesWeak)
	}
}

func TestPlanetaryBonusIsFlatMultiplier(t *testing.T) {
	params := DefaultDroneParams()

	shipBased := params.EffectivenessMultiplier(DroneForce{AttackDrones: 10})
	planetBased := params.EffectivenessMultiplier(DroneForce{AttackDrones: 10, PlanetBased: true})

	if math.Abs(planetBased/shipBased-1.05) > 1e-9 {
		t.Errorf("Planet-deployed drones should get a flat +5%%: ship=%f planet=%f", shipBased, planetBased)
	}
}

func TestNoPairsWithoutOpposition(t *testing.T) {
	params := DefaultDroneParams()
	rng := rand.New(rand.NewSource(1))

	result := params.ResolveDroneEngagement(
		DroneForce{AttackDrones: 10},
		DroneForce{},
		rng,
	)

	if result.PairsResolved != 0 || result.SideALosses != 0 || result.SideBLosses != 0 {
		t.Errorf("No engagement without opposing drones: %+v", result)
	}
}

func TestShipStrikeScalesWithSwarmSize(t *testing.T) {
	params := DefaultDroneParams()
	rng := rand.New(rand.NewSource(11))

	force := DroneForce{AttackDrones: 40}
	raw := params.ShipStrikeDamage(force, rng)

	// 40 drones x 0.4 x 1.2 effectiveness = 19.2 before jitter
	base := 40 * params.ShipDamagePerDrone * params.EffectivenessMultiplier(force)
	if raw < base*0.75 || raw > base*1.25 {
		t.Errorf("Strike damage outside the jitter band: got %f, base %f", raw, base)
	}
	if raw <= 0 {
		t.Error("An unopposed attack swarm must deal hull damage")
	}
}

func TestDefenseOnlyForceCannotStrikeShips(t *testing.T) {
	params := DefaultDroneParams()
	rng := rand.New(rand.NewSource(11))

	if dmg := params.ShipStrikeDamage(DroneForce{DefenseDrones: 50}, rng); dmg != 0 {
		t.Errorf("Defense drones hold the screen, they do not strafe hulls: got %f", dmg)
	}
}

func TestDestructionProbabilityClamped(t *testing.T) {
	params := DroneParams{
		EffectivenessPerTen:     5, // absurd tuning
		IncomingReductionPerTen: 0,
		BaseDestructionChance:   0.9,
	}
	rng := rand.New(rand.NewSource(3))

	result := params.ResolveDroneEngagement(
		DroneForce{AttackDrones: 100},
		DroneForce{AttackDrones: 100},
		rng,
	)

	if result.SideBLosses > 100 {
		t.Errorf("Losses cannot exceed force size, got %d", result.SideBLosses)
	}
}
