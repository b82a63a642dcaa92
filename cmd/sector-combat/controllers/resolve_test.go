package controllers

import (
	"testing"

	"github.com/google/uuid"
	"github.com/sectorwars/combat-engine/cmd/sector-combat/config"
	"github.com/sectorwars/combat-engine/pkg/models"
)

func TestAttackDronesStrikeDronelessShips(t *testing.T) {
	cfg := config.GetDefaultConfig()
	params := NewResolutionParams(cfg, 4242)

	carrier := registryShip("red", models.ClassCarrier)
	carrier.Index = 0
	carrier.AttackDrones = 40

	freighter := registryShip("blue", models.ClassLightFreighter)
	freighter.Index = 1

	units := []*models.Unit{carrier, freighter}

	// Nothing screens the freighter, so the swarm goes straight for its
	// hull on the first tick
	NewBattleCoordinator(1).ResolveTick(uuid.New(), 1, units, nil, params)
	if freighter.Hull.Current >= 100 {
		t.Fatalf("An unopposed attack swarm must damage the exposed ship, hull still %f", freighter.Hull.Current)
	}

	for tick := 2; tick <= 25 && !freighter.Destroyed; tick++ {
		NewBattleCoordinator(1).ResolveTick(uuid.New(), tick, units, nil, params)
	}
	if !freighter.Destroyed {
		t.Errorf("40 attack drones should wear a freighter down within 25 ticks, hull at %f", freighter.Hull.Current)
	}
}

func TestShipsScreenedWhileOpposingDronesLive(t *testing.T) {
	cfg := config.GetDefaultConfig()
	params := NewResolutionParams(cfg, 4242)

	attacker := registryShip("red", models.ClassCarrier)
	attacker.Index = 0
	attacker.AttackDrones = 10

	defender := registryShip("blue", models.ClassCarrier)
	defender.Index = 1
	defender.DefenseDrones = 200

	units := []*models.Unit{attacker, defender}
	NewBattleCoordinator(1).ResolveTick(uuid.New(), 1, units, nil, params)

	// At most 10 pairs resolve, so the screen cannot be cleared this
	// tick and the hull behind it stays untouched
	if defender.Hull.Current != 100 {
		t.Errorf("A ship behind a live screen must not take drone damage, hull %f", defender.Hull.Current)
	}
	if defender.DefenseDrones < 190 {
		t.Errorf("No more than 10 screen drones can be lost to 10 attackers, got %d left", defender.DefenseDrones)
	}
}

func TestDroneLossesSpreadAttackPoolFirst(t *testing.T) {
	lead := registryShip("red", models.ClassCarrier)
	lead.Index = 0
	lead.AttackDrones = 3
	lead.DefenseDrones = 5

	wing := registryShip("red", models.ClassCarrier)
	wing.Index = 1
	wing.AttackDrones = 2
	wing.DefenseDrones = 1

	// Slice order must not matter; arena index does
	applyDroneLosses([]*models.Unit{wing, lead}, 6)

	if lead.AttackDrones != 0 || wing.AttackDrones != 0 {
		t.Errorf("Attack pools drain first across the team, got %d/%d", lead.AttackDrones, wing.AttackDrones)
	}
	if lead.DefenseDrones != 4 || wing.DefenseDrones != 1 {
		t.Errorf("Remaining losses come from the lead carrier's screen, got %d/%d",
			lead.DefenseDrones, wing.DefenseDrones)
	}
}

func TestFleeResolvesInInitiativeOrder(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Damage.CriticalChance = 0
	for class := range cfg.Escape.BaseByClass {
		cfg.Escape.BaseByClass[class] = 1.0
	}
	for class := range cfg.Escape.PursuitByClass {
		cfg.Escape.PursuitByClass[class] = 0.5
	}
	cfg.Escape.HullFactorFloor = 1.0
	cfg.Escape.EdgeFalloff = 0
	params := NewResolutionParams(cfg, 7)

	courier := registryShip("red", models.ClassFastCourier)
	courier.Index = 0
	hauler := registryShip("blue", models.ClassCargoHauler)
	hauler.Index = 1
	hauler.Weapons[0].BaseDamage = 1000

	units := []*models.Unit{courier, hauler}
	actions := []models.CombatAction{
		{ID: uuid.New(), ActorUnitID: courier.ID, Type: models.ActionFlee},
		attackBetween(hauler, courier),
	}

	resolveGroup(units, actions, 1, params)

	// The courier acts on initiative 90, the hauler on 35: the break
	// for the edge comes before the guns can train
	if !courier.Escaped {
		t.Fatal("Courier should have escaped before the hauler fired")
	}
	if courier.Hull.Current != 100 {
		t.Errorf("A ship that escaped earlier in the tick cannot be hit, hull %f", courier.Hull.Current)
	}
}

func TestEvasionAmplifiesEvadeStance(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Damage.CriticalChance = 0
	params := NewResolutionParams(cfg, 7)

	run := func(evasion float64) float64 {
		attacker := registryShip("red", models.ClassLightFreighter)
		attacker.Index = 0
		target := registryShip("blue", models.ClassLightFreighter)
		target.Index = 1
		target.Evasion = evasion

		actions := []models.CombatAction{
			attackBetween(attacker, target),
			{ID: uuid.New(), ActorUnitID: target.ID, Type: models.ActionEvade},
		}
		resolveGroup([]*models.Unit{attacker, target}, actions, 1, params)
		return 100 - target.Hull.Current
	}

	sluggish := run(0)
	agile := run(0.9)

	if sluggish <= 0 || agile <= 0 {
		t.Fatalf("Both targets should still take some fire, got %f and %f", sluggish, agile)
	}
	if agile >= sluggish {
		t.Errorf("An agile hull must dodge more of the hit: evasion 0 took %f, evasion 0.9 took %f",
			sluggish, agile)
	}
}
