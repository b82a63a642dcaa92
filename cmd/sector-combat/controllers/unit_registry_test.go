package controllers

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/sectorwars/combat-engine/pkg/models"
)

func registryShip(team string, class models.ShipClass) *models.Unit {
	return &models.Unit{
		ID:     uuid.New(),
		Name:   "SW-" + team,
		Kind:   models.UnitKindShip,
		Class:  class,
		TeamID: team,
		Hull:   models.Pool{Current: 100, Max: 100},
		Weapons: []models.Weapon{
			{Name: "pulse laser", BaseDamage: 40, RangeKm: 10, AmmoCost: 1},
		},
		Subsystems:            models.FullSubsystems(),
		MaintenanceMultiplier: 1,
		Ammo:                  50,
		Fuel:                  100,
	}
}

func TestRegistryAssignsStableIndexes(t *testing.T) {
	r := NewUnitRegistry()

	a := registryShip("red", models.ClassScoutShip)
	b := registryShip("blue", models.ClassCarrier)
	r.Register(a)
	r.Register(b)

	if a.Index == b.Index {
		t.Fatal("Units must get distinct arena indexes")
	}

	// Re-registering keeps the original index
	replacement := a.Clone()
	replacement.Index = 999
	r.Register(replacement)
	if replacement.Index != a.Index {
		t.Errorf("Re-registration must keep index %d, got %d", a.Index, replacement.Index)
	}
}

func TestRegistryClaimIsAllOrNothing(t *testing.T) {
	r := NewUnitRegistry()
	a := registryShip("red", models.ClassScoutShip)
	b := registryShip("blue", models.ClassCarrier)
	r.Register(a)
	r.Register(b)

	session1, session2 := uuid.New(), uuid.New()

	if err := r.Claim(session1, a.ID); err != nil {
		t.Fatalf("First claim should succeed: %v", err)
	}

	err := r.Claim(session2, b.ID, a.ID)
	if !errors.Is(err, models.ErrUnitClaimed) {
		t.Fatalf("Expected ErrUnitClaimed, got %v", err)
	}
	if holder, held := r.ClaimedBy(b.ID); held {
		t.Errorf("Failed claim must not take partial hold; %s holds %s", holder, b.ID)
	}

	// Re-claiming your own units is idempotent
	if err := r.Claim(session1, a.ID); err != nil {
		t.Errorf("Re-claim by the holder should succeed: %v", err)
	}

	r.Release(session1, a.ID)
	if err := r.Claim(session2, b.ID, a.ID); err != nil {
		t.Errorf("Claim after release should succeed: %v", err)
	}
}

func TestRegistryDroneDeployment(t *testing.T) {
	r := NewUnitRegistry()
	u := registryShip("red", models.ClassCarrier)
	u.AttackDrones = 10
	u.DefenseDrones = 20
	r.Register(u)

	if err := r.DeployDrones(u.ID, 25, 5); err != nil {
		t.Fatalf("Valid redeployment failed: %v", err)
	}
	if u.AttackDrones != 25 || u.DefenseDrones != 5 {
		t.Errorf("Expected 25/5 split, got %d/%d", u.AttackDrones, u.DefenseDrones)
	}

	if err := r.DeployDrones(u.ID, 40, 0); err == nil {
		t.Error("Deployment exceeding carried drones must fail")
	}

	if err := r.RecallDrones(u.ID); err != nil {
		t.Fatalf("Recall failed: %v", err)
	}
	if u.AttackDrones != 0 || u.DefenseDrones != 30 {
		t.Errorf("Recall should pool everything defensively, got %d/%d", u.AttackDrones, u.DefenseDrones)
	}
}

func TestRegistrySnapshotIsIndependent(t *testing.T) {
	r := NewUnitRegistry()
	u := registryShip("red", models.ClassScoutShip)
	u.Cargo = map[string]int{"ore": 100}
	r.Register(u)

	snap := r.Snapshot([]uuid.UUID{u.ID})
	if len(snap) != 1 {
		t.Fatalf("Expected 1 snapshot unit, got %d", len(snap))
	}

	snap[0].Hull.Current = 1
	snap[0].Cargo["ore"] = 0

	if u.Hull.Current != 100 || u.Cargo["ore"] != 100 {
		t.Error("Mutating a snapshot must not touch the registry's unit")
	}
}

func TestRegistryCommitSnapshotWritesBack(t *testing.T) {
	r := NewUnitRegistry()
	u := registryShip("red", models.ClassScoutShip)
	r.Register(u)

	snap := r.Snapshot([]uuid.UUID{u.ID})
	snap[0].Hull.Current = 42
	snap[0].Destroyed = true
	r.CommitSnapshot(snap)

	stored, _ := r.Get(u.ID)
	if stored.Hull.Current != 42 || !stored.Destroyed {
		t.Errorf("Commit must persist mutated state, got hull=%f destroyed=%v",
			stored.Hull.Current, stored.Destroyed)
	}
	if stored.Index != u.Index {
		t.Errorf("Commit must preserve arena index %d, got %d", u.Index, stored.Index)
	}
}
