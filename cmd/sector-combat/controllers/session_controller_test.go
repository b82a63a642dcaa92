package controllers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sectorwars/combat-engine/cmd/sector-combat/config"
	"github.com/sectorwars/combat-engine/pkg/models"
)

// sessionFixture wires a registry, two teams and a session with an
// injectable clock
type sessionFixture struct {
	registry *UnitRegistry
	session  *CombatSession
	red      []*models.Unit
	blue     []*models.Unit
	now      time.Time
}

func newSessionFixture(t *testing.T, cfg *config.BalanceConfig, perTeam int) *sessionFixture {
	t.Helper()

	f := &sessionFixture{
		registry: NewUnitRegistry(),
		now:      time.Date(2269, 3, 14, 12, 0, 0, 0, time.UTC),
	}

	for i := 0; i < perTeam; i++ {
		red := registryShip("red", models.ClassLightFreighter)
		blue := registryShip("blue", models.ClassCargoHauler)
		f.registry.Register(red)
		f.registry.Register(blue)
		f.red = append(f.red, red)
		f.blue = append(f.blue, blue)
	}

	f.session = NewCombatSession(SessionDeps{
		Config:   cfg,
		Registry: f.registry,
		Seed:     4242,
		Now:      func() time.Time { return f.now },
	})

	for _, u := range f.red {
		if err := f.session.AddUnit(u.ID); err != nil {
			t.Fatalf("AddUnit: %v", err)
		}
	}
	for _, u := range f.blue {
		if err := f.session.AddUnit(u.ID); err != nil {
			t.Fatalf("AddUnit: %v", err)
		}
	}

	return f
}

// deadlyConfig guarantees a one-shot kill with no random events
func deadlyConfig() *config.BalanceConfig {
	cfg := config.GetDefaultConfig()
	cfg.Damage.CriticalChance = 0
	return cfg
}

func TestSessionLifecycleToVictory(t *testing.T) {
	cfg := deadlyConfig()
	f := newSessionFixture(t, cfg, 1)

	// One-shot weapon so the fight resolves on tick 1
	f.red[0].Weapons[0].BaseDamage = 1000
	f.blue[0].Shields = models.Shields{}
	f.blue[0].ArmorRating = 0

	if f.session.State() != SessionInitiated {
		t.Fatalf("New session should be INITIATED, got %s", f.session.State())
	}

	if err := f.session.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if f.session.State() != SessionPlanning || f.session.Tick() != 1 {
		t.Fatalf("Expected PLANNING at tick 1, got %s tick %d", f.session.State(), f.session.Tick())
	}

	if err := f.session.SubmitAction(attackBetween(f.red[0], f.blue[0])); err != nil {
		t.Fatalf("SubmitAction: %v", err)
	}

	delta, err := f.session.ResolveTick(context.Background())
	if err != nil {
		t.Fatalf("ResolveTick: %v", err)
	}
	if delta.Tick != 1 || delta.Checksum == 0 {
		t.Errorf("Expected a checksummed tick-1 delta, got %+v", delta)
	}

	if f.session.State() != SessionConcluded {
		t.Fatalf("Expected CONCLUDED, got %s", f.session.State())
	}

	outcome, ok := f.session.Outcome()
	if !ok {
		t.Fatal("Concluded session must have an outcome")
	}
	if outcome.Kind != models.OutcomeVictory || outcome.WinningTeam != "red" {
		t.Errorf("Expected red victory, got %s winner %q", outcome.Kind, outcome.WinningTeam)
	}

	blueLosses, _ := outcome.CasualtiesFor("blue")
	if blueLosses.UnitsLost != 1 {
		t.Errorf("Expected 1 blue unit lost, got %d", blueLosses.UnitsLost)
	}

	// The registry gets the final state back and the claim is released
	stored, _ := f.registry.Get(f.blue[0].ID)
	if !stored.Destroyed {
		t.Error("Destruction must be committed back to the registry")
	}
	if _, held := f.registry.ClaimedBy(f.red[0].ID); held {
		t.Error("Claims must be released on conclusion")
	}
}

func TestSessionVictorySalvage(t *testing.T) {
	cfg := deadlyConfig()
	f := newSessionFixture(t, cfg, 1)

	f.red[0].Weapons[0].BaseDamage = 1000
	f.blue[0].Shields = models.Shields{}
	f.blue[0].Cargo = map[string]int{"ore": 100, "fuel_cells": 40}

	if err := f.session.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := f.session.SubmitAction(attackBetween(f.red[0], f.blue[0])); err != nil {
		t.Fatalf("SubmitAction: %v", err)
	}
	if _, err := f.session.ResolveTick(context.Background()); err != nil {
		t.Fatalf("ResolveTick: %v", err)
	}

	outcome, _ := f.session.Outcome()
	if len(outcome.Salvage) == 0 {
		t.Fatal("Victory over a laden wreck must yield salvage")
	}
	for _, lot := range outcome.Salvage {
		if lot.ToTeam != "red" {
			t.Errorf("Salvage must flow to the winner, got %q", lot.ToTeam)
		}
		held := f.blue[0].Cargo[lot.Resource]
		if lot.Amount < int(0.3*float64(held))-1 || lot.Amount > int(0.8*float64(held))+1 {
			t.Errorf("Salvage of %s outside the 30-80%% band: %d of %d", lot.Resource, lot.Amount, held)
		}
	}
}

func TestSessionTimeoutConcludesAsDraw(t *testing.T) {
	cfg := deadlyConfig()
	cfg.Session.MaxTicks = 2
	f := newSessionFixture(t, cfg, 1)

	// Nobody shoots: the fight can only time out
	if err := f.session.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := f.session.ResolveTick(context.Background()); err != nil {
			t.Fatalf("ResolveTick %d: %v", i+1, err)
		}
	}

	if f.session.State() != SessionConcluded {
		t.Fatalf("Expected CONCLUDED after max ticks, got %s", f.session.State())
	}
	outcome, _ := f.session.Outcome()
	if outcome.Kind != models.OutcomeTimeout {
		t.Errorf("Expected timeout outcome, got %s", outcome.Kind)
	}
	if outcome.WinningTeam != "" {
		t.Errorf("A timeout has no winner, got %q", outcome.WinningTeam)
	}

	if _, err := f.session.ResolveTick(context.Background()); !errors.Is(err, models.ErrSessionConcluded) {
		t.Errorf("Resolving a concluded session must fail with ErrSessionConcluded, got %v", err)
	}
}

func TestSessionEscapeOutcome(t *testing.T) {
	cfg := deadlyConfig()
	// Tune escape so the flee roll always succeeds
	for class := range cfg.Escape.BaseByClass {
		cfg.Escape.BaseByClass[class] = 1.0
	}
	for class := range cfg.Escape.PursuitByClass {
		cfg.Escape.PursuitByClass[class] = 0.5
	}
	cfg.Escape.HullFactorFloor = 1.0
	cfg.Escape.EdgeFalloff = 0

	f := newSessionFixture(t, cfg, 1)

	if err := f.session.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	flee := models.CombatAction{
		ID:          uuid.New(),
		ActorUnitID: f.blue[0].ID,
		Type:        models.ActionFlee,
	}
	if err := f.session.SubmitAction(flee); err != nil {
		t.Fatalf("SubmitAction: %v", err)
	}

	if _, err := f.session.ResolveTick(context.Background()); err != nil {
		t.Fatalf("ResolveTick: %v", err)
	}

	outcome, ok := f.session.Outcome()
	if !ok {
		t.Fatal("Session should conclude once the last opponent escapes")
	}
	if outcome.Kind != models.OutcomeEscape {
		t.Errorf("Expected escape outcome, got %s", outcome.Kind)
	}
	if outcome.WinningTeam != "red" {
		t.Errorf("The side holding the field should be recorded, got %q", outcome.WinningTeam)
	}

	blueSummary, _ := outcome.CasualtiesFor("blue")
	if blueSummary.UnitsEscaped != 1 {
		t.Errorf("Expected 1 blue escape, got %d", blueSummary.UnitsEscaped)
	}
}

func TestSessionRejectsSubmissionAfterWindowCloses(t *testing.T) {
	cfg := deadlyConfig()
	f := newSessionFixture(t, cfg, 1)

	if err := f.session.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	// Advance the injected clock past the planning deadline
	f.now = f.now.Add(cfg.Session.PlanningWindow + time.Second)

	err := f.session.SubmitAction(attackBetween(f.red[0], f.blue[0]))
	verr, ok := models.AsValidationError(err)
	if !ok || verr.Reason != models.RejectOutsideWindow {
		t.Errorf("Expected outside_planning_window, got %v", err)
	}

	// The rejection is audited
	if f.session.AuditLog().RejectionCount() != 1 {
		t.Errorf("Rejected submissions must be audited, count=%d", f.session.AuditLog().RejectionCount())
	}
}

func TestSessionDuplicateSubmissionRejected(t *testing.T) {
	cfg := deadlyConfig()
	f := newSessionFixture(t, cfg, 1)

	if err := f.session.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	if err := f.session.SubmitAction(attackBetween(f.red[0], f.blue[0])); err != nil {
		t.Fatalf("First submission should pass: %v", err)
	}

	err := f.session.SubmitAction(attackBetween(f.red[0], f.blue[0]))
	verr, ok := models.AsValidationError(err)
	if !ok || verr.Reason != models.RejectDuplicateAction {
		t.Errorf("Expected duplicate_action, got %v", err)
	}
}

func TestSessionPendingJoinAdmittedAtPlanningBoundary(t *testing.T) {
	cfg := deadlyConfig()
	cfg.Session.MaxTicks = 5
	f := newSessionFixture(t, cfg, 1)

	if err := f.session.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	late := registryShip("red", models.ClassDefender)
	f.registry.Register(late)
	if err := f.session.AddUnit(late.ID); err != nil {
		t.Fatalf("AddUnit mid-session: %v", err)
	}

	// The joiner is not in the working set until the boundary
	if len(f.session.Units()) != 2 {
		t.Fatalf("Expected 2 units before the boundary, got %d", len(f.session.Units()))
	}

	if _, err := f.session.ResolveTick(context.Background()); err != nil {
		t.Fatalf("ResolveTick: %v", err)
	}

	if f.session.State() != SessionPlanning {
		t.Fatalf("Fight should continue, got %s", f.session.State())
	}
	if len(f.session.Units()) != 3 {
		t.Errorf("Expected 3 units after the planning boundary, got %d", len(f.session.Units()))
	}
	if _, held := f.registry.ClaimedBy(late.ID); !held {
		t.Error("An admitted joiner must be claimed")
	}
}

func TestSessionIntegrityReplayMatches(t *testing.T) {
	cfg := deadlyConfig()
	cfg.Session.MaxTicks = 4
	f := newSessionFixture(t, cfg, 2)

	if err := f.session.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	for tick := 0; tick < 3 && f.session.State() == SessionPlanning; tick++ {
		for i := range f.red {
			_ = f.session.SubmitAction(attackBetween(f.red[i], f.blue[i]))
			_ = f.session.SubmitAction(attackBetween(f.blue[i], f.red[i]))
		}
		if _, err := f.session.ResolveTick(context.Background()); err != nil {
			t.Fatalf("ResolveTick: %v", err)
		}
	}

	if err := f.session.VerifyIntegrity(); err != nil {
		t.Fatalf("Replay must reproduce the recorded checksums: %v", err)
	}
}

func TestDroneRedeploySurvivesIntegrityReplay(t *testing.T) {
	cfg := deadlyConfig()
	cfg.Session.MaxTicks = 3
	f := newSessionFixture(t, cfg, 1)

	f.red[0].AttackDrones = 25
	f.red[0].DefenseDrones = 15

	if err := f.session.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	// Redeploying during planning changes the tick-start state the tick
	// resolves from; the replay must see the same split
	if err := f.session.DeployDrones(f.red[0].ID, 10, 30); err != nil {
		t.Fatalf("DeployDrones: %v", err)
	}

	if _, err := f.session.ResolveTick(context.Background()); err != nil {
		t.Fatalf("ResolveTick after a redeploy must not flag the session: %v", err)
	}
	if err := f.session.VerifyIntegrity(); err != nil {
		t.Errorf("Replay must reproduce a tick that started with a redeploy: %v", err)
	}
}

func TestTamperedWorkingStateRollsBackOnResolve(t *testing.T) {
	cfg := deadlyConfig()
	cfg.Session.MaxTicks = 5
	f := newSessionFixture(t, cfg, 1)

	if err := f.session.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	// Mutate the working state behind the session's back, after the
	// tick-start snapshot was taken
	f.session.units[f.blue[0].ID].Hull.Current = 5

	_, err := f.session.ResolveTick(context.Background())
	if !errors.Is(err, models.ErrIntegrityMismatch) {
		t.Fatalf("Expected an integrity mismatch, got %v", err)
	}

	// The tick is discarded and the session is back at its start
	if f.session.State() != SessionPlanning || f.session.Tick() != 1 {
		t.Fatalf("Expected PLANNING at tick 1 after rollback, got %s tick %d",
			f.session.State(), f.session.Tick())
	}
	for _, u := range f.session.Units() {
		if u.ID == f.blue[0].ID && u.Hull.Current != 100 {
			t.Errorf("Rollback must restore the tampered hull, got %f", u.Hull.Current)
		}
	}
	if _, ok := f.session.Checksum(1); ok {
		t.Error("A discarded tick must not leave a recorded checksum")
	}
}

func TestSessionRollbackRestoresSnapshot(t *testing.T) {
	cfg := deadlyConfig()
	cfg.Session.MaxTicks = 5
	f := newSessionFixture(t, cfg, 2)

	if err := f.session.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	_ = f.session.SubmitAction(attackBetween(f.red[0], f.blue[0]))
	if _, err := f.session.ResolveTick(context.Background()); err != nil {
		t.Fatalf("ResolveTick: %v", err)
	}

	damagedHull := 0.0
	for _, u := range f.session.Units() {
		if u.ID == f.blue[0].ID {
			damagedHull = u.Hull.Current
		}
	}
	if damagedHull >= 100 {
		t.Fatal("Setup expects tick 1 to damage blue[0]")
	}

	if err := f.session.Rollback(1); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	if f.session.Tick() != 1 || f.session.State() != SessionPlanning {
		t.Fatalf("Expected PLANNING at tick 1 after rollback, got %s tick %d",
			f.session.State(), f.session.Tick())
	}
	for _, u := range f.session.Units() {
		if u.ID == f.blue[0].ID && u.Hull.Current != 100 {
			t.Errorf("Rollback must restore hull, got %f", u.Hull.Current)
		}
	}
	if _, ok := f.session.Checksum(1); ok {
		t.Error("Rollback must discard checksums from the rolled-back tick onward")
	}
}

func TestTerminationMutualDestruction(t *testing.T) {
	cfg := deadlyConfig()
	f := newSessionFixture(t, cfg, 1)

	if err := f.session.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	// Force the working state: everyone dead
	for _, u := range f.session.units {
		u.Destroyed = true
		u.Hull.Current = 0
	}

	kind, winner, done := f.session.terminationLocked()
	if !done || kind != models.OutcomeMutualDestruction || winner != "" {
		t.Errorf("Expected mutual destruction, got %s winner %q done %v", kind, winner, done)
	}
}
