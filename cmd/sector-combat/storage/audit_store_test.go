package storage

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sectorwars/combat-engine/cmd/sector-combat/core"
	"github.com/sectorwars/combat-engine/pkg/models"
)

func memoryStore(t *testing.T) *AuditStore {
	t.Helper()
	store, err := NewAuditStore("")
	if err != nil {
		t.Fatalf("Failed to open in-memory store: %v", err)
	}
	return store
}

func TestAuditStoreRoundTrip(t *testing.T) {
	store := memoryStore(t)
	sessionID := uuid.New()

	if err := store.SaveSession(sessionID, 42, 10, "SKIRMISH", time.Now()); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	log := core.NewAuditLog(sessionID)
	actor, target := uuid.New(), uuid.New()
	log.Append(1, models.CombatAction{
		ID:          uuid.New(),
		ActorUnitID: actor,
		Type:        models.ActionAttack,
		TargetID:    &target,
	}, true, "")
	log.Append(1, models.CombatAction{
		ID:          uuid.New(),
		ActorUnitID: actor,
		Type:        models.ActionAttack,
		TargetID:    &target,
	}, false, models.RejectDuplicateAction)

	if err := store.SaveAuditLog(log); err != nil {
		t.Fatalf("SaveAuditLog: %v", err)
	}

	records, err := store.ActionsForSession(sessionID)
	if err != nil {
		t.Fatalf("ActionsForSession: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 action records, got %d", len(records))
	}
	if records[0].Seq != 0 || !records[0].Accepted {
		t.Errorf("First record should be the accepted seq 0 action: %+v", records[0])
	}
	if records[1].Reason != string(models.RejectDuplicateAction) {
		t.Errorf("Rejection reason must survive persistence, got %q", records[1].Reason)
	}
}

func TestAuditStoreOutcomeAndChecksums(t *testing.T) {
	store := memoryStore(t)
	sessionID := uuid.New()

	if err := store.SaveSession(sessionID, 7, 4, "SKIRMISH", time.Now()); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	for tick := 1; tick <= 3; tick++ {
		if err := store.SaveChecksum(sessionID, tick, uint64(tick)*1000); err != nil {
			t.Fatalf("SaveChecksum: %v", err)
		}
	}

	outcome := &models.CombatOutcome{
		SessionID:   sessionID,
		Kind:        models.OutcomeVictory,
		WinningTeam: "red",
		Ticks:       3,
		ConcludedAt: time.Now(),
	}
	if err := store.SaveOutcome(outcome); err != nil {
		t.Fatalf("SaveOutcome: %v", err)
	}

	sums, err := store.ChecksumsForSession(sessionID)
	if err != nil {
		t.Fatalf("ChecksumsForSession: %v", err)
	}
	if len(sums) != 3 || sums[2].Tick != 3 {
		t.Fatalf("Expected 3 ordered checksum rows, got %+v", sums)
	}

	stored, err := store.OutcomeForSession(sessionID)
	if err != nil {
		t.Fatalf("OutcomeForSession: %v", err)
	}
	if stored == nil || stored.Kind != "victory" || stored.WinningTeam != "red" {
		t.Errorf("Outcome row mismatch: %+v", stored)
	}

	missing, err := store.OutcomeForSession(uuid.New())
	if err != nil {
		t.Fatalf("OutcomeForSession for unknown session: %v", err)
	}
	if missing != nil {
		t.Error("Unknown session must return a nil outcome, not an error")
	}
}
