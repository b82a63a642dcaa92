package core

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sectorwars/combat-engine/pkg/models"
)

// AuditEntry is one immutable record of a submitted command and the
// validator's verdict on it
type AuditEntry struct {
	Seq      int                  `json:"seq"`
	Tick     int                  `json:"tick"`
	Action   models.CombatAction  `json:"action"`
	Accepted bool                 `json:"accepted"`
	Reason   models.RejectReason  `json:"reason,omitempty"`
	LoggedAt time.Time            `json:"logged_at"`
}

// AuditLog is the append-only per-session command record. Accepted
// entries drive checksum replay; rejected entries exist for moderation
// and investigation tooling. Entries are never mutated or removed.
type AuditLog struct {
	sessionID uuid.UUID
	mu        sync.RWMutex
	entries   []AuditEntry
}

// NewAuditLog creates an empty audit log for a session
func NewAuditLog(sessionID uuid.UUID) *AuditLog {
	return &AuditLog{sessionID: sessionID}
}

// SessionID returns the owning session's id
func (l *AuditLog) SessionID() uuid.UUID {
	return l.sessionID
}

// Append records a validator verdict. Returns the assigned sequence
// number.
func (l *AuditLog) Append(tick int, action models.CombatAction, accepted bool, reason models.RejectReason) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := AuditEntry{
		Seq:      len(l.entries),
		Tick:     tick,
		Action:   action,
		Accepted: accepted,
		Reason:   reason,
		LoggedAt: time.Now(),
	}
	l.entries = append(l.entries, entry)
	return entry.Seq
}

// Entries returns a copy of the full log
func (l *AuditLog) Entries() []AuditEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]AuditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// AcceptedForTick returns the accepted actions recorded for a tick, in
// submission order
func (l *AuditLog) AcceptedForTick(tick int) []models.CombatAction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var actions []models.CombatAction
	for _, entry := range l.entries {
		if entry.Tick == tick && entry.Accepted {
			actions = append(actions, entry.Action)
		}
	}
	return actions
}

// MaxTick returns the highest tick present in the log
func (l *AuditLog) MaxTick() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	maxTick := 0
	for _, entry := range l.entries {
		if entry.Tick > maxTick {
			maxTick = entry.Tick
		}
	}
	return maxTick
}

// Len returns the number of entries
func (l *AuditLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// RejectionCount returns how many commands were rejected
func (l *AuditLog) RejectionCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := 0
	for _, entry := range l.entries {
		if !entry.Accepted {
			n++
		}
	}
	return n
}
