package models

import (
	"time"

	"github.com/google/uuid"
)

// OutcomeKind classifies how a session concluded
type OutcomeKind string

const (
	OutcomeVictory           OutcomeKind = "victory"
	OutcomeMutualDestruction OutcomeKind = "mutualDestruction"
	OutcomeEscape            OutcomeKind = "escape"
	OutcomeTimeout           OutcomeKind = "timeout"
)

// SalvageEntry is one resource lot recovered from a destroyed ship
type SalvageEntry struct {
	Resource string `json:"resource"`
	Amount   int    `json:"amount"`
	FromUnit string `json:"from_unit"`
	ToTeam   string `json:"to_team"`
}

// TeamCasualties summarizes one team's losses over a session
type TeamCasualties struct {
	TeamID         string `json:"team_id"`
	UnitsLost      int    `json:"units_lost"`
	UnitsEscaped   int    `json:"units_escaped"`
	DronesLost     int    `json:"drones_lost"`
	UnitsRemaining int    `json:"units_remaining"`
}

// CombatOutcome is emitted once on CONCLUDED and consumed by the
// economy and reputation collaborators. The engine computes it; it
// never applies rewards itself.
type CombatOutcome struct {
	SessionID   uuid.UUID   `json:"session_id"`
	Kind        OutcomeKind `json:"kind"`
	WinningTeam string      `json:"winning_team,omitempty"`
	Ticks       int         `json:"ticks"`

	Casualties []TeamCasualties `json:"casualties"`
	Salvage    []SalvageEntry   `json:"salvage,omitempty"`

	// ReputationDeltas are advisory values the reputation collaborator
	// may apply, keyed by owner id
	ReputationDeltas map[string]int `json:"reputation_deltas,omitempty"`

	ConcludedAt time.Time `json:"concluded_at"`
}

// CasualtiesFor returns the casualty summary for a team, if present
func (o *CombatOutcome) CasualtiesFor(teamID string) (TeamCasualties, bool) {
	for _, c := range o.Casualties {
		if c.TeamID == teamID {
			return c, true
		}
	}
	return TeamCasualties{}, false
}
