package models

import (
	"time"

	"github.com/google/uuid"
)

// ActionType identifies the kind of command a unit controller submitted
type ActionType string

const (
	ActionAttack  ActionType = "attack"
	ActionDefend  ActionType = "defend"
	ActionEvade   ActionType = "evade"
	ActionSpecial ActionType = "special"
	ActionFlee    ActionType = "flee"
)

// CombatAction is a single submitted command. An action is only valid
// if it arrives inside the current planning window and the actor is
// alive and not already queued for the tick.
type CombatAction struct {
	ID          uuid.UUID  `json:"id"`
	ActorUnitID uuid.UUID  `json:"actor_unit_id"`
	Type        ActionType `json:"type"`

	// TargetID is required for attack and special actions
	TargetID *uuid.UUID `json:"target_id,omitempty"`

	// SubsystemTarget requests a targeted subsystem strike. Only
	// honored for special actions.
	SubsystemTarget *Subsystem `json:"subsystem_target,omitempty"`

	// FocusFire orders an attack through an opposing drone screen
	// directly onto the ship behind it
	FocusFire bool `json:"focus_fire,omitempty"`

	SubmittedAtTick int       `json:"submitted_at_tick"`
	SubmittedAt     time.Time `json:"submitted_at"`
}

// ValidActionTypes lists every accepted action type
var ValidActionTypes = []ActionType{
	ActionAttack, ActionDefend, ActionEvade, ActionSpecial, ActionFlee,
}

// IsValidActionType reports whether t is a known action type
func IsValidActionType(t ActionType) bool {
	for _, v := range ValidActionTypes {
		if t == v {
			return true
		}
	}
	return false
}
