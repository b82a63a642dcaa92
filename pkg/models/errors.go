package models

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// RejectReason is the machine-readable code returned to a submitting
// actor when a command is rejected
type RejectReason string

const (
	RejectOutsideWindow     RejectReason = "outside_planning_window"
	RejectDuplicateAction   RejectReason = "duplicate_action"
	RejectRateLimitExceeded RejectReason = "rate_limit_exceeded"
	RejectTargetOutOfRange  RejectReason = "target_out_of_range"
	RejectInsufficientAmmo  RejectReason = "insufficient_ammo"
	RejectInsufficientFuel  RejectReason = "insufficient_fuel"
	RejectUnknownActor      RejectReason = "unknown_actor"
	RejectActorDestroyed    RejectReason = "actor_destroyed"
	RejectUnknownTarget     RejectReason = "unknown_target"
	RejectInvalidTarget     RejectReason = "invalid_target"
	RejectInvalidAction     RejectReason = "invalid_action_type"
	RejectImmobileActor     RejectReason = "actor_immobile"
)

// ValidationError reports a rejected command. It is handled locally and
// never crashes a session; the submitting actor receives the reason.
type ValidationError struct {
	Reason  RejectReason
	ActorID uuid.UUID
	Detail  string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("action rejected: %s (actor %s)", e.Reason, e.ActorID)
	}
	return fmt.Sprintf("action rejected: %s (actor %s): %s", e.Reason, e.ActorID, e.Detail)
}

// NewValidationError builds a ValidationError for the given actor
func NewValidationError(reason RejectReason, actorID uuid.UUID, detail string) *ValidationError {
	return &ValidationError{Reason: reason, ActorID: actorID, Detail: detail}
}

// AsValidationError unwraps err into a *ValidationError if possible
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// ResourceError reports an action declared against resources the actor
// no longer holds at resolution time. The action is downgraded to a
// no-op rather than failing the tick.
type ResourceError struct {
	ActorID  uuid.UUID
	Resource string
	Needed   float64
	Held     float64
}

// Error implements the error interface
func (e *ResourceError) Error() string {
	return fmt.Sprintf("resource exhausted: actor %s needs %.1f %s, holds %.1f",
		e.ActorID, e.Needed, e.Resource, e.Held)
}

// Sentinel session-level faults
var (
	// ErrIntegrityMismatch means the session checksum diverged from its
	// own log-replay checksum. The session is paused and rolled back;
	// this is never silently auto-resolved.
	ErrIntegrityMismatch = errors.New("state checksum diverged from audit log replay")

	// ErrSessionTimeout means the max-tick budget ran out with no
	// termination condition met; the session is force-concluded as a
	// mutual withdrawal.
	ErrSessionTimeout = errors.New("session exceeded max tick budget")

	// ErrSessionConcluded rejects operations on a concluded session
	ErrSessionConcluded = errors.New("session already concluded")

	// ErrUnitClaimed rejects a tick claim on a unit another session
	// currently holds
	ErrUnitClaimed = errors.New("unit claimed by another session")
)
