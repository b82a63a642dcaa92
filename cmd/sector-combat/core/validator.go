package core

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sectorwars/combat-engine/pkg/models"
)

// ValidatorConfig tunes the anti-cheat validator
type ValidatorConfig struct {
	CommandsPerSecond int
	BurstAllowance    int
}

// ValidationContext carries the session state the validator needs for
// one verdict. The session controller assembles it; the validator never
// touches session internals directly.
type ValidationContext struct {
	Tick          int
	WindowOpen    bool
	Actor         *models.Unit
	Target        *models.Unit
	AlreadyQueued bool
	// DistanceKm between actor and target, supplied by the
	// sector/environment collaborator
	DistanceKm float64
	Now        time.Time
}

// Validator gatekeeps every inbound command before it reaches the
// resolution pipeline. Rejections never crash a session; they produce
// a reason code for the submitting actor and an audit entry.
type Validator struct {
	config  ValidatorConfig
	mu      sync.Mutex
	buckets map[uuid.UUID]*tokenBucket
}

// tokenBucket is a per-actor command rate limiter
type tokenBucket struct {
	tokens     float64
	lastRefill time.Time
}

// NewValidator creates a validator with the given limits
func NewValidator(config ValidatorConfig) *Validator {
	if config.CommandsPerSecond <= 0 {
		config.CommandsPerSecond = 4
	}
	if config.BurstAllowance < 0 {
		config.BurstAllowance = 0
	}
	return &Validator{
		config:  config,
		buckets: make(map[uuid.UUID]*tokenBucket),
	}
}

// Validate applies every check to a submitted action. A nil return
// means the action is accepted for queuing. Checks run in a fixed
// order so the first failure reported is stable.
func (v *Validator) Validate(action models.CombatAction, ctx ValidationContext) *models.ValidationError {
	if !models.IsValidActionType(action.Type) {
		return models.NewValidationError(models.RejectInvalidAction, action.ActorUnitID,
			fmt.Sprintf("unknown action type %q", action.Type))
	}

	if !ctx.WindowOpen {
		return models.NewValidationError(models.RejectOutsideWindow, action.ActorUnitID,
			fmt.Sprintf("tick %d planning window is closed", ctx.Tick))
	}

	if ctx.Actor == nil {
		return models.NewValidationError(models.RejectUnknownActor, action.ActorUnitID, "")
	}

	if !ctx.Actor.Alive() {
		return models.NewValidationError(models.RejectActorDestroyed, action.ActorUnitID, "")
	}

	if ctx.AlreadyQueued {
		return models.NewValidationError(models.RejectDuplicateAction, action.ActorUnitID,
			fmt.Sprintf("an action is already queued for tick %d", ctx.Tick))
	}

	if !v.allow(action.ActorUnitID, ctx.Now) {
		return models.NewValidationError(models.RejectRateLimitExceeded, action.ActorUnitID,
			fmt.Sprintf("limit is %d commands/second", v.config.CommandsPerSecond))
	}

	switch action.Type {
	case models.ActionAttack, models.ActionSpecial:
		if action.TargetID == nil {
			return models.NewValidationError(models.RejectInvalidTarget, action.ActorUnitID,
				"attack requires a target")
		}
		if ctx.Target == nil {
			return models.NewValidationError(models.RejectUnknownTarget, action.ActorUnitID, "")
		}
		if !ctx.Target.Targetable() {
			return models.NewValidationError(models.RejectInvalidTarget, action.ActorUnitID,
				"target is no longer in the fight")
		}
		if ctx.Target.TeamID == ctx.Actor.TeamID {
			return models.NewValidationError(models.RejectInvalidTarget, action.ActorUnitID,
				"cannot target own team")
		}

		weapon := ctx.Actor.PrimaryWeapon()
		if weapon.RangeKm > 0 && ctx.DistanceKm > weapon.RangeKm {
			return models.NewValidationError(models.RejectTargetOutOfRange, action.ActorUnitID,
				fmt.Sprintf("target at %.1fkm, weapon range %.1fkm", ctx.DistanceKm, weapon.RangeKm))
		}
		if weapon.AmmoCost > 0 && ctx.Actor.Ammo < weapon.AmmoCost {
			return models.NewValidationError(models.RejectInsufficientAmmo, action.ActorUnitID,
				fmt.Sprintf("need %d ammo, hold %d", weapon.AmmoCost, ctx.Actor.Ammo))
		}
		if weapon.FuelCost > 0 && ctx.Actor.Fuel < weapon.FuelCost {
			return models.NewValidationError(models.RejectInsufficientFuel, action.ActorUnitID,
				fmt.Sprintf("need %.1f fuel, hold %.1f", weapon.FuelCost, ctx.Actor.Fuel))
		}

	case models.ActionFlee:
		if !ctx.Actor.Mobile() {
			return models.NewValidationError(models.RejectImmobileActor, action.ActorUnitID,
				"planetary defenses cannot flee")
		}
	}

	return nil
}

// allow checks and updates the actor's token bucket
func (v *Validator) allow(actorID uuid.UUID, now time.Time) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	capacity := float64(v.config.CommandsPerSecond + v.config.BurstAllowance)

	bucket, ok := v.buckets[actorID]
	if !ok {
		bucket = &tokenBucket{tokens: capacity, lastRefill: now}
		v.buckets[actorID] = bucket
	}

	elapsed := now.Sub(bucket.lastRefill).Seconds()
	if elapsed > 0 {
		bucket.tokens += elapsed * float64(v.config.CommandsPerSecond)
		if bucket.tokens > capacity {
			bucket.tokens = capacity
		}
		bucket.lastRefill = now
	}

	if bucket.tokens < 1 {
		return false
	}
	bucket.tokens--
	return true
}

// ResetActor clears the rate-limit state for an actor, used when a
// participant leaves the session
func (v *Validator) ResetActor(actorID uuid.UUID) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.buckets, actorID)
}
