package controllers

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/sectorwars/combat-engine/pkg/models"
)

// UnitRegistry is the canonical owner of every combat-capable entity in
// a sector. Sessions never hold units directly: they claim units for
// the duration of a session and work against tick-start snapshots, so
// exactly one writer mutates a unit per tick.
type UnitRegistry struct {
	mu        sync.RWMutex
	units     map[uuid.UUID]*models.Unit
	claims    map[uuid.UUID]uuid.UUID // unit id -> holding session id
	nextIndex int
}

// NewUnitRegistry creates an empty registry
func NewUnitRegistry() *UnitRegistry {
	return &UnitRegistry{
		units:  make(map[uuid.UUID]*models.Unit),
		claims: make(map[uuid.UUID]uuid.UUID),
	}
}

// Register adds a unit and assigns its session-stable arena index.
// Registering an id twice replaces the stored unit but keeps the
// original index.
func (r *UnitRegistry) Register(unit *models.Unit) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.units[unit.ID]; ok {
		unit.Index = existing.Index
	} else {
		unit.Index = r.nextIndex
		r.nextIndex++
	}
	r.units[unit.ID] = unit
}

// Get returns the unit with the given id
func (r *UnitRegistry) Get(id uuid.UUID) (*models.Unit, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.units[id]
	return u, ok
}

// Remove deletes a unit and drops any claim on it
func (r *UnitRegistry) Remove(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.units, id)
	delete(r.claims, id)
}

// Count returns the number of registered units
func (r *UnitRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.units)
}

// Units returns every registered unit sorted by arena index
func (r *UnitRegistry) Units() []*models.Unit {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Unit, 0, len(r.units))
	for _, u := range r.units {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Claim takes exclusive hold of the given units for a session. The
// claim is all-or-nothing: if any unit is already held by a different
// session, nothing is claimed and ErrUnitClaimed is returned.
func (r *UnitRegistry) Claim(sessionID uuid.UUID, ids ...uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range ids {
		if _, ok := r.units[id]; !ok {
			return fmt.Errorf("unit %s not registered", id)
		}
		if holder, held := r.claims[id]; held && holder != sessionID {
			return fmt.Errorf("unit %s: %w", id, models.ErrUnitClaimed)
		}
	}

	for _, id := range ids {
		r.claims[id] = sessionID
	}
	return nil
}

// Release drops a session's claims. Units claimed by other sessions
// are untouched.
func (r *UnitRegistry) Release(sessionID uuid.UUID, ids ...uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range ids {
		if holder, held := r.claims[id]; held && holder == sessionID {
			delete(r.claims, id)
		}
	}
}

// ClaimedBy returns the session currently holding a unit, if any
func (r *UnitRegistry) ClaimedBy(id uuid.UUID) (uuid.UUID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	holder, held := r.claims[id]
	return holder, held
}

// DeployDrones moves drones from a unit's reserve split into the
// requested attack/defense posture. The totals must not exceed the
// drones the unit carries.
func (r *UnitRegistry) DeployDrones(id uuid.UUID, attack, defense int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.units[id]
	if !ok {
		return fmt.Errorf("unit %s not registered", id)
	}
	if attack < 0 || defense < 0 {
		return fmt.Errorf("drone counts must be non-negative")
	}
	carried := u.AttackDrones + u.DefenseDrones
	if attack+defense != carried {
		return fmt.Errorf("deployment must account for all %d carried drones", carried)
	}

	u.AttackDrones = attack
	u.DefenseDrones = defense
	return nil
}

// RecallDrones pulls a unit's entire screen back into defensive
// posture, the stance drones return to between engagements
func (r *UnitRegistry) RecallDrones(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.units[id]
	if !ok {
		return fmt.Errorf("unit %s not registered", id)
	}
	u.DefenseDrones += u.AttackDrones
	u.AttackDrones = 0
	return nil
}

// Snapshot returns deep copies of the requested units sorted by arena
// index, suitable for an immutable tick-start baseline
func (r *UnitRegistry) Snapshot(ids []uuid.UUID) []*models.Unit {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Unit, 0, len(ids))
	for _, id := range ids {
		if u, ok := r.units[id]; ok {
			out = append(out, u.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// CommitSnapshot writes mutated clones back into the registry. Only
// units already registered are written; indexes are preserved.
func (r *UnitRegistry) CommitSnapshot(units []*models.Unit) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range units {
		if existing, ok := r.units[u.ID]; ok {
			u.Index = existing.Index
			r.units[u.ID] = u.Clone()
		}
	}
}
