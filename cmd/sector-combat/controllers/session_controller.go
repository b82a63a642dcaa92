package controllers

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sectorwars/combat-engine/cmd/sector-combat/config"
	"github.com/sectorwars/combat-engine/cmd/sector-combat/core"
	"github.com/sectorwars/combat-engine/pkg/broadcast"
	"github.com/sectorwars/combat-engine/pkg/logger"
	"github.com/sectorwars/combat-engine/pkg/models"
)

// Session lifecycle states
const (
	SessionInitiated  = "INITIATED"
	SessionPlanning   = "PLANNING"
	SessionExecution  = "EXECUTION"
	SessionResolution = "RESOLUTION"
	SessionConcluded  = "CONCLUDED"
)

// SessionDeps wires a combat session's collaborators. Registry and
// Config are required; the rest default.
type SessionDeps struct {
	Config      *config.BalanceConfig
	Registry    *UnitRegistry
	Broadcaster broadcast.Broadcaster
	Seed        int64

	// Distance supplies the range between two units for validation.
	// Nil means all units share weapons range.
	Distance func(a, b *models.Unit) float64

	// Now is injectable for tests; defaults to time.Now
	Now func() time.Time
}

// CombatSession owns one combat encounter end to end: it claims units
// from the registry, runs the planning/execution/resolution loop, and
// emits a single outcome on conclusion. All state transitions happen
// under the session lock; resolution itself runs on the coordinator's
// worker pool against session-owned working copies.
type CombatSession struct {
	ID uuid.UUID

	mu    sync.Mutex
	state string
	tick  int

	cfg         *config.BalanceConfig
	registry    *UnitRegistry
	coordinator *BattleCoordinator
	validator   *core.Validator
	audit       *core.AuditLog
	params      ResolutionParams
	broadcaster broadcast.Broadcaster
	distance    func(a, b *models.Unit) float64
	now         func() time.Time

	units   map[uuid.UUID]*models.Unit // working copies, session-owned
	unitIDs []uuid.UUID                // claim order

	queued       map[uuid.UUID]models.CombatAction // this tick, keyed by actor
	pendingJoins []*models.Unit

	snapshots map[int][]*models.Unit // tick-start baselines for rollback and replay
	checksums map[int]uint64

	windowDeadline time.Time
	startedAt      time.Time
	outcome        *models.CombatOutcome
}

// NewCombatSession creates a session in INITIATED. Units join via
// AddUnit before Begin, or as pending joins afterwards.
func NewCombatSession(deps SessionDeps) *CombatSession {
	id := uuid.New()

	distance := deps.Distance
	if distance == nil {
		distance = func(a, b *models.Unit) float64 { return 0 }
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return &CombatSession{
		ID:          id,
		state:       SessionInitiated,
		cfg:         deps.Config,
		registry:    deps.Registry,
		coordinator: NewBattleCoordinator(deps.Config.Performance.WorkerPoolSize),
		validator: core.NewValidator(core.ValidatorConfig{
			CommandsPerSecond: deps.Config.Validation.CommandsPerSecond,
			BurstAllowance:    deps.Config.Validation.BurstAllowance,
		}),
		audit:       core.NewAuditLog(id),
		params:      NewResolutionParams(deps.Config, deps.Seed),
		broadcaster: deps.Broadcaster,
		distance:    distance,
		now:         now,
		units:       make(map[uuid.UUID]*models.Unit),
		queued:      make(map[uuid.UUID]models.CombatAction),
		snapshots:   make(map[int][]*models.Unit),
		checksums:   make(map[int]uint64),
	}
}

// State returns the current lifecycle state
func (s *CombatSession) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Tick returns the current tick number; 0 before Begin
func (s *CombatSession) Tick() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}

// AuditLog exposes the session's immutable command record
func (s *CombatSession) AuditLog() *core.AuditLog {
	return s.audit
}

// AddUnit brings a registered unit into the session. Before Begin the
// unit joins the opening roster; during a running session it is queued
// and admitted at the next planning boundary.
func (s *CombatSession) AddUnit(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == SessionConcluded {
		return models.ErrSessionConcluded
	}

	unit, ok := s.registry.Get(id)
	if !ok {
		return fmt.Errorf("unit %s not registered", id)
	}

	if s.state == SessionInitiated {
		s.unitIDs = append(s.unitIDs, id)
		return nil
	}

	s.pendingJoins = append(s.pendingJoins, unit)
	logger.Debugf("Session %s: unit %s queued to join at next planning boundary", s.ID, unit.Name)
	return nil
}

// Begin claims the roster and opens the first planning window:
// INITIATED -> PLANNING
func (s *CombatSession) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != SessionInitiated {
		return fmt.Errorf("cannot begin from %s", s.state)
	}
	if len(s.unitIDs) < 2 {
		return fmt.Errorf("a session needs at least two units")
	}

	if err := s.registry.Claim(s.ID, s.unitIDs...); err != nil {
		return err
	}

	for _, clone := range s.registry.Snapshot(s.unitIDs) {
		s.units[clone.ID] = clone
	}

	s.tick = 1
	s.state = SessionPlanning
	s.startedAt = s.now()
	s.windowDeadline = s.startedAt.Add(s.cfg.Session.PlanningWindow)
	s.snapshots[s.tick] = s.cloneWorkingLocked()
	s.checksums[0] = core.StateChecksum(0, s.workingSliceLocked())

	scale := ClassifyScale(len(s.units), s.cfg.Scale)
	logger.Infof("Session %s began: %d units, scale %s, planning window %v",
		s.ID, len(s.units), scale, s.cfg.Session.PlanningWindow)
	return nil
}

// WindowOpen reports whether the current planning window accepts
// commands
func (s *CombatSession) WindowOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == SessionPlanning && s.now().Before(s.windowDeadline)
}

// SubmitAction validates and queues one command for the current tick.
// Every submission, accepted or rejected, lands in the audit log.
func (s *CombatSession) SubmitAction(action models.CombatAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == SessionConcluded {
		return models.ErrSessionConcluded
	}

	actor := s.units[action.ActorUnitID]
	var target *models.Unit
	if action.TargetID != nil {
		target = s.units[*action.TargetID]
	}

	var distanceKm float64
	if actor != nil && target != nil {
		distanceKm = s.distance(actor, target)
	}

	_, alreadyQueued := s.queued[action.ActorUnitID]
	windowOpen := s.state == SessionPlanning && s.now().Before(s.windowDeadline)

	verr := s.validator.Validate(action, core.ValidationContext{
		Tick:          s.tick,
		WindowOpen:    windowOpen,
		Actor:         actor,
		Target:        target,
		AlreadyQueued: alreadyQueued,
		DistanceKm:    distanceKm,
		Now:           s.now(),
	})

	if verr != nil {
		s.audit.Append(s.tick, action, false, verr.Reason)
		return verr
	}

	action.SubmittedAtTick = s.tick
	s.audit.Append(s.tick, action, true, "")
	s.queued[action.ActorUnitID] = action
	return nil
}

// DeployDrones adjusts a unit's attack/defense drone split during
// planning
func (s *CombatSession) DeployDrones(id uuid.UUID, attack, defense int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != SessionPlanning {
		return fmt.Errorf("drones redeploy only during planning, session is %s", s.state)
	}
	u, ok := s.units[id]
	if !ok {
		return fmt.Errorf("unit %s not in session", id)
	}
	if attack < 0 || defense < 0 || attack+defense != u.AttackDrones+u.DefenseDrones {
		return fmt.Errorf("deployment must account for all %d carried drones", u.AttackDrones+u.DefenseDrones)
	}
	u.AttackDrones = attack
	u.DefenseDrones = defense

	// A redeploy is part of the tick-start state, not of resolution, so
	// the snapshot this tick replays from must carry it too
	for _, snap := range s.snapshots[s.tick] {
		if snap.ID == id {
			snap.AttackDrones = attack
			snap.DefenseDrones = defense
			break
		}
	}
	return nil
}

// ResolveTick closes the planning window and runs the tick:
// PLANNING -> EXECUTION -> RESOLUTION -> PLANNING or CONCLUDED. The
// returned delta is the authoritative state change for the tick.
func (s *CombatSession) ResolveTick(ctx context.Context) (models.StateDelta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != SessionPlanning {
		if s.state == SessionConcluded {
			return models.StateDelta{}, models.ErrSessionConcluded
		}
		return models.StateDelta{}, fmt.Errorf("cannot resolve from %s", s.state)
	}

	s.state = SessionExecution

	actions := make([]models.CombatAction, 0, len(s.queued))
	for _, a := range s.queued {
		actions = append(actions, a)
	}
	// The coordinator re-orders by initiative; this sort only makes the
	// input deterministic before it does
	sort.Slice(actions, func(i, j int) bool {
		return actions[i].ActorUnitID.String() < actions[j].ActorUnitID.String()
	})

	working := s.workingSliceLocked()
	delta := s.coordinator.ResolveTick(s.ID, s.tick, working, actions, s.params)

	s.state = SessionResolution

	// Integrity guard: the tick replays sequentially from its start
	// snapshot. A divergence means the working state was mutated
	// outside the resolution path, so the tick is discarded and the
	// session rolls back to its start.
	if replayed, ok := s.replayTickLocked(s.tick, actions); ok && replayed != delta.Checksum {
		tick := s.tick
		logger.Errorf("Session %s: tick %d diverged from snapshot replay, rolling back", s.ID, tick)
		s.rollbackLocked(tick)
		return models.StateDelta{}, fmt.Errorf("tick %d: %w (live %x, replayed %x)",
			tick, models.ErrIntegrityMismatch, delta.Checksum, replayed)
	}

	s.checksums[s.tick] = delta.Checksum
	s.queued = make(map[uuid.UUID]models.CombatAction)

	if s.broadcaster != nil {
		if err := s.broadcaster.Publish(ctx, []models.StateDelta{delta}); err != nil {
			logger.Errorf("Session %s: broadcast failed for tick %d: %v", s.ID, s.tick, err)
		}
	}

	if kind, winner, done := s.terminationLocked(); done {
		s.concludeLocked(kind, winner)
		return delta, nil
	}

	if s.tick >= s.cfg.Session.MaxTicks {
		logger.Warnf("Session %s: %v after %d ticks", s.ID, models.ErrSessionTimeout, s.tick)
		s.concludeLocked(models.OutcomeTimeout, "")
		return delta, nil
	}

	s.admitPendingLocked()
	s.tick++
	s.state = SessionPlanning
	s.windowDeadline = s.now().Add(s.cfg.Session.PlanningWindow)
	s.snapshots[s.tick] = s.cloneWorkingLocked()

	return delta, nil
}

// terminationLocked evaluates the end-of-tick predicates
func (s *CombatSession) terminationLocked() (models.OutcomeKind, string, bool) {
	aliveByTeam := make(map[string]int)
	anyEscaped := false
	for _, u := range s.units {
		if u.Alive() {
			aliveByTeam[u.TeamID]++
		}
		if u.Escaped {
			anyEscaped = true
		}
	}

	switch len(aliveByTeam) {
	case 0:
		if anyEscaped {
			return models.OutcomeEscape, "", true
		}
		return models.OutcomeMutualDestruction, "", true
	case 1:
		var winner string
		for team := range aliveByTeam {
			winner = team
		}
		// Opponents who fled deny a clean victory but concede the field
		for _, u := range s.units {
			if u.TeamID != winner && u.Escaped {
				return models.OutcomeEscape, winner, true
			}
		}
		return models.OutcomeVictory, winner, true
	default:
		return "", "", false
	}
}

// concludeLocked transitions to CONCLUDED, computes the outcome, and
// hands units back to the registry
func (s *CombatSession) concludeLocked(kind models.OutcomeKind, winner string) {
	outcome := &models.CombatOutcome{
		SessionID:        s.ID,
		Kind:             kind,
		WinningTeam:      winner,
		Ticks:            s.tick,
		Casualties:       s.casualtiesLocked(),
		ReputationDeltas: make(map[string]int),
		ConcludedAt:      s.now(),
	}

	if kind == models.OutcomeVictory {
		outcome.Salvage = s.salvageLocked(winner)
	}

	for _, u := range s.units {
		owner := u.OwnerID.String()
		switch {
		case u.Destroyed:
			outcome.ReputationDeltas[owner]--
		case kind == models.OutcomeVictory && u.TeamID == winner:
			outcome.ReputationDeltas[owner] += 2
		}
	}

	s.registry.CommitSnapshot(s.workingSliceLocked())
	s.registry.Release(s.ID, s.unitIDs...)

	s.outcome = outcome
	s.state = SessionConcluded

	logger.Infof("Session %s concluded: %s after %d ticks (winner: %q)",
		s.ID, kind, s.tick, winner)
}

// casualtiesLocked summarizes per-team losses against the opening
// roster
func (s *CombatSession) casualtiesLocked() []models.TeamCasualties {
	byTeam := make(map[string]*models.TeamCasualties)
	opening := s.snapshots[1]

	droneBaseline := make(map[uuid.UUID]int, len(opening))
	for _, u := range opening {
		droneBaseline[u.ID] = u.AttackDrones + u.DefenseDrones
	}

	for _, u := range s.units {
		c, ok := byTeam[u.TeamID]
		if !ok {
			c = &models.TeamCasualties{TeamID: u.TeamID}
			byTeam[u.TeamID] = c
		}
		switch {
		case u.Destroyed:
			c.UnitsLost++
		case u.Escaped:
			c.UnitsEscaped++
		default:
			c.UnitsRemaining++
		}
		if base, ok := droneBaseline[u.ID]; ok {
			c.DronesLost += base - (u.AttackDrones + u.DefenseDrones)
		}
	}

	teams := make([]string, 0, len(byTeam))
	for t := range byTeam {
		teams = append(teams, t)
	}
	sort.Strings(teams)

	out := make([]models.TeamCasualties, 0, len(teams))
	for _, t := range teams {
		out = append(out, *byTeam[t])
	}
	return out
}

// salvageLocked rolls the victors' cargo recovery from destroyed
// opponents: 30-80% of each lot, derived deterministically per wreck
func (s *CombatSession) salvageLocked(winner string) []models.SalvageEntry {
	var entries []models.SalvageEntry

	wrecks := make([]*models.Unit, 0)
	for _, u := range s.units {
		if u.Destroyed && u.TeamID != winner && len(u.Cargo) > 0 {
			wrecks = append(wrecks, u)
		}
	}
	sort.Slice(wrecks, func(i, j int) bool { return wrecks[i].Index < wrecks[j].Index })

	for _, wreck := range wrecks {
		rng := core.StreamFor(s.params.Seed, s.tick, wreck.ID)

		resources := make([]string, 0, len(wreck.Cargo))
		for r := range wreck.Cargo {
			resources = append(resources, r)
		}
		sort.Strings(resources)

		for _, resource := range resources {
			held := wreck.Cargo[resource]
			if held <= 0 {
				continue
			}
			fraction := 0.3 + rng.Float64()*0.5
			amount := int(fraction * float64(held))
			if amount <= 0 {
				continue
			}
			entries = append(entries, models.SalvageEntry{
				Resource: resource,
				Amount:   amount,
				FromUnit: wreck.Name,
				ToTeam:   winner,
			})
		}
	}

	return entries
}

// admitPendingLocked pulls queued joiners into the session at the
// planning boundary
func (s *CombatSession) admitPendingLocked() {
	if len(s.pendingJoins) == 0 {
		return
	}

	for _, unit := range s.pendingJoins {
		if err := s.registry.Claim(s.ID, unit.ID); err != nil {
			logger.Warnf("Session %s: could not admit %s: %v", s.ID, unit.Name, err)
			continue
		}
		s.unitIDs = append(s.unitIDs, unit.ID)
		for _, clone := range s.registry.Snapshot([]uuid.UUID{unit.ID}) {
			s.units[clone.ID] = clone
		}
		logger.Infof("Session %s: %s joined the fight", s.ID, unit.Name)
	}
	s.pendingJoins = nil
}

// Outcome returns the conclusion, once reached
func (s *CombatSession) Outcome() (*models.CombatOutcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome, s.outcome != nil
}

// Checksum returns the recorded state checksum for a resolved tick
func (s *CombatSession) Checksum(tick int) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum, ok := s.checksums[tick]
	return sum, ok
}

// Units returns the session's working units sorted by arena index
func (s *CombatSession) Units() []*models.Unit {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.workingSliceLocked()
	clones := make([]*models.Unit, len(out))
	for i, u := range out {
		clones[i] = u.Clone()
	}
	return clones
}

// replayTickLocked re-resolves one tick from its tick-start snapshot on
// a sequential coordinator and returns the recomputed checksum. The
// second return is false when no snapshot exists for the tick.
func (s *CombatSession) replayTickLocked(tick int, actions []models.CombatAction) (uint64, bool) {
	baseline, ok := s.snapshots[tick]
	if !ok {
		return 0, false
	}

	working := make([]*models.Unit, len(baseline))
	for i, u := range baseline {
		working[i] = u.Clone()
	}

	delta := NewBattleCoordinator(1).ResolveTick(s.ID, tick, working, actions, s.params)
	return delta.Checksum, true
}

// VerifyIntegrity replays every resolved tick from its recorded
// tick-start snapshot through the accepted action log and compares the
// recomputed checksum against the recorded one. ResolveTick already
// guards each tick as it lands; this is the full-session check for the
// moderation surface.
func (s *CombatSession) VerifyIntegrity() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for tick := 1; tick <= s.tick; tick++ {
		recorded, ok := s.checksums[tick]
		if !ok {
			continue
		}

		actions := s.audit.AcceptedForTick(tick)
		sort.Slice(actions, func(i, j int) bool {
			return actions[i].ActorUnitID.String() < actions[j].ActorUnitID.String()
		})

		replayed, ok := s.replayTickLocked(tick, actions)
		if !ok {
			continue
		}
		if replayed != recorded {
			return fmt.Errorf("tick %d: %w (recorded %x, replayed %x)",
				tick, models.ErrIntegrityMismatch, recorded, replayed)
		}
	}

	return nil
}

// Rollback restores the session to the start of the given tick,
// discarding every later snapshot and checksum. The session returns to
// PLANNING with a fresh window.
func (s *CombatSession) Rollback(tick int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == SessionConcluded {
		return models.ErrSessionConcluded
	}
	return s.rollbackLocked(tick)
}

func (s *CombatSession) rollbackLocked(tick int) error {
	baseline, ok := s.snapshots[tick]
	if !ok {
		return fmt.Errorf("no snapshot for tick %d", tick)
	}

	s.units = make(map[uuid.UUID]*models.Unit, len(baseline))
	for _, u := range baseline {
		s.units[u.ID] = u.Clone()
	}

	for t := range s.snapshots {
		if t > tick {
			delete(s.snapshots, t)
		}
	}
	for t := range s.checksums {
		if t >= tick {
			delete(s.checksums, t)
		}
	}

	s.tick = tick
	s.queued = make(map[uuid.UUID]models.CombatAction)
	s.state = SessionPlanning
	s.windowDeadline = s.now().Add(s.cfg.Session.PlanningWindow)

	logger.Warnf("Session %s rolled back to tick %d", s.ID, tick)
	return nil
}

// workingSliceLocked returns the working units sorted by arena index
func (s *CombatSession) workingSliceLocked() []*models.Unit {
	out := make([]*models.Unit, 0, len(s.units))
	for _, u := range s.units {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// cloneWorkingLocked deep-copies the working set for a tick-start
// snapshot
func (s *CombatSession) cloneWorkingLocked() []*models.Unit {
	working := s.workingSliceLocked()
	clones := make([]*models.Unit, len(working))
	for i, u := range working {
		clones[i] = u.Clone()
	}
	return clones
}
