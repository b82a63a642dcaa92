package simulation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sectorwars/combat-engine/cmd/sector-combat/config"
	"github.com/sectorwars/combat-engine/cmd/sector-combat/controllers"
	"github.com/sectorwars/combat-engine/cmd/sector-combat/reporting"
	"github.com/sectorwars/combat-engine/cmd/sector-combat/storage"
	"github.com/sectorwars/combat-engine/pkg/broadcast"
	"github.com/sectorwars/combat-engine/pkg/logger"
	"github.com/sectorwars/combat-engine/pkg/models"
	"github.com/sectorwars/combat-engine/pkg/simulation"
)

func init() {
	if err := simulation.DefaultRegistry.Register("Sector Combat", NewSectorCombatSimulation); err != nil {
		logger.Errorf("Failed to register sector combat scenario: %v", err)
	}
}

// teamNames labels the spawned fleets in team order
var teamNames = []string{"crimson", "azure", "viridian"}

// SectorCombatSimulation drives the combat resolution engine through a
// complete multi-team session: it spawns opposing fleets, submits
// commands on their behalf each planning window, and resolves ticks
// until the session concludes.
type SectorCombatSimulation struct {
	balance *config.BalanceConfig

	numTeams     int
	unitsPerTeam int
	seed         int64

	registry  *controllers.UnitRegistry
	session   *controllers.CombatSession
	positions map[uuid.UUID]Position

	combatLogger *reporting.CombatLogger
	aarGenerator *reporting.AARGenerator
	deltaBuffer  *broadcast.DeltaBuffer
	auditStore   *storage.AuditStore

	mu       sync.Mutex
	stopChan chan struct{}
}

// NewSectorCombatSimulation creates a new instance of the scenario
func NewSectorCombatSimulation() simulation.Simulation {
	return &SectorCombatSimulation{
		positions: make(map[uuid.UUID]Position),
		stopChan:  make(chan struct{}),
	}
}

// Name returns the scenario name
func (s *SectorCombatSimulation) Name() string {
	return "Sector Combat"
}

// Description returns the scenario description
func (s *SectorCombatSimulation) Description() string {
	return "Multi-team fleet combat with drone screens, escape attempts, and full audit trail"
}

// Configure sets up the scenario with provided parameters
func (s *SectorCombatSimulation) Configure(params map[string]interface{}) error {
	logger.Info("Configuring sector combat scenario...")

	balancePath := ""
	if val, ok := params["balance_config"].(string); ok {
		balancePath = val
	}

	balance, err := config.LoadConfigOrDefault(balancePath)
	if err != nil {
		return fmt.Errorf("failed to load balance configuration: %w", err)
	}
	config.MergeWithEnvironment(balance)
	s.balance = balance

	s.numTeams = balance.Defaults.NumTeams
	s.unitsPerTeam = balance.Defaults.UnitsPerTeam
	s.seed = balance.Defaults.Seed

	// Handle both int and float64 for num_teams
	switch val := params["num_teams"].(type) {
	case int:
		s.numTeams = val
	case float64:
		s.numTeams = int(val)
	}

	// Handle both int and float64 for units_per_team
	switch val := params["units_per_team"].(type) {
	case int:
		s.unitsPerTeam = val
	case float64:
		s.unitsPerTeam = int(val)
	}

	switch val := params["seed"].(type) {
	case int:
		s.seed = int64(val)
	case int64:
		s.seed = val
	case float64:
		s.seed = int64(val)
	}

	switch val := params["max_ticks"].(type) {
	case int:
		s.balance.Session.MaxTicks = val
	case float64:
		s.balance.Session.MaxTicks = int(val)
	}

	if val, ok := params["storage_path"].(string); ok && val != "" {
		s.balance.Storage.Enabled = true
		s.balance.Storage.Path = val
	}

	if val, ok := params["enable_aar"].(bool); ok {
		s.balance.Logging.EnableAAR = val
	}

	if val, ok := params["log_level"].(string); ok {
		logger.Infof("Setting log level to: %s", val)
		logger.SetLevel(logger.ParseLevel(val))
	}

	if s.seed == 0 {
		s.seed = time.Now().UnixNano()
	}

	if s.numTeams < 2 {
		return fmt.Errorf("must have at least 2 teams")
	}
	if s.numTeams > len(teamNames) {
		return fmt.Errorf("at most %d teams are supported", len(teamNames))
	}
	if s.unitsPerTeam < 1 {
		return fmt.Errorf("must have at least 1 unit per team")
	}

	if err := s.balance.Validate(); err != nil {
		return fmt.Errorf("invalid balance configuration: %w", err)
	}

	logger.Infof("Configuration: %d teams x %d units, seed %d, max %d ticks",
		s.numTeams, s.unitsPerTeam, s.seed, s.balance.Session.MaxTicks)

	return nil
}

// Run executes the scenario
func (s *SectorCombatSimulation) Run(ctx context.Context) error {
	logger.Infof("Starting %s scenario", s.Name())

	if err := s.initialize(); err != nil {
		return fmt.Errorf("failed to initialize scenario: %w", err)
	}

	s.spawnFleets()

	s.deltaBuffer.Start(ctx)
	defer s.deltaBuffer.Stop()

	if err := s.startSession(); err != nil {
		return fmt.Errorf("failed to start combat session: %w", err)
	}

	if err := s.runCombatLoop(ctx); err != nil {
		return err
	}

	return s.conclude()
}

// Stop gracefully shuts down the scenario
func (s *SectorCombatSimulation) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.stopChan:
	default:
		close(s.stopChan)
	}
	return nil
}

// initialize sets up the registry, reporting, broadcast, and storage
// collaborators
func (s *SectorCombatSimulation) initialize() error {
	s.registry = controllers.NewUnitRegistry()
	s.combatLogger = reporting.NewCombatLogger(fmt.Sprintf("sector-combat-%d", s.seed))
	s.aarGenerator = reporting.NewAARGenerator(s.combatLogger, reporting.AARConfig{
		OutputDir:   s.balance.Logging.AAROutputPath,
		Format:      "json",
		DetailLevel: "detailed",
	})

	s.deltaBuffer = broadcast.NewDeltaBuffer()
	s.deltaBuffer.Subscribe(broadcast.BroadcasterFunc(
		func(_ context.Context, deltas []models.StateDelta) error {
			for _, d := range deltas {
				logger.Debugf("Broadcast tick %d: %d unit deltas, checksum %016x",
					d.Tick, len(d.Units), d.Checksum)
			}
			return nil
		}), broadcast.TierInstant)

	if s.balance.Storage.Enabled {
		store, err := storage.NewAuditStore(s.balance.Storage.Path)
		if err != nil {
			return fmt.Errorf("failed to open audit store: %w", err)
		}
		s.auditStore = store
	}

	return nil
}

// spawnFleets creates and registers every team's units
func (s *SectorCombatSimulation) spawnFleets() {
	for t := 0; t < s.numTeams; t++ {
		teamID := teamNames[t]
		units, positions := spawnFleet(teamID, t, s.unitsPerTeam, s.seed)
		for _, unit := range units {
			s.registry.Register(unit)
			logger.Infof("Deployed %s (%s) for team %s", unit.Name, unit.Class, teamID)
		}
		for id, pos := range positions {
			s.positions[id] = pos
		}
	}

	scale := controllers.ClassifyScale(s.registry.Count(), s.balance.Scale)
	logger.Infof("Fleet deployment complete: %d units, %s scale", s.registry.Count(), scale)
	s.combatLogger.UpdateMetric("units_deployed", float64(s.registry.Count()), "units")
}

// startSession creates the combat session, enrolls every unit, and
// opens the first planning window
func (s *SectorCombatSimulation) startSession() error {
	s.session = controllers.NewCombatSession(controllers.SessionDeps{
		Config:   s.balance,
		Registry: s.registry,
		Seed:     s.seed,
		Broadcaster: broadcast.BroadcasterFunc(
			func(ctx context.Context, deltas []models.StateDelta) error {
				for _, d := range deltas {
					s.deltaBuffer.Queue(ctx, d)
				}
				return nil
			}),
		Distance: func(a, b *models.Unit) float64 {
			return s.positions[a.ID].DistanceTo(s.positions[b.ID])
		},
	})

	for _, unit := range s.registry.Units() {
		if err := s.session.AddUnit(unit.ID); err != nil {
			return fmt.Errorf("failed to enroll %s: %w", unit.Name, err)
		}
	}

	if err := s.session.Begin(); err != nil {
		return err
	}

	if s.auditStore != nil {
		scale := controllers.ClassifyScale(s.registry.Count(), s.balance.Scale)
		if err := s.auditStore.SaveSession(s.session.ID, s.seed, s.registry.Count(), scale, time.Now()); err != nil {
			logger.Warnf("Failed to persist session record: %v", err)
		}
	}

	s.combatLogger.LogSessionEvent(s.session.Tick(), "combat session opened", map[string]interface{}{
		"session_id": s.session.ID.String(),
		"units":      s.registry.Count(),
	})

	return nil
}

// runCombatLoop submits commands and resolves ticks until the session
// concludes or the scenario is cancelled
func (s *SectorCombatSimulation) runCombatLoop(ctx context.Context) error {
	logger.Info("Starting combat resolution loop...")

	for s.session.State() != controllers.SessionConcluded {
		select {
		case <-ctx.Done():
			logger.Info("Scenario cancelled by context")
			return ctx.Err()
		case <-s.stopChan:
			logger.Info("Scenario stopped by user")
			return nil
		default:
		}

		tick := s.session.Tick()

		s.deployDroneScreens(tick)
		s.submitCommands(tick)

		delta, err := s.session.ResolveTick(ctx)
		if err != nil {
			return fmt.Errorf("tick %d resolution failed: %w", tick, err)
		}

		s.recordTick(tick, delta)
	}

	return nil
}

// deployDroneScreens redeploys carried drones on the opening tick,
// weighting towards the attack screen
func (s *SectorCombatSimulation) deployDroneScreens(tick int) {
	if tick != 1 {
		return
	}

	for _, unit := range s.session.Units() {
		total := unit.AttackDrones + unit.DefenseDrones
		if total == 0 {
			continue
		}
		attack := total * 3 / 5
		if err := s.session.DeployDrones(unit.ID, attack, total-attack); err != nil {
			logger.Warnf("Drone deployment failed for %s: %v", unit.Name, err)
			continue
		}
		logger.Infof("%s deployed drone screens: %d attack / %d defense",
			unit.Name, attack, total-attack)
	}
}

// submitCommands chooses and submits one command per living unit for
// the current planning window
func (s *SectorCombatSimulation) submitCommands(tick int) {
	units := s.session.Units()

	for _, unit := range units {
		if !unit.Alive() {
			continue
		}

		action, ok := s.chooseAction(unit, units, tick)
		if !ok {
			continue
		}

		if err := s.session.SubmitAction(action); err != nil {
			logger.Debugf("Command for %s rejected: %v", unit.Name, err)
			s.combatLogger.LogRejection(tick, unit.ID, err.Error())
		}
	}
}

// chooseAction picks a command for the unit: badly damaged mobile
// ships break away, everything else engages the nearest enemy in
// weapons range, and units with no reachable target go defensive
func (s *SectorCombatSimulation) chooseAction(unit *models.Unit, units []*models.Unit, tick int) (models.CombatAction, bool) {
	action := models.CombatAction{
		ID:              uuid.New(),
		ActorUnitID:     unit.ID,
		SubmittedAtTick: tick,
		SubmittedAt:     time.Now(),
	}

	if unit.Mobile() && unit.Hull.Fraction() < 0.3 {
		action.Type = models.ActionFlee
		return action, true
	}

	target := s.nearestEnemyInRange(unit, units)
	if target == nil {
		if unit.Shields.Current < unit.Shields.Max*0.5 {
			action.Type = models.ActionDefend
		} else {
			action.Type = models.ActionEvade
		}
		return action, unit.Mobile() || action.Type == models.ActionDefend
	}

	action.Type = models.ActionAttack
	action.TargetID = &target.ID

	// Carriers screen their shots through opposing drones; everyone
	// else focuses fire on the hull behind the screen
	if unit.Class != models.ClassCarrier {
		action.FocusFire = true
	}

	return action, true
}

// nearestEnemyInRange returns the closest living opposing unit inside
// the actor's primary weapon range, or nil
func (s *SectorCombatSimulation) nearestEnemyInRange(unit *models.Unit, units []*models.Unit) *models.Unit {
	rangeKm := unit.PrimaryWeapon().RangeKm
	pos := s.positions[unit.ID]

	var best *models.Unit
	bestDist := rangeKm + 1

	for _, other := range units {
		if other.TeamID == unit.TeamID || !other.Targetable() {
			continue
		}
		dist := pos.DistanceTo(s.positions[other.ID])
		if dist <= rangeKm && dist < bestDist {
			bestDist = dist
			best = other
		}
	}

	return best
}

// recordTick feeds the resolved delta into reporting and storage
func (s *SectorCombatSimulation) recordTick(tick int, delta models.StateDelta) {
	s.combatLogger.LogTickEvents(tick, delta.Events)

	alive := 0
	for _, unit := range s.session.Units() {
		if unit.Alive() {
			alive++
		}
	}
	s.combatLogger.UpdateMetric("units_alive", float64(alive), "units")

	for _, ud := range delta.Units {
		if ud.Destroyed {
			if unit, ok := s.registry.Get(ud.UnitID); ok {
				s.combatLogger.LogDestruction(tick, ud.UnitID, unit.TeamID, unit.Name)
			}
		}
		if ud.Escaped {
			if unit, ok := s.registry.Get(ud.UnitID); ok {
				s.combatLogger.LogEscape(tick, ud.UnitID, unit.TeamID, unit.Name)
			}
		}
	}

	if s.auditStore != nil {
		if err := s.auditStore.SaveChecksum(s.session.ID, tick, delta.Checksum); err != nil {
			logger.Warnf("Failed to persist tick %d checksum: %v", tick, err)
		}
	}

	logger.Infof("Tick %d resolved: %d unit deltas, %d alive, checksum %016x",
		tick, len(delta.Units), alive, delta.Checksum)
}

// conclude verifies integrity, persists the audit trail, and emits the
// After Action Report
func (s *SectorCombatSimulation) conclude() error {
	outcome, ok := s.session.Outcome()
	if !ok {
		return fmt.Errorf("session ended without an outcome")
	}

	logger.Infof("Combat concluded after %d ticks: %s", outcome.Ticks, outcome.Kind)
	if outcome.WinningTeam != "" {
		logger.Infof("Winning team: %s", outcome.WinningTeam)
	}
	for _, c := range outcome.Casualties {
		logger.Infof("Team %s: %d lost, %d escaped, %d remaining, %d drones lost",
			c.TeamID, c.UnitsLost, c.UnitsEscaped, c.UnitsRemaining, c.DronesLost)
	}
	for _, lot := range outcome.Salvage {
		s.combatLogger.LogSessionEvent(outcome.Ticks,
			fmt.Sprintf("salvage recovered: %d %s", lot.Amount, lot.Resource),
			map[string]interface{}{"resource": lot.Resource, "amount": lot.Amount})
	}

	if err := s.session.VerifyIntegrity(); err != nil {
		logger.Errorf("Post-session integrity verification failed: %v", err)
	} else {
		logger.Info("Post-session integrity verification passed")
	}

	audit := s.session.AuditLog()
	if s.auditStore != nil {
		if err := s.auditStore.SaveAuditLog(audit); err != nil {
			logger.Warnf("Failed to persist audit log: %v", err)
		}
		if err := s.auditStore.SaveOutcome(outcome); err != nil {
			logger.Warnf("Failed to persist outcome: %v", err)
		}
	}

	s.combatLogger.LogSessionEvent(outcome.Ticks, "combat session concluded", map[string]interface{}{
		"outcome":      string(outcome.Kind),
		"winning_team": outcome.WinningTeam,
	})
	s.combatLogger.PrintSummary()

	if s.balance.Logging.EnableAAR {
		aar, err := s.aarGenerator.GenerateAAR(outcome, audit.Len(), audit.RejectionCount())
		if err != nil {
			return fmt.Errorf("failed to generate AAR: %w", err)
		}
		if err := s.aarGenerator.SaveAAR(aar); err != nil {
			logger.Warnf("Failed to save AAR: %v", err)
		}
	}

	return nil
}
