package controllers

import (
	"bytes"
	"fmt"
	"math/rand"
	"sort"

	"github.com/google/uuid"
	"github.com/sectorwars/combat-engine/cmd/sector-combat/config"
	"github.com/sectorwars/combat-engine/cmd/sector-combat/core"
	"github.com/sectorwars/combat-engine/pkg/models"
)

// ResolutionParams is the balance tuning a tick resolver needs, derived
// once from the loaded BalanceConfig. Identical params plus an
// identical ordered action log always produce identical results.
type ResolutionParams struct {
	Seed           int64
	Damage         config.DamageConfig
	Drones         core.DroneParams
	ScreenMin      int
	ScreenMax      int
	Escape         core.EscapeParams
	Teamwork       config.TeamworkConfig
	SectorRadiusKm float64
}

// NewResolutionParams binds a balance config and session seed into
// resolver tuning
func NewResolutionParams(cfg *config.BalanceConfig, seed int64) ResolutionParams {
	escape := core.EscapeParams{
		BaseByClass:     make(map[models.ShipClass]float64, len(cfg.Escape.BaseByClass)),
		PursuitByClass:  make(map[models.ShipClass]float64, len(cfg.Escape.PursuitByClass)),
		HullFactorFloor: cfg.Escape.HullFactorFloor,
		EdgeFalloff:     cfg.Escape.EdgeFalloff,
	}
	for class, chance := range cfg.Escape.BaseByClass {
		escape.BaseByClass[models.ShipClass(class)] = chance
	}
	for class, factor := range cfg.Escape.PursuitByClass {
		escape.PursuitByClass[models.ShipClass(class)] = factor
	}

	return ResolutionParams{
		Seed:   seed,
		Damage: cfg.Damage,
		Drones: core.DroneParams{
			EffectivenessPerTen:     cfg.Drones.EffectivenessPerTen,
			IncomingReductionPerTen: cfg.Drones.IncomingReductionPerTen,
			PlanetaryBonus:          cfg.Drones.PlanetaryBonus,
			BaseDestructionChance:   cfg.Drones.BaseDestructionChance,
			ShipDamagePerDrone:      cfg.Drones.ShipDamagePerDrone,
		},
		ScreenMin:      cfg.Drones.ScreenAbsorbMin,
		ScreenMax:      cfg.Drones.ScreenAbsorbMax,
		Escape:         escape,
		Teamwork:       cfg.Teamwork,
		SectorRadiusKm: 15,
	}
}

// classInitiative is the per-class base initiative. Higher acts first;
// ties break on the lower unit id so ordering never depends on map
// iteration.
var classInitiative = map[models.ShipClass]int{
	models.ClassFastCourier:    90,
	models.ClassScoutShip:      85,
	models.ClassEscapePod:      80,
	models.ClassWarpJumper:     70,
	models.ClassLightFreighter: 60,
	models.ClassDefender:       55,
	models.ClassCarrier:        40,
	models.ClassCargoHauler:    35,
	models.ClassColonyShip:     30,
}

const defaultInitiative = 50

func initiativeFor(u *models.Unit) int {
	if v, ok := classInitiative[u.Class]; ok {
		return v
	}
	return defaultInitiative
}

// groupResult is one partition's contribution to a tick
type groupResult struct {
	deltas []models.UnitDelta
	events []string
}

// unitBaseline captures the fields a delta is computed against
type unitBaseline struct {
	hull    float64
	shields float64
	drones  int
	ammo    int
	fuel    float64
}

// resolveGroup resolves one tick for an independent battle partition.
// It mutates the working units in place and reports per-unit deltas.
// All randomness flows through content-derived streams, so the result
// is identical no matter which worker runs the group or when.
func resolveGroup(units []*models.Unit, actions []models.CombatAction, tick int, p ResolutionParams) groupResult {
	byID := make(map[uuid.UUID]*models.Unit, len(units))
	before := make(map[uuid.UUID]unitBaseline, len(units))
	for _, u := range units {
		byID[u.ID] = u
		before[u.ID] = unitBaseline{
			hull:    u.Hull.Current,
			shields: u.Shields.Current,
			drones:  u.AttackDrones + u.DefenseDrones,
			ammo:    u.Ammo,
			fuel:    u.Fuel,
		}
	}

	var events []string

	// Stances take effect for the whole tick, before any fire lands
	stances := make(map[uuid.UUID]models.ActionType)
	for _, a := range actions {
		if a.Type == models.ActionDefend || a.Type == models.ActionEvade {
			if actor, ok := byID[a.ActorUnitID]; ok && actor.Alive() {
				stances[a.ActorUnitID] = a.Type
			}
		}
	}

	events = append(events, resolveDronePhase(units, tick, p)...)

	// Coordinated-fire counts come from the declared plan, not from
	// what survives execution
	focusCounts := make(map[uuid.UUID]int)
	for _, a := range actions {
		if (a.Type == models.ActionAttack || a.Type == models.ActionSpecial) && a.TargetID != nil {
			focusCounts[*a.TargetID]++
		}
	}

	// One initiative-ordered pass: a fast ship that breaks away acts
	// before slower guns train on it, and a slow one takes its fire
	// first
	for _, a := range orderByInitiative(actions, byID) {
		switch a.Type {
		case models.ActionAttack, models.ActionSpecial:
			events = append(events, resolveAttack(a, byID, stances, focusCounts, tick, p)...)
		case models.ActionFlee:
			events = append(events, resolveFlee(a, units, byID, tick, p)...)
		}
	}

	return groupResult{
		deltas: buildDeltas(units, before),
		events: events,
	}
}

// resolveDronePhase pairs off opposing drone screens within the group.
// Each opposing team pair resolves once per tick with a stream derived
// from the pair's anchor units. Ships stay untouchable by drones while
// the opposing side fields any drones of its own; once that screen is
// gone, surviving attack drones press on to the hulls the same tick.
func resolveDronePhase(units []*models.Unit, tick int, p ResolutionParams) []string {
	teams := make(map[string][]*models.Unit)
	carriers := make(map[string][]*models.Unit)
	anyDrones := false
	for _, u := range units {
		if !u.Alive() {
			continue
		}
		teams[u.TeamID] = append(teams[u.TeamID], u)
		if u.AttackDrones+u.DefenseDrones > 0 {
			carriers[u.TeamID] = append(carriers[u.TeamID], u)
			anyDrones = true
		}
	}
	if !anyDrones {
		return nil
	}

	teamIDs := make([]string, 0, len(teams))
	for id := range teams {
		teamIDs = append(teamIDs, id)
	}
	sort.Strings(teamIDs)

	var events []string

	for i := 0; i < len(teamIDs); i++ {
		for j := i + 1; j < len(teamIDs); j++ {
			idA, idB := teamIDs[i], teamIDs[j]
			sideA, sideB := carriers[idA], carriers[idB]
			if len(sideA) == 0 && len(sideB) == 0 {
				continue
			}

			rng := core.StreamFor(p.Seed, tick, anchorID(teams[idA]), anchorID(teams[idB]))

			forceA := aggregateDrones(sideA, idA)
			forceB := aggregateDrones(sideB, idB)

			if forceA.AttackDrones+forceA.DefenseDrones > 0 && forceB.AttackDrones+forceB.DefenseDrones > 0 {
				result := p.Drones.ResolveDroneEngagement(forceA, forceB, rng)

				applyDroneLosses(sideA, result.SideALosses)
				applyDroneLosses(sideB, result.SideBLosses)

				events = append(events, fmt.Sprintf(
					"drone engagement %s vs %s: %d pairs, losses %d/%d",
					idA, idB, result.PairsResolved,
					result.SideALosses, result.SideBLosses))

				forceA = aggregateDrones(sideA, idA)
				forceB = aggregateDrones(sideB, idB)
			}

			// Fixed order: side A strafes before side B, matching the
			// sorted team pair
			if forceB.AttackDrones+forceB.DefenseDrones == 0 {
				events = append(events, resolveDroneStrike(forceA, teams[idB], rng, p)...)
			}
			if forceA.AttackDrones+forceA.DefenseDrones == 0 {
				events = append(events, resolveDroneStrike(forceB, teams[idA], rng, p)...)
			}
		}
	}

	return events
}

// resolveDroneStrike sends an unopposed attack swarm against the
// defending team's lead ship. The strike flows through the damage
// pipeline, so shields and armor still count for something.
func resolveDroneStrike(force core.DroneForce, defenders []*models.Unit, rng *rand.Rand, p ResolutionParams) []string {
	if force.AttackDrones == 0 {
		return nil
	}

	var target *models.Unit
	for _, u := range defenders {
		if u.Targetable() && (target == nil || u.Index < target.Index) {
			target = u
		}
	}
	if target == nil {
		return nil
	}

	raw := p.Drones.ShipStrikeDamage(force, rng)
	if raw <= 0 {
		return nil
	}

	in := core.NewDamageInput(raw, target.Shields, target.ArmorRating)
	in.ShieldsHealth = target.Subsystems.Shields
	in.TargetMaintenance = target.MaintenanceMultiplier
	result := core.ResolveDamage(in)

	target.Shields.Current -= result.ShieldDamage
	target.Shields.Clamp()
	target.Hull.Current -= result.TotalHullDamage()
	target.Hull.Clamp()

	events := []string{fmt.Sprintf("%s drone swarm strafed %s for %.1f damage",
		force.TeamID, target.Name, result.ShieldDamage+result.HullDamage)}

	if target.Hull.Current <= 0 && !target.Destroyed {
		target.Destroyed = true
		events = append(events, fmt.Sprintf("%s torn apart by the %s drone swarm",
			target.Name, force.TeamID))
	}
	return events
}

// aggregateDrones folds a team's carried screens into one force. The
// force is planet-based if any contributing unit is.
func aggregateDrones(units []*models.Unit, teamID string) core.DroneForce {
	f := core.DroneForce{TeamID: teamID}
	for _, u := range units {
		f.AttackDrones += u.AttackDrones
		f.DefenseDrones += u.DefenseDrones
		if u.PlanetBased {
			f.PlanetBased = true
		}
	}
	return f
}

// anchorID returns the lowest unit id in a team slice, a stable seed
// component independent of slice order
func anchorID(units []*models.Unit) uuid.UUID {
	anchor := units[0].ID
	for _, u := range units[1:] {
		if bytes.Compare(u.ID[:], anchor[:]) < 0 {
			anchor = u.ID
		}
	}
	return anchor
}

// applyDroneLosses spreads team losses across carriers in arena index
// order, attack pools first
func applyDroneLosses(units []*models.Unit, losses int) {
	ordered := make([]*models.Unit, len(units))
	copy(ordered, units)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	for _, u := range ordered {
		if losses == 0 {
			return
		}
		take := u.AttackDrones
		if take > losses {
			take = losses
		}
		u.AttackDrones -= take
		losses -= take
	}
	for _, u := range ordered {
		if losses == 0 {
			return
		}
		take := u.DefenseDrones
		if take > losses {
			take = losses
		}
		u.DefenseDrones -= take
		losses -= take
	}
}

// orderByInitiative sorts actions into execution order: class
// initiative descending, then actor id ascending
func orderByInitiative(actions []models.CombatAction, byID map[uuid.UUID]*models.Unit) []models.CombatAction {
	ordered := make([]models.CombatAction, len(actions))
	copy(ordered, actions)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, aok := byID[ordered[i].ActorUnitID]
		b, bok := byID[ordered[j].ActorUnitID]
		ai, bi := defaultInitiative, defaultInitiative
		if aok {
			ai = initiativeFor(a)
		}
		if bok {
			bi = initiativeFor(b)
		}
		if ai != bi {
			return ai > bi
		}
		return bytes.Compare(ordered[i].ActorUnitID[:], ordered[j].ActorUnitID[:]) < 0
	})
	return ordered
}

// resolveAttack executes one attack or special action against the
// working state. Actions whose actor or target died earlier in the
// tick, or whose resources ran out since validation, downgrade to
// no-ops rather than failing the tick.
func resolveAttack(a models.CombatAction, byID map[uuid.UUID]*models.Unit,
	stances map[uuid.UUID]models.ActionType, focusCounts map[uuid.UUID]int,
	tick int, p ResolutionParams) []string {

	actor, ok := byID[a.ActorUnitID]
	if !ok || !actor.Alive() || a.TargetID == nil {
		return nil
	}
	target, ok := byID[*a.TargetID]
	if !ok || !target.Targetable() {
		return nil
	}

	weapon := actor.PrimaryWeapon()
	if weapon.BaseDamage <= 0 {
		return nil
	}
	if weapon.AmmoCost > 0 && actor.Ammo < weapon.AmmoCost {
		return []string{fmt.Sprintf("%s held fire: %v", actor.Name,
			&models.ResourceError{ActorID: actor.ID, Resource: "ammo",
				Needed: float64(weapon.AmmoCost), Held: float64(actor.Ammo)})}
	}
	if weapon.FuelCost > 0 && actor.Fuel < weapon.FuelCost {
		return []string{fmt.Sprintf("%s held fire: %v", actor.Name,
			&models.ResourceError{ActorID: actor.ID, Resource: "fuel",
				Needed: weapon.FuelCost, Held: actor.Fuel})}
	}
	actor.Ammo -= weapon.AmmoCost
	actor.Fuel -= weapon.FuelCost

	rng := core.StreamFor(p.Seed, tick, actor.ID, target.ID)

	// Fixed draw order: critical roll, then screen absorb
	critical := rng.Float64() < p.Damage.CriticalChance

	incoming := 1.0
	var events []string

	if target.DefenseDrones > 0 && !a.FocusFire {
		incoming *= p.Drones.IncomingMultiplier(core.DroneForce{
			DefenseDrones: target.DefenseDrones,
			PlanetBased:   target.PlanetBased,
		})

		span := p.ScreenMax - p.ScreenMin
		absorbed := p.ScreenMin
		if span > 0 {
			absorbed += rng.Intn(span + 1)
		}
		if absorbed > target.DefenseDrones {
			absorbed = target.DefenseDrones
		}
		target.DefenseDrones -= absorbed
		events = append(events, fmt.Sprintf("%s's screen absorbed fire, %d drones lost", target.Name, absorbed))
	}

	switch stances[target.ID] {
	case models.ActionDefend:
		incoming *= 1 - p.Damage.DefendReduction
	case models.ActionEvade:
		// An agile hull gets more out of evasive maneuvers, a shot-up
		// engine room less
		evade := p.Damage.EvadeReduction * (1 + target.Evasion) * target.Subsystems.Engines
		if evade > 0.75 {
			evade = 0.75
		}
		incoming *= 1 - evade
	}

	in := core.NewDamageInput(weapon.BaseDamage, target.Shields, target.ArmorRating)
	in.AttackerMaintenance = actor.MaintenanceMultiplier
	in.WeaponsHealth = actor.Subsystems.Weapons
	in.SensorsHealth = actor.Subsystems.Sensors
	in.OutgoingMultiplier = outgoingMultiplier(actor, target, focusCounts, byID, p)
	in.ShieldsHealth = target.Subsystems.Shields
	in.TargetMaintenance = target.MaintenanceMultiplier
	in.IncomingMultiplier = incoming
	in.CriticalHit = critical
	in.CriticalMultiplier = p.Damage.CriticalMultiplier

	if a.Type == models.ActionSpecial && a.SubsystemTarget != nil {
		sub := *a.SubsystemTarget
		in.SubsystemTarget = &sub
		in.SubsystemHealth = target.Subsystems.Get(sub)
		in.SubsystemFactor = p.Damage.SubsystemHitFactor
	}

	result := core.ResolveDamage(in)

	target.Shields.Current -= result.ShieldDamage
	target.Shields.Clamp()
	target.Hull.Current -= result.TotalHullDamage()
	target.Hull.Clamp()

	if result.SubsystemHit != nil {
		target.Subsystems.Set(*result.SubsystemHit, result.SubsystemHealthAfter)
		if result.SubsystemDisabled {
			events = append(events, fmt.Sprintf("%s's %s disabled", target.Name, *result.SubsystemHit))
		}
	}

	if critical {
		events = append(events, fmt.Sprintf("%s landed a critical hit on %s", actor.Name, target.Name))
	}

	if target.Hull.Current <= 0 && !target.Destroyed {
		target.Destroyed = true
		events = append(events, fmt.Sprintf("%s destroyed by %s", target.Name, actor.Name))
	}

	return events
}

// outgoingMultiplier folds team coordination into one attack: a bonus
// per ally firing on the same target, capped, and a numbers advantage
// when the actor's team outnumbers the target's
func outgoingMultiplier(actor, target *models.Unit, focusCounts map[uuid.UUID]int,
	byID map[uuid.UUID]*models.Unit, p ResolutionParams) float64 {

	mult := 1.0

	if allies := focusCounts[target.ID] - 1; allies > 0 {
		bonus := p.Teamwork.CoordinatedBonusPerAlly * float64(allies)
		if bonus > p.Teamwork.CoordinatedBonusCap {
			bonus = p.Teamwork.CoordinatedBonusCap
		}
		mult *= 1 + bonus
	}

	actorTeam, targetTeam := 0, 0
	for _, u := range byID {
		if !u.Alive() {
			continue
		}
		switch u.TeamID {
		case actor.TeamID:
			actorTeam++
		case target.TeamID:
			targetTeam++
		}
	}
	if actorTeam > targetTeam && targetTeam > 0 {
		advantage := float64(actorTeam) / float64(targetTeam)
		if advantage > p.Teamwork.AdvantageRatio {
			advantage = p.Teamwork.AdvantageRatio
		}
		mult *= advantage
	}

	return mult
}

// resolveFlee rolls one escape attempt against the strongest alive
// pursuer
func resolveFlee(a models.CombatAction, units []*models.Unit,
	byID map[uuid.UUID]*models.Unit, tick int, p ResolutionParams) []string {

	actor, ok := byID[a.ActorUnitID]
	if !ok || !actor.Alive() || !actor.Mobile() {
		return nil
	}

	var pursuer models.ShipClass
	bestPursuit := 0.0
	for _, u := range units {
		if u.TeamID == actor.TeamID || !u.Alive() || !u.Mobile() {
			continue
		}
		if factor, ok := p.Escape.PursuitByClass[u.Class]; ok && factor > bestPursuit {
			bestPursuit = factor
			pursuer = u.Class
		} else if !ok && bestPursuit < 1 {
			bestPursuit = 1
			pursuer = u.Class
		}
	}

	chance := p.Escape.EscapeChance(core.EscapeInput{
		Class:            actor.Class,
		HullFraction:     actor.Hull.Fraction(),
		DistanceToEdgeKm: actor.DistanceToEdgeKm,
		SectorRadiusKm:   p.SectorRadiusKm,
		PursuerClass:     pursuer,
		EnginesHealth:    actor.Subsystems.Engines,
	})

	rng := core.StreamFor(p.Seed, tick, actor.ID)
	if rng.Float64() < chance {
		actor.Escaped = true
		return []string{fmt.Sprintf("%s escaped the sector", actor.Name)}
	}
	return []string{fmt.Sprintf("%s failed to break away", actor.Name)}
}

// buildDeltas compares working units against their tick-start baseline
// and reports every changed unit in arena index order
func buildDeltas(units []*models.Unit, before map[uuid.UUID]unitBaseline) []models.UnitDelta {
	var deltas []models.UnitDelta

	for _, u := range units {
		b := before[u.ID]
		hullDmg := b.hull - u.Hull.Current
		shieldDmg := b.shields - u.Shields.Current
		dronesLost := b.drones - (u.AttackDrones + u.DefenseDrones)

		changed := hullDmg != 0 || shieldDmg != 0 || dronesLost != 0 ||
			u.Ammo != b.ammo || u.Fuel != b.fuel || u.Destroyed || u.Escaped
		if !changed {
			continue
		}

		deltas = append(deltas, models.UnitDelta{
			UnitID:        u.ID,
			Index:         u.Index,
			HullDamage:    hullDmg,
			ShieldDamage:  shieldDmg,
			HullAfter:     u.Hull.Current,
			ShieldsAfter:  u.Shields.Current,
			DronesLost:    dronesLost,
			AttackDrones:  u.AttackDrones,
			DefenseDrones: u.DefenseDrones,
			Subsystems:    u.Subsystems,
			Destroyed:     u.Destroyed,
			Escaped:       u.Escaped,
			AmmoSpent:     b.ammo - u.Ammo,
			FuelSpent:     b.fuel - u.Fuel,
		})
	}

	sort.Slice(deltas, func(i, j int) bool { return deltas[i].Index < deltas[j].Index })
	return deltas
}
