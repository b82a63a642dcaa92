package controllers

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sectorwars/combat-engine/cmd/sector-combat/config"
	"github.com/sectorwars/combat-engine/cmd/sector-combat/core"
	"github.com/sectorwars/combat-engine/pkg/models"
)

// ScaleClass buckets a battle by participant count. The class drives
// how aggressively resolution is partitioned and parallelized.
const (
	ScaleSkirmish   = "SKIRMISH"
	ScaleEngagement = "ENGAGEMENT"
	ScaleCampaign   = "CAMPAIGN"
	ScaleMassiveWar = "MASSIVE_WAR"
	ScaleLegendary  = "LEGENDARY"
)

// ClassifyScale maps a unit count onto its scale class using the
// configured thresholds
func ClassifyScale(unitCount int, cfg config.ScaleConfig) string {
	switch {
	case unitCount <= cfg.SkirmishMax:
		return ScaleSkirmish
	case unitCount <= cfg.EngagementMax:
		return ScaleEngagement
	case unitCount <= cfg.CampaignMax:
		return ScaleCampaign
	case unitCount <= cfg.MassiveWarMax:
		return ScaleMassiveWar
	default:
		return ScaleLegendary
	}
}

// BattleCoordinator resolves one tick across the whole battle. Units
// are partitioned into independent groups along target edges; groups
// resolve in parallel on a bounded worker pool and merge back in arena
// index order. Because every random draw is derived from content, the
// merged result is identical to a sequential resolution.
type BattleCoordinator struct {
	workers int
}

// NewBattleCoordinator creates a coordinator with the given worker
// pool size
func NewBattleCoordinator(workers int) *BattleCoordinator {
	if workers <= 0 {
		workers = 1
	}
	return &BattleCoordinator{workers: workers}
}

// battleGroup is one independent partition plus the actions that
// belong to it
type battleGroup struct {
	units   []*models.Unit
	actions []models.CombatAction
}

// ResolveTick resolves one tick over the working units and the
// accepted actions for the tick. Units are mutated in place. The
// returned delta carries the post-tick checksum.
func (bc *BattleCoordinator) ResolveTick(sessionID uuid.UUID, tick int,
	units []*models.Unit, actions []models.CombatAction, p ResolutionParams) models.StateDelta {

	groups := partitionBattle(units, actions)

	results := make([]groupResult, len(groups))

	sem := make(chan struct{}, bc.workers)
	var wg sync.WaitGroup
	for i, g := range groups {
		wg.Add(1)
		go func(i int, g battleGroup) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = resolveGroup(g.units, g.actions, tick, p)
		}(i, g)
	}
	wg.Wait()

	// Merge in group order; groups are already ordered by their lowest
	// arena index, and deltas within a group by index
	var deltas []models.UnitDelta
	var events []string
	for _, r := range results {
		deltas = append(deltas, r.deltas...)
		events = append(events, r.events...)
	}
	sort.Slice(deltas, func(i, j int) bool { return deltas[i].Index < deltas[j].Index })

	return models.StateDelta{
		SessionID: sessionID,
		Tick:      tick,
		Units:     deltas,
		Events:    events,
		Checksum:  core.StateChecksum(tick, units),
		EmittedAt: time.Now(),
	}
}

// partitionBattle splits units into independent groups: two units land
// in the same group when an action links them, directly or
// transitively, or when drone warfare can reach between them. Units
// with no links resolve alone.
func partitionBattle(units []*models.Unit, actions []models.CombatAction) []battleGroup {
	uf := newUnionFind(units)

	for _, a := range actions {
		if a.TargetID != nil {
			uf.union(a.ActorUnitID, *a.TargetID)
		}
	}

	// Opposing drone screens engage even without direct orders, so
	// every drone-carrying unit of a team pair shares a group. Attack
	// drones go further: once they clear the opposing screen they
	// strafe hulls the same tick, so any live unit is a potential
	// target and the whole battle resolves as one group.
	hasAttackDrones := false
	droneAnchors := make(map[string]uuid.UUID)
	for _, u := range units {
		if u.AttackDrones+u.DefenseDrones == 0 || !u.Alive() {
			continue
		}
		if u.AttackDrones > 0 {
			hasAttackDrones = true
		}
		if anchor, ok := droneAnchors[u.TeamID]; ok {
			uf.union(anchor, u.ID)
		} else {
			droneAnchors[u.TeamID] = u.ID
		}
	}

	if hasAttackDrones {
		var anchor uuid.UUID
		for _, u := range units {
			if !u.Alive() {
				continue
			}
			if anchor == (uuid.UUID{}) {
				anchor = u.ID
			}
			uf.union(anchor, u.ID)
		}
	} else {
		teamIDs := make([]string, 0, len(droneAnchors))
		for id := range droneAnchors {
			teamIDs = append(teamIDs, id)
		}
		sort.Strings(teamIDs)
		for i := 1; i < len(teamIDs); i++ {
			uf.union(droneAnchors[teamIDs[0]], droneAnchors[teamIDs[i]])
		}
	}

	grouped := make(map[uuid.UUID][]*models.Unit)
	for _, u := range units {
		root := uf.find(u.ID)
		grouped[root] = append(grouped[root], u)
	}

	actionRoot := make(map[uuid.UUID][]models.CombatAction)
	for _, a := range actions {
		root := uf.find(a.ActorUnitID)
		actionRoot[root] = append(actionRoot[root], a)
	}

	groups := make([]battleGroup, 0, len(grouped))
	for root, members := range grouped {
		sort.Slice(members, func(i, j int) bool { return members[i].Index < members[j].Index })
		groups = append(groups, battleGroup{units: members, actions: actionRoot[root]})
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].units[0].Index < groups[j].units[0].Index
	})
	return groups
}

// unionFind is a plain disjoint-set over unit ids
type unionFind struct {
	parent map[uuid.UUID]uuid.UUID
}

func newUnionFind(units []*models.Unit) *unionFind {
	uf := &unionFind{parent: make(map[uuid.UUID]uuid.UUID, len(units))}
	for _, u := range units {
		uf.parent[u.ID] = u.ID
	}
	return uf
}

func (uf *unionFind) find(id uuid.UUID) uuid.UUID {
	p, ok := uf.parent[id]
	if !ok {
		uf.parent[id] = id
		return id
	}
	if p == id {
		return id
	}
	root := uf.find(p)
	uf.parent[id] = root
	return root
}

func (uf *unionFind) union(a, b uuid.UUID) {
	ra, rb := uf.find(a), uf.find(b)
	if ra != rb {
		uf.parent[rb] = ra
	}
}
