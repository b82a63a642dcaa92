package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/sectorwars/combat-engine/pkg/logger"
	"github.com/sectorwars/combat-engine/pkg/models"
)

// AARGenerator builds After Action Reports from a combat logger and
// the engine's concluded outcome
type AARGenerator struct {
	logger *CombatLogger
	config AARConfig
}

// AARConfig configures AAR generation
type AARConfig struct {
	OutputDir   string
	Format      string // only "json" is implemented
	DetailLevel string // "summary" or "detailed"
}

// AAR is an After Action Report for one combat session
type AAR struct {
	Metadata     AARMetadata             `json:"metadata"`
	Summary      ExecutiveSummary        `json:"summary"`
	TeamAnalysis map[string]TeamAnalysis `json:"team_analysis"`
	Timeline     []TimelineEntry         `json:"timeline,omitempty"`
	Statistics   SummaryStatistics       `json:"statistics"`
}

// AARMetadata contains report metadata
type AARMetadata struct {
	SessionLabel string    `json:"session_label"`
	GeneratedAt  time.Time `json:"generated_at"`
	CombatStart  time.Time `json:"combat_start"`
	Duration     string    `json:"duration"`
	Version      string    `json:"version"`
}

// ExecutiveSummary is the high-level view of the outcome
type ExecutiveSummary struct {
	Outcome     string   `json:"outcome"`
	WinningTeam string   `json:"winning_team,omitempty"`
	Ticks       int      `json:"ticks"`
	TotalLosses int      `json:"total_losses"`
	KeyEvents   []string `json:"key_events,omitempty"`
}

// TeamAnalysis summarizes one team's session
type TeamAnalysis struct {
	TeamID         string  `json:"team_id"`
	UnitsLost      int     `json:"units_lost"`
	UnitsEscaped   int     `json:"units_escaped"`
	UnitsRemaining int     `json:"units_remaining"`
	DronesLost     int     `json:"drones_lost"`
	SurvivalRate   float64 `json:"survival_rate"`
}

// TimelineEntry is one event in the detailed timeline
type TimelineEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	Tick        int       `json:"tick"`
	EventType   string    `json:"event_type"`
	Description string    `json:"description"`
}

// SummaryStatistics aggregates counters over the run
type SummaryStatistics struct {
	TotalEvents     int            `json:"total_events"`
	EventCounts     map[string]int `json:"event_counts"`
	SalvageLots     int            `json:"salvage_lots"`
	CommandsAudited int            `json:"commands_audited"`
	Rejections      int            `json:"rejections"`
}

// NewAARGenerator creates a generator over a combat logger
func NewAARGenerator(combatLogger *CombatLogger, config AARConfig) *AARGenerator {
	if config.OutputDir == "" {
		config.OutputDir = "./reports/"
	}
	if config.Format == "" {
		config.Format = "json"
	}
	return &AARGenerator{logger: combatLogger, config: config}
}

// GenerateAAR builds the report from the logger and the outcome
func (g *AARGenerator) GenerateAAR(outcome *models.CombatOutcome, auditLen, rejections int) (*AAR, error) {
	if outcome == nil {
		return nil, fmt.Errorf("cannot generate an AAR before the session concludes")
	}

	summary := g.logger.GetSummary()

	aar := &AAR{
		Metadata: AARMetadata{
			SessionLabel: summary.SessionLabel,
			GeneratedAt:  time.Now(),
			CombatStart:  summary.StartTime,
			Duration:     summary.Duration.String(),
			Version:      "1.0",
		},
		Summary: ExecutiveSummary{
			Outcome:     string(outcome.Kind),
			WinningTeam: outcome.WinningTeam,
			Ticks:       outcome.Ticks,
		},
		TeamAnalysis: make(map[string]TeamAnalysis),
		Statistics: SummaryStatistics{
			TotalEvents:     summary.TotalEvents,
			EventCounts:     summary.EventCounts,
			SalvageLots:     len(outcome.Salvage),
			CommandsAudited: auditLen,
			Rejections:      rejections,
		},
	}

	for _, c := range outcome.Casualties {
		total := c.UnitsLost + c.UnitsEscaped + c.UnitsRemaining
		survival := 0.0
		if total > 0 {
			survival = float64(c.UnitsRemaining+c.UnitsEscaped) / float64(total)
		}
		aar.TeamAnalysis[c.TeamID] = TeamAnalysis{
			TeamID:         c.TeamID,
			UnitsLost:      c.UnitsLost,
			UnitsEscaped:   c.UnitsEscaped,
			UnitsRemaining: c.UnitsRemaining,
			DronesLost:     c.DronesLost,
			SurvivalRate:   survival,
		}
		aar.Summary.TotalLosses += c.UnitsLost
	}

	events := g.logger.GetEvents()

	for _, e := range events {
		if e.Type == EventTypeDestruction || e.Type == EventTypeEscape {
			aar.Summary.KeyEvents = append(aar.Summary.KeyEvents, e.Message)
		}
	}

	if g.config.DetailLevel == "detailed" {
		aar.Timeline = make([]TimelineEntry, 0, len(events))
		for _, e := range events {
			aar.Timeline = append(aar.Timeline, TimelineEntry{
				Timestamp:   e.Timestamp,
				Tick:        e.Tick,
				EventType:   e.Type,
				Description: e.Message,
			})
		}
		sort.Slice(aar.Timeline, func(i, j int) bool {
			if aar.Timeline[i].Tick != aar.Timeline[j].Tick {
				return aar.Timeline[i].Tick < aar.Timeline[j].Tick
			}
			return aar.Timeline[i].Timestamp.Before(aar.Timeline[j].Timestamp)
		})
	}

	return aar, nil
}

// SaveAAR writes the report to the output directory
func (g *AARGenerator) SaveAAR(aar *AAR) error {
	if err := os.MkdirAll(g.config.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	filename := fmt.Sprintf("aar_%s_%s.json",
		aar.Metadata.SessionLabel, aar.Metadata.GeneratedAt.Format("20060102_150405"))
	path := filepath.Join(g.config.OutputDir, filename)

	data, err := json.MarshalIndent(aar, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal AAR: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write AAR: %w", err)
	}

	logger.Infof("After Action Report saved to %s", path)
	return nil
}
