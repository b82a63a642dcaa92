package reporting

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

// CombatLogger collects session events and metrics for live console
// output and after-action reporting
type CombatLogger struct {
	sessionLabel string
	startTime    time.Time
	events       []CombatEvent
	metrics      map[string]Metric
	mu           sync.RWMutex
}

// CombatEvent is one logged combat event
type CombatEvent struct {
	Timestamp time.Time
	Tick      int
	Type      string
	Severity  string
	TeamID    string
	UnitID    *uuid.UUID
	Message   string
	Details   map[string]interface{}
}

// Metric is a tracked scalar with history
type Metric struct {
	Name        string
	Value       float64
	Unit        string
	LastUpdated time.Time
	History     []MetricPoint
}

// MetricPoint is a metric value at a point in time
type MetricPoint struct {
	Timestamp time.Time
	Value     float64
}

// Event type constants
const (
	EventTypeAttack      = "attack"
	EventTypeDestruction = "destruction"
	EventTypeEscape      = "escape"
	EventTypeDrone       = "drone_engagement"
	EventTypeSubsystem   = "subsystem"
	EventTypeRejection   = "rejection"
	EventTypeSession     = "session"
	EventTypeSalvage     = "salvage"
)

// Severity constants
const (
	SeverityDebug    = "debug"
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

var (
	colorDebug    = color.New(color.FgHiBlack)
	colorInfo     = color.New(color.FgCyan)
	colorWarning  = color.New(color.FgYellow)
	colorError    = color.New(color.FgRed)
	colorCritical = color.New(color.FgRed, color.Bold)
	colorSuccess  = color.New(color.FgGreen)
)

// NewCombatLogger creates a logger for one session or scenario run
func NewCombatLogger(sessionLabel string) *CombatLogger {
	cl := &CombatLogger{
		sessionLabel: sessionLabel,
		startTime:    time.Now(),
		events:       make([]CombatEvent, 0),
		metrics:      make(map[string]Metric),
	}

	cl.logColoredMessage(SeverityInfo, "Combat Started",
		fmt.Sprintf("Session: %s | Time: %s", sessionLabel, cl.startTime.Format("15:04:05")))

	return cl
}

// LogTickEvents records the engine's event strings for a resolved tick
func (cl *CombatLogger) LogTickEvents(tick int, events []string) {
	for _, msg := range events {
		cl.logEvent(CombatEvent{
			Timestamp: time.Now(),
			Tick:      tick,
			Type:      classifyEvent(msg),
			Severity:  SeverityInfo,
			Message:   msg,
		})
	}
}

// LogDestruction records a unit loss
func (cl *CombatLogger) LogDestruction(tick int, unitID uuid.UUID, teamID, unitName string) {
	cl.logEvent(CombatEvent{
		Timestamp: time.Now(),
		Tick:      tick,
		Type:      EventTypeDestruction,
		Severity:  SeverityWarning,
		TeamID:    teamID,
		UnitID:    &unitID,
		Message:   fmt.Sprintf("%s destroyed", unitName),
	})

	cl.logColoredMessage(SeverityWarning, "Unit Destroyed",
		fmt.Sprintf("Tick: %d | Team: %s | Unit: %s", tick, teamID, unitName))
}

// LogEscape records a successful flee
func (cl *CombatLogger) LogEscape(tick int, unitID uuid.UUID, teamID, unitName string) {
	cl.logEvent(CombatEvent{
		Timestamp: time.Now(),
		Tick:      tick,
		Type:      EventTypeEscape,
		Severity:  SeverityInfo,
		TeamID:    teamID,
		UnitID:    &unitID,
		Message:   fmt.Sprintf("%s escaped the sector", unitName),
	})
}

// LogRejection records a validator rejection for the audit trail view
func (cl *CombatLogger) LogRejection(tick int, actorID uuid.UUID, reason string) {
	cl.logEvent(CombatEvent{
		Timestamp: time.Now(),
		Tick:      tick,
		Type:      EventTypeRejection,
		Severity:  SeverityWarning,
		UnitID:    &actorID,
		Message:   fmt.Sprintf("command rejected: %s", reason),
		Details:   map[string]interface{}{"reason": reason},
	})
}

// LogSessionEvent records a lifecycle event such as conclusion or
// rollback
func (cl *CombatLogger) LogSessionEvent(tick int, message string, details map[string]interface{}) {
	cl.logEvent(CombatEvent{
		Timestamp: time.Now(),
		Tick:      tick,
		Type:      EventTypeSession,
		Severity:  SeverityInfo,
		Message:   message,
		Details:   details,
	})
}

// UpdateMetric updates a tracked metric
func (cl *CombatLogger) UpdateMetric(name string, value float64, unit string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	metric, exists := cl.metrics[name]
	if !exists {
		metric = Metric{
			Name:    name,
			Unit:    unit,
			History: make([]MetricPoint, 0),
		}
	}

	metric.Value = value
	metric.LastUpdated = time.Now()
	metric.History = append(metric.History, MetricPoint{
		Timestamp: time.Now(),
		Value:     value,
	})

	// Keep only last 1000 points
	if len(metric.History) > 1000 {
		metric.History = metric.History[len(metric.History)-1000:]
	}

	cl.metrics[name] = metric
}

// GetEvents returns all logged events
func (cl *CombatLogger) GetEvents() []CombatEvent {
	cl.mu.RLock()
	defer cl.mu.RUnlock()

	events := make([]CombatEvent, len(cl.events))
	copy(events, cl.events)
	return events
}

// GetMetrics returns current metrics
func (cl *CombatLogger) GetMetrics() map[string]Metric {
	cl.mu.RLock()
	defer cl.mu.RUnlock()

	metrics := make(map[string]Metric)
	for k, v := range cl.metrics {
		metrics[k] = v
	}
	return metrics
}

// CombatSummary summarizes a run for console output and the AAR
type CombatSummary struct {
	SessionLabel string
	StartTime    time.Time
	Duration     time.Duration
	TotalEvents  int
	EventCounts  map[string]int
	TeamEvents   map[string]map[string]int
	Metrics      map[string]Metric
}

// GetSummary builds a summary from the collected events
func (cl *CombatLogger) GetSummary() CombatSummary {
	cl.mu.RLock()
	defer cl.mu.RUnlock()

	eventCounts := make(map[string]int)
	teamEvents := make(map[string]map[string]int)

	for _, event := range cl.events {
		eventCounts[event.Type]++

		if event.TeamID != "" {
			if teamEvents[event.TeamID] == nil {
				teamEvents[event.TeamID] = make(map[string]int)
			}
			teamEvents[event.TeamID][event.Type]++
		}
	}

	return CombatSummary{
		SessionLabel: cl.sessionLabel,
		StartTime:    cl.startTime,
		Duration:     time.Since(cl.startTime),
		TotalEvents:  len(cl.events),
		EventCounts:  eventCounts,
		TeamEvents:   teamEvents,
		Metrics:      cl.metrics,
	}
}

// PrintSummary prints a formatted run summary
func (cl *CombatLogger) PrintSummary() {
	summary := cl.GetSummary()

	colorSuccess.Println("\n==============================================================")
	colorSuccess.Printf("                 COMBAT SUMMARY - %s\n", summary.SessionLabel)
	colorSuccess.Println("==============================================================")

	fmt.Printf("\nDuration: %v | Total Events: %d\n", summary.Duration, summary.TotalEvents)

	fmt.Println("\nEvent Distribution:")
	for eventType, count := range summary.EventCounts {
		fmt.Printf("   %-20s: %d\n", eventType, count)
	}

	if len(summary.TeamEvents) > 0 {
		fmt.Println("\nTeam Activity:")
		for team, events := range summary.TeamEvents {
			fmt.Printf("\n   %s:\n", team)
			for eventType, count := range events {
				fmt.Printf("      %-18s: %d\n", eventType, count)
			}
		}
	}

	if len(summary.Metrics) > 0 {
		fmt.Println("\nMetrics:")
		for name, metric := range summary.Metrics {
			fmt.Printf("   %-20s: %.2f %s\n", name, metric.Value, metric.Unit)
		}
	}

	colorSuccess.Println("\n==============================================================")
}

// classifyEvent buckets an engine event string by its content
func classifyEvent(msg string) string {
	switch {
	case strings.Contains(msg, "drone engagement"):
		return EventTypeDrone
	case strings.Contains(msg, "destroyed"):
		return EventTypeDestruction
	case strings.Contains(msg, "escaped"), strings.Contains(msg, "break away"):
		return EventTypeEscape
	case strings.Contains(msg, "disabled"):
		return EventTypeSubsystem
	default:
		return EventTypeAttack
	}
}

// logEvent appends an event, bounding memory
func (cl *CombatLogger) logEvent(event CombatEvent) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	cl.events = append(cl.events, event)

	if len(cl.events) > 10000 {
		cl.events = cl.events[len(cl.events)-10000:]
	}
}

// logColoredMessage prints a timestamped line colored by severity
func (cl *CombatLogger) logColoredMessage(severity, eventType, message string) {
	timestamp := time.Now().Format("15:04:05.000")

	var severityColor *color.Color
	switch severity {
	case SeverityDebug:
		severityColor = colorDebug
	case SeverityInfo:
		severityColor = colorInfo
	case SeverityWarning:
		severityColor = colorWarning
	case SeverityError:
		severityColor = colorError
	case SeverityCritical:
		severityColor = colorCritical
	default:
		severityColor = colorInfo
	}

	fmt.Printf("[%s] %s %s | %s\n",
		timestamp,
		severityColor.Sprint(fmt.Sprintf("%-8s", severity)),
		eventType,
		message)
}
