package simulation

import (
	"context"
)

// Simulation defines the interface that all combat scenarios must implement
type Simulation interface {
	// Name returns the name of the scenario
	Name() string

	// Description returns a brief description of what the scenario exercises
	Description() string

	// Configure sets up the scenario with the provided parameters
	Configure(params map[string]interface{}) error

	// Run executes the scenario against the combat resolution engine
	Run(ctx context.Context) error

	// Stop gracefully shuts down the scenario
	Stop() error
}
