package broadcast

import (
	"context"

	"github.com/sectorwars/combat-engine/pkg/models"
)

// Tier is a subscription tier controlling how often a subscriber
// receives buffered state deltas
type Tier string

const (
	TierInstant Tier = "instant"
	TierFast    Tier = "1s"
	TierMedium  Tier = "3s"
	TierSlow    Tier = "5s"
)

// Broadcaster consumes per-tick state deltas and fans them out to
// clients. The wire transport behind it is not the engine's concern.
type Broadcaster interface {
	// Publish delivers a batch of deltas to the subscriber. Deltas in
	// a batch are ordered by tick.
	Publish(ctx context.Context, deltas []models.StateDelta) error
}

// BroadcasterFunc adapts a function to the Broadcaster interface
type BroadcasterFunc func(ctx context.Context, deltas []models.StateDelta) error

// Publish implements Broadcaster
func (f BroadcasterFunc) Publish(ctx context.Context, deltas []models.StateDelta) error {
	return f(ctx, deltas)
}
