package broadcast

import (
	"context"
	"sync"
	"time"

	"github.com/sectorwars/combat-engine/pkg/logger"
	"github.com/sectorwars/combat-engine/pkg/models"
)

// tierInterval maps a subscription tier to its flush interval. The
// instant tier bypasses the buffer entirely.
var tierInterval = map[Tier]time.Duration{
	TierFast:   1 * time.Second,
	TierMedium: 3 * time.Second,
	TierSlow:   5 * time.Second,
}

// subscriber is one registered broadcaster and its pending deltas
type subscriber struct {
	sink    Broadcaster
	tier    Tier
	pending []models.StateDelta
}

// DeltaBuffer batches per-tick state deltas and flushes them to
// subscribers at their tier rate. Instant-tier subscribers receive
// each delta as it is queued.
type DeltaBuffer struct {
	subscribers []*subscriber
	mu          sync.Mutex
	stopChan    chan struct{}
	wg          sync.WaitGroup
	stopOnce    sync.Once

	// Stats
	deltasQueued  int64
	batchesSent   int64
	publishErrors int64
}

// BufferStats reports delta buffer counters
type BufferStats struct {
	DeltasQueued  int64
	BatchesSent   int64
	PublishErrors int64
	Subscribers   int
}

// NewDeltaBuffer creates an empty delta buffer
func NewDeltaBuffer() *DeltaBuffer {
	return &DeltaBuffer{
		stopChan: make(chan struct{}),
	}
}

// Subscribe registers a broadcaster at the given tier. Unknown tiers
// fall back to the slow tier.
func (db *DeltaBuffer) Subscribe(sink Broadcaster, tier Tier) {
	if tier != TierInstant {
		if _, ok := tierInterval[tier]; !ok {
			tier = TierSlow
		}
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	db.subscribers = append(db.subscribers, &subscriber{sink: sink, tier: tier})
}

// Start begins the tier flush goroutines
func (db *DeltaBuffer) Start(ctx context.Context) {
	for tier, interval := range tierInterval {
		db.wg.Add(1)
		go func(tier Tier, interval time.Duration) {
			defer db.wg.Done()

			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return
				case <-db.stopChan:
					return
				case <-ticker.C:
					db.flushTier(ctx, tier)
				}
			}
		}(tier, interval)
	}
}

// Stop halts the flush goroutines and delivers anything still pending
func (db *DeltaBuffer) Stop() {
	db.stopOnce.Do(func() {
		close(db.stopChan)
	})
	db.wg.Wait()

	for tier := range tierInterval {
		db.flushTier(context.Background(), tier)
	}
}

// Queue buffers a delta for tiered delivery. Instant subscribers are
// published to synchronously.
func (db *DeltaBuffer) Queue(ctx context.Context, delta models.StateDelta) {
	db.mu.Lock()
	db.deltasQueued++
	var instant []*subscriber
	for _, sub := range db.subscribers {
		if sub.tier == TierInstant {
			instant = append(instant, sub)
			continue
		}
		sub.pending = append(sub.pending, delta)
	}
	db.mu.Unlock()

	for _, sub := range instant {
		if err := sub.sink.Publish(ctx, []models.StateDelta{delta}); err != nil {
			db.mu.Lock()
			db.publishErrors++
			db.mu.Unlock()
			logger.Errorf("Failed to publish delta for session %s tick %d: %v",
				delta.SessionID, delta.Tick, err)
		}
	}
}

// flushTier delivers pending deltas for every subscriber at the tier
func (db *DeltaBuffer) flushTier(ctx context.Context, tier Tier) {
	db.mu.Lock()
	type batch struct {
		sink   Broadcaster
		deltas []models.StateDelta
	}
	var batches []batch
	for _, sub := range db.subscribers {
		if sub.tier != tier || len(sub.pending) == 0 {
			continue
		}
		batches = append(batches, batch{sink: sub.sink, deltas: sub.pending})
		sub.pending = nil
	}
	db.mu.Unlock()

	for _, b := range batches {
		if err := b.sink.Publish(ctx, b.deltas); err != nil {
			db.mu.Lock()
			db.publishErrors++
			db.mu.Unlock()
			logger.Errorf("Failed to publish %d deltas: %v", len(b.deltas), err)
			continue
		}
		db.mu.Lock()
		db.batchesSent++
		db.mu.Unlock()
	}
}

// GetStats returns current buffer counters
func (db *DeltaBuffer) GetStats() BufferStats {
	db.mu.Lock()
	defer db.mu.Unlock()
	return BufferStats{
		DeltasQueued:  db.deltasQueued,
		BatchesSent:   db.batchesSent,
		PublishErrors: db.publishErrors,
		Subscribers:   len(db.subscribers),
	}
}

// PendingCount returns the number of deltas awaiting delivery across
// all buffered subscribers
func (db *DeltaBuffer) PendingCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	total := 0
	for _, sub := range db.subscribers {
		total += len(sub.pending)
	}
	return total
}
