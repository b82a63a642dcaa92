package core

import (
	"encoding/binary"
	"hash/fnv"
	"math/rand"

	"github.com/google/uuid"
)

// DeriveSeed folds the session seed, tick number and participating unit
// ids into a sub-seed. Every unit pair gets its own RNG stream for the
// tick, so batch scheduling order can never change an outcome: the
// stream depends only on what is being resolved, not on when.
func DeriveSeed(base int64, tick int, ids ...uuid.UUID) int64 {
	h := fnv.New64a()

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(base))
	_, _ = h.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:], uint64(tick))
	_, _ = h.Write(buf[:])
	for _, id := range ids {
		b := id
		_, _ = h.Write(b[:])
	}

	return int64(h.Sum64())
}

// StreamFor returns a deterministic RNG stream for a (tick, units)
// resolution. Callers must draw from the stream in a fixed order.
func StreamFor(base int64, tick int, ids ...uuid.UUID) *rand.Rand {
	return rand.New(rand.NewSource(DeriveSeed(base, tick, ids...)))
}
