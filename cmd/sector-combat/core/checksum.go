package core

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"sort"

	"github.com/sectorwars/combat-engine/pkg/models"
)

// StateChecksum computes an FNV-1a digest over the canonical session
// state at the end of a resolution phase. Units are folded in ascending
// arena index order so the checksum is independent of map iteration or
// batch scheduling. Two executions with the same tick seed and the same
// ordered audit log must produce identical checksums.
func StateChecksum(tick int, units []*models.Unit) uint64 {
	ordered := make([]*models.Unit, len(units))
	copy(ordered, units)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	h := fnv.New64a()
	writeU64 := func(v uint64) {
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], v)
		_, _ = h.Write(buf[:])
	}
	writeF64 := func(v float64) {
		writeU64(math.Float64bits(v))
	}

	writeU64(uint64(tick))

	for _, u := range ordered {
		id := u.ID
		_, _ = h.Write(id[:])
		writeU64(uint64(u.Index))
		writeF64(u.Hull.Current)
		writeF64(u.Shields.Current)
		writeF64(u.Subsystems.Engines)
		writeF64(u.Subsystems.Weapons)
		writeF64(u.Subsystems.Shields)
		writeF64(u.Subsystems.Sensors)
		writeU64(uint64(u.Ammo))
		writeF64(u.Fuel)
		writeU64(uint64(u.AttackDrones))
		writeU64(uint64(u.DefenseDrones))

		var flags uint64
		if u.Destroyed {
			flags |= 1
		}
		if u.Escaped {
			flags |= 2
		}
		writeU64(flags)
	}

	return h.Sum64()
}
