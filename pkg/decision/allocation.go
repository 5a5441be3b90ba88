package decision

import (
	"encoding/binary"
	"math/bits"
)

// allocationModulus is the fixed bucket range for local allocation.
// Allocations are whole percentages (0-100), so the murmur hash is reduced
// modulo 100; the same modulus is used by the platform's other client SDKs,
// which keeps a visitor in the same bucket across SDKs.
const allocationModulus = 100

// SelectVariation deterministically picks a variation of the group for the
// visitor, honoring the sticky assignment history first.
//
// The returned bool reports whether this is a new assignment the caller
// should record in the history. Three outcomes are possible:
//
//   - the history already maps the group to a variation that still exists:
//     that variation is returned unchanged (sticky assignment, not new)
//   - the history maps the group to a variation that no longer exists: the
//     visitor is excluded, nil is returned and no reassignment happens
//   - no history entry: the murmur hash of group id + visitor id selects a
//     bucket in [0,100) and the variations are walked in declared order
//     accumulating allocation; the first variation whose cumulative
//     allocation exceeds the bucket wins. Zero-allocation variations are
//     skipped. Falling off the end means the visitor is not in the
//     experiment and nil is returned.
func SelectVariation(group *VariationGroup, visitorID string, history map[string]string) (*Variation, bool) {
	if assignedID, ok := history[group.ID]; ok {
		for i := range group.Variations {
			if group.Variations[i].ID == assignedID {
				return &group.Variations[i], false
			}
		}
		// The previously assigned variation was removed from the campaign:
		// the visitor is excluded rather than re-rolled.
		return nil, false
	}

	bucket := float64(murmurHash32([]byte(group.ID+visitorID)) % allocationModulus)

	var cumulative float64
	for i := range group.Variations {
		v := &group.Variations[i]
		if v.Allocation <= 0 {
			continue
		}
		cumulative += v.Allocation
		if bucket < cumulative {
			return v, true
		}
	}
	return nil, false
}

// murmurHash32 is MurmurHash3 x86 32-bit with seed 0. It is implemented
// here rather than pulled from a hashing library because allocation parity
// with the platform's other SDKs requires this exact variant and seed.
func murmurHash32(data []byte) uint32 {
	const (
		c1 = 0xcc9e2d51
		c2 = 0x1b873593
	)

	var h uint32
	nblocks := len(data) / 4
	for i := 0; i < nblocks; i++ {
		k := binary.LittleEndian.Uint32(data[i*4:])
		k *= c1
		k = bits.RotateLeft32(k, 15)
		k *= c2
		h ^= k
		h = bits.RotateLeft32(h, 13)
		h = h*5 + 0xe6546b64
	}

	var k uint32
	tail := data[nblocks*4:]
	switch len(tail) {
	case 3:
		k ^= uint32(tail[2]) << 16
		fallthrough
	case 2:
		k ^= uint32(tail[1]) << 8
		fallthrough
	case 1:
		k ^= uint32(tail[0])
		k *= c1
		k = bits.RotateLeft32(k, 15)
		k *= c2
		h ^= k
	}

	h ^= uint32(len(data))
	h ^= h >> 16
	h *= 0x85ebca6b
	h ^= h >> 13
	h *= 0xc2b2ae35
	h ^= h >> 16
	return h
}
