// Package sketch implements the linear sketch primitive each supernode
// level is built from: an L0-sampling bucket that, once fed the
// GF(2)-incidence updates of a vertex, can recover a uniformly random
// surviving coordinate, report the coordinate set is provably empty, or
// fail to decide either way.
//
// A single bucket independently subsamples the update stream at a
// level-dependent keep probability and accumulates an XOR checksum
// alongside the XOR of surviving indices; a unique survivor is
// recoverable exactly when the checksum of the accumulated index matches
// the accumulated checksum, giving the usual CountSketch-style
// logarithmic failure probability across levels.
package sketch

import "hash/maphash"

// Result is the outcome of a Sample call.
type Result int

const (
	// OK means Value holds a recovered coordinate.
	OK Result = iota
	// Zero means the bucket's surviving set is provably empty.
	Zero
	// Fail means the bucket could not decide (collision or inconclusive).
	Fail
)

func (r Result) String() string {
	switch r {
	case OK:
		return "OK"
	case Zero:
		return "ZERO"
	default:
		return "FAIL"
	}
}

var checksumSeed = maphash.MakeSeed()

func checksum(idx uint64) uint64 {
	var h maphash.Hash
	h.SetSeed(checksumSeed)
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(idx >> (8 * i))
	}
	h.Write(buf[:])
	return h.Sum64()
}

// keep derives the per-level subsampling decision for idx: idx is
// kept in a level-`level` bucket with probability 2^-level.
func keep(seed uint64, level int, idx uint64) bool {
	if level == 0 {
		return true
	}
	h := splitmix(seed ^ idx ^ uint64(level)<<48)
	// Keep iff the top `level` bits of h are all zero: probability 2^-level.
	if level >= 64 {
		return h == 0
	}
	return h>>(64-uint(level)) == 0
}

func splitmix(x uint64) uint64 {
	x += 0x9E3779B97F4A7C15
	x = (x ^ (x >> 30)) * 0xBF58476D1CE4E5B9
	x = (x ^ (x >> 27)) * 0x94D049BB133111EB
	return x ^ (x >> 31)
}

// Sketch is one independently-seeded, level-subsampled L0 bucket.
type Sketch struct {
	seed  uint64
	level int
	xor   uint64 // XOR of surviving coordinate indices
	check uint64 // XOR of checksum(idx) over surviving coordinates
}

// New returns a fresh, empty sketch seeded for the given level. Distinct
// (seed, level) pairs must be used for every sketch a supernode owns so
// that updates made against one supernode cancel correctly when merged
// with another seeded identically, while distinct levels/vertices
// remain independent.
func New(seed uint64, level int) *Sketch {
	return &Sketch{seed: seed, level: level}
}

// Update toggles idx's membership in this bucket's GF(2) incidence
// vector — inserting and deleting an edge apply identically, both XOR
// the same coordinate into the sketch.
func (s *Sketch) Update(idx uint64) {
	if !keep(s.seed, s.level, idx) {
		return
	}
	s.xor ^= idx
	s.check ^= checksum(idx)
}

// Sample attempts to recover a uniformly random surviving coordinate.
// It does not mutate the bucket's accumulators — the caller is
// responsible for tracking that this level has been consumed (the
// Supernode cursor does this).
func (s *Sketch) Sample() (idx uint64, ret Result) {
	if s.xor == 0 && s.check == 0 {
		return 0, Zero
	}
	if checksum(s.xor) == s.check {
		return s.xor, OK
	}
	return 0, Fail
}

// Merge folds other's accumulators into s, bitwise-linearly — the order
// in which a supernode's levels are merged with another's is
// irrelevant.
func (s *Sketch) Merge(other *Sketch) {
	s.xor ^= other.xor
	s.check ^= other.check
}

// Clone returns an independent deep copy of s.
func (s *Sketch) Clone() *Sketch {
	c := *s
	return &c
}

// MarshalBinary writes the bucket's accumulators, little-endian.
func (s *Sketch) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 16)
	putUint64(buf[0:8], s.xor)
	putUint64(buf[8:16], s.check)
	return buf, nil
}

// UnmarshalBinary is the inverse of MarshalBinary. seed and level must
// already be set via New before calling this — it only restores the
// accumulator state.
func (s *Sketch) UnmarshalBinary(data []byte) error {
	if len(data) < 16 {
		return errShortBuffer
	}
	s.xor = getUint64(data[0:8])
	s.check = getUint64(data[8:16])
	return nil
}

// Size is the number of bytes a serialized sketch occupies.
const Size = 16

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func getUint64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}
