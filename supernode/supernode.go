// Package supernode implements the per-vertex bank of linear sketches
// — a "supernode": an ordered array of K independent sketches plus a
// query cursor.
package supernode

import (
	"fmt"

	"github.com/nodestream/graphcc/sketch"
)

// Supernode is the bank of sketches owned by one vertex.
type Supernode struct {
	ID     uint64
	Seed   uint64
	Levels []*sketch.Sketch
	cursor int
}

// New constructs an empty supernode for vertex id with k independent
// sketch levels, each seeded by mixing a per-graph master seed with the
// vertex id and the level index.
func New(id, seed uint64, k int) *Supernode {
	sn := &Supernode{ID: id, Seed: seed, Levels: make([]*sketch.Sketch, k)}
	for level := range sn.Levels {
		sn.Levels[level] = sketch.New(levelSeed(seed, id, level), level)
	}
	return sn
}

func levelSeed(seed, id uint64, level int) uint64 {
	h := seed
	h ^= id*0x9E3779B97F4A7C15 + uint64(level)*0xBF58476D1CE4E5B9
	h = (h ^ (h >> 33)) * 0xFF51AFD7ED558CCD
	return h ^ (h >> 33)
}

// K returns the number of sketch levels this supernode owns.
func (sn *Supernode) K() int { return len(sn.Levels) }

// Cursor returns the index of the next sketch level Sample will consume.
func (sn *Supernode) Cursor() int { return sn.cursor }

// Exhausted reports whether every level has been consumed.
func (sn *Supernode) Exhausted() bool { return sn.cursor >= len(sn.Levels) }

// Update applies a single toggled coordinate to every level of the
// bank — a raw stream update touches all K sketches, since each is an
// independent full view of the same incidence vector at a different
// subsampling rate.
func (sn *Supernode) Update(idx uint64) {
	for _, s := range sn.Levels {
		s.Update(idx)
	}
}

// Sample consumes the current cursor level and advances it by one,
// returning the level's outcome. Once exhausted it always returns Fail
// without touching any sketch state.
func (sn *Supernode) Sample() (idx uint64, ret sketch.Result) {
	if sn.Exhausted() {
		return 0, sketch.Fail
	}
	idx, ret = sn.Levels[sn.cursor].Sample()
	sn.cursor++
	return idx, ret
}

// Merge folds other's sketches into sn, level by level. Both supernodes
// must share the same K and the same per-level seeding (i.e. both were
// constructed against the same graph).
func (sn *Supernode) Merge(other *Supernode) error {
	if len(sn.Levels) != len(other.Levels) {
		return fmt.Errorf("supernode: merge level count mismatch: %d vs %d", len(sn.Levels), len(other.Levels))
	}
	for i, s := range sn.Levels {
		s.Merge(other.Levels[i])
	}
	return nil
}

// ApplyDelta applies a scratch delta-supernode's accumulated effect to
// sn. Because sketches are linear, this is equivalent to replaying every
// update the delta represents directly against sn — and is implemented
// identically to Merge, since a delta supernode is itself a
// supernode-shaped scratch buffer.
func (sn *Supernode) ApplyDelta(delta *Supernode) error {
	return sn.Merge(delta)
}

// ResetQueryState rewinds the cursor to 0 without disturbing any
// sketch's accumulated state, so a resumed graph can re-run Borůvka
// rounds over the same incidence data.
func (sn *Supernode) ResetQueryState() {
	sn.cursor = 0
}

// Clone returns a deep, independent copy of sn — used by the in-memory
// snapshot backend.
func (sn *Supernode) Clone() *Supernode {
	c := &Supernode{
		ID:     sn.ID,
		Seed:   sn.Seed,
		Levels: make([]*sketch.Sketch, len(sn.Levels)),
		cursor: sn.cursor,
	}
	for i, s := range sn.Levels {
		c.Levels[i] = s.Clone()
	}
	return c
}

// Delta returns a fresh, empty scratch supernode shaped like sn
// (same K, same per-level seeds) for a worker to accumulate a batch of
// updates into before calling ApplyDelta.
func (sn *Supernode) Delta() *Supernode {
	d := &Supernode{ID: sn.ID, Seed: sn.Seed, Levels: make([]*sketch.Sketch, len(sn.Levels))}
	for i := range d.Levels {
		d.Levels[i] = sketch.New(levelSeed(sn.Seed, sn.ID, i), i)
	}
	return d
}
