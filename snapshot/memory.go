package snapshot

import (
	"fmt"

	"github.com/nodestream/graphcc/supernode"
)

// Memory clones representative supernodes into a parallel in-process
// array.
type Memory struct {
	ids    []uint64
	clones []*supernode.Supernode
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// Take clones supernodes[r] for every r in reps, in order.
func (m *Memory) Take(reps []uint64, supernodes []*supernode.Supernode) error {
	m.ids = append([]uint64(nil), reps...)
	m.clones = make([]*supernode.Supernode, len(reps))
	for i, r := range reps {
		if r >= uint64(len(supernodes)) {
			return fmt.Errorf("snapshot: representative %d out of range", r)
		}
		m.clones[i] = supernodes[r].Clone()
	}
	return nil
}

// Restore swaps the clone back into supernodes for every id Take
// recorded, then frees the snapshot's own array — working supernode
// and clone are never aliased.
func (m *Memory) Restore(supernodes []*supernode.Supernode) error {
	for i, id := range m.ids {
		supernodes[id] = m.clones[i]
	}
	m.ids = nil
	m.clones = nil
	return nil
}
