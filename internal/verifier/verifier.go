//go:build verify

// Package verifier is a test-only ground-truth checker, compiled under
// the verify build tag. It mirrors every insert/delete the facade
// accepts into an explicit gonum/graph/simple.UndirectedGraph so tests
// can cross-check the probabilistic engine's answers against an exact
// adjacency structure.
package verifier

import (
	"sync"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Verifier maintains an exact undirected graph in parallel with a
// stream of the same updates fed to the engine.
type Verifier struct {
	mu sync.Mutex
	g  *simple.UndirectedGraph
}

// New returns an empty Verifier.
func New() *Verifier {
	return &Verifier{g: simple.NewUndirectedGraph()}
}

// Toggle applies one insert/delete update: since the engine treats
// both identically (GF(2) toggle), Toggle adds the edge if absent and
// removes it if present, mirroring the net effect on the sketch state.
func (v *Verifier) Toggle(u, w uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	uid, wid := int64(u), int64(w)
	if v.g.HasEdgeBetween(uid, wid) {
		v.g.RemoveEdge(uid, wid)
		return
	}
	v.g.SetEdge(simple.Edge{F: simple.Node(uid), T: simple.Node(wid)})
}

// VerifyEdge reports whether the edge {u, v} is currently present.
func (v *Verifier) VerifyEdge(u, w uint64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.g.HasEdgeBetween(int64(u), int64(w))
}

// VerifyCC returns every vertex id in vertex's connected component. A
// vertex the verifier never saw an edge for is its own singleton
// component.
func (v *Verifier) VerifyCC(vertex uint64) []uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()

	id := int64(vertex)
	if v.g.Node(id) == nil {
		return []uint64{vertex}
	}

	for _, comp := range topo.ConnectedComponents(v.g) {
		for _, n := range comp {
			if n.ID() == id {
				out := make([]uint64, len(comp))
				for i, m := range comp {
					out[i] = uint64(m.ID())
				}
				return out
			}
		}
	}
	return []uint64{vertex}
}
