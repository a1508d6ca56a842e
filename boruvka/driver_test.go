package boruvka

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/nodestream/graphcc/internal/dsu"
	"github.com/nodestream/graphcc/internal/pairing"
	"github.com/nodestream/graphcc/supernode"
)

func buildSupernodes(n uint64, k int, seed uint64) []*supernode.Supernode {
	sns := make([]*supernode.Supernode, n)
	for i := range sns {
		sns[i] = supernode.New(uint64(i), seed, k)
	}
	return sns
}

func applyEdge(sns []*supernode.Supernode, n, u, v uint64) {
	idx := pairing.Encode(u, v, n)
	sns[u].Update(idx)
	sns[v].Update(idx)
}

// A perfect matching resolves deterministically: every vertex has
// degree 1, so level 0 (unsampled) always recovers its sole edge, and
// the merged supernode thereafter can only ever see its own internal
// (now-dropped) edge or nothing, never a fresh ambiguous bucket.
func TestRunConvergesOnPerfectMatching(t *testing.T) {
	const n = 4
	sns := buildSupernodes(n, 4, 99)
	applyEdge(sns, n, 0, 1)
	applyEdge(sns, n, 2, 3)

	forest := dsu.New(n)
	driver := New(sns, forest, n, nil, zerolog.Nop())

	partition, err := driver.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(partition) != 2 {
		t.Fatalf("got %d components, want 2: %v", len(partition), partition)
	}

	want := map[uint64]uint64{0: 1, 1: 0, 2: 3, 3: 2} // partner of each vertex
	for _, comp := range partition {
		if len(comp) != 2 {
			t.Fatalf("component %v does not have size 2", comp)
		}
		if want[comp[0]] != comp[1] {
			t.Fatalf("component %v is not a matched pair", comp)
		}
	}
}

// A triangle leaves every vertex at degree 2, so level 0 cannot resolve
// a unique survivor; with only one sketch level configured, every
// representative exhausts on its first retry and the driver must fail
// rather than loop forever.
func TestRunReturnsOutOfQueriesWhenExhausted(t *testing.T) {
	const n = 3
	sns := buildSupernodes(n, 1, 99)
	applyEdge(sns, n, 0, 1)
	applyEdge(sns, n, 1, 2)
	applyEdge(sns, n, 0, 2)

	forest := dsu.New(n)
	driver := New(sns, forest, n, nil, zerolog.Nop())

	_, err := driver.Run(context.Background())
	if err == nil {
		t.Fatalf("expected an error, got nil")
	}
	if !errors.Is(err, ErrOutOfQueries) {
		t.Fatalf("got %v, want ErrOutOfQueries", err)
	}
}

func TestRunOnEmptyGraphYieldsSingletons(t *testing.T) {
	const n = 5
	sns := buildSupernodes(n, 4, 7)
	forest := dsu.New(n)
	driver := New(sns, forest, n, nil, zerolog.Nop())

	partition, err := driver.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(partition) != n {
		t.Fatalf("got %d components, want %d singletons", len(partition), n)
	}
	for _, comp := range partition {
		if len(comp) != 1 {
			t.Fatalf("expected singleton, got %v", comp)
		}
	}
}
