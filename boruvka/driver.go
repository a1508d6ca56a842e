// Package boruvka drives the sample-then-merge rounds that turn the
// supernode array into a connected-component partition.
package boruvka

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/rs/zerolog"

	"github.com/nodestream/graphcc/internal/dsu"
	"github.com/nodestream/graphcc/internal/pairing"
	"github.com/nodestream/graphcc/internal/roundlog"
	"github.com/nodestream/graphcc/sketch"
	"github.com/nodestream/graphcc/supernode"
)

// Driver orchestrates rounds over a shared supernode array and DSU. It
// holds no state of its own between Run calls other than what it's
// given — the facade owns the supernodes and DSU and is responsible for
// resetting query state (cursor rewind) before a fresh Run.
type Driver struct {
	supernodes []*supernode.Supernode
	forest     *dsu.DSU
	numVerts   uint64
	tracker    *roundlog.Tracker
	logger     zerolog.Logger
}

// New constructs a driver over supernodes and forest, both owned by the
// caller and mutated in place. tracker may be nil.
func New(supernodes []*supernode.Supernode, forest *dsu.DSU, numVerts uint64, tracker *roundlog.Tracker, logger zerolog.Logger) *Driver {
	return &Driver{
		supernodes: supernodes,
		forest:     forest,
		numVerts:   numVerts,
		tracker:    tracker,
		logger:     logger,
	}
}

// Run executes rounds until none makes progress, then groups every
// vertex by its final DSU root.
func (d *Driver) Run(ctx context.Context) ([][]uint64, error) {
	reps := make([]uint64, len(d.supernodes))
	for i := range reps {
		reps[i] = uint64(i)
	}

	for round := 0; len(reps) > 0; round++ {
		next, modified, err := d.runRound(ctx, round, reps)
		if err != nil {
			return nil, err
		}
		if !modified {
			break
		}
		reps = next
	}

	return d.partition(), nil
}

type sampleOutcome struct {
	idx uint64
	ret sketch.Result
}

// runRound executes one sample-then-merge round over reps and returns
// the representative set for the next round plus whether this round
// made progress (a merge or a retry — convergence requires both be
// absent).
func (d *Driver) runRound(ctx context.Context, round int, reps []uint64) (next []uint64, modified bool, err error) {
	outcomes := make([]sampleOutcome, len(reps))

	g, gctx := errgroup.WithContext(ctx)
	for i, r := range reps {
		i, r := i, r
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			idx, ret := d.supernodes[r].Sample()
			outcomes[i] = sampleOutcome{idx: idx, ret: ret}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, false, fmt.Errorf("boruvka: round %d sample phase: %w", round, err)
	}

	toMerge := make(map[uint64][]uint64)
	retrying := make(map[uint64]bool)

	for i, r := range reps {
		outcome := outcomes[i]
		switch outcome.ret {
		case sketch.Fail:
			if d.supernodes[r].Exhausted() {
				return nil, false, fmt.Errorf("boruvka: representative %d exhausted at round %d: %w", r, round, ErrOutOfQueries)
			}
			retrying[r] = true
			modified = true
			d.logEvent(round, r, roundlog.ActionRetry, 0)

		case sketch.Zero:
			d.logEvent(round, r, roundlog.ActionZero, 0)

		case sketch.OK:
			x, y := pairing.Decode(outcome.idx, d.numVerts)
			a, b := d.forest.Find(x), d.forest.Find(y)
			if a == b {
				continue
			}
			root, absorbed, merged := d.forest.Union(a, b)
			if !merged {
				continue
			}
			toMerge[root] = append(toMerge[root], absorbed)
			if chained, ok := toMerge[absorbed]; ok {
				toMerge[root] = append(toMerge[root], chained...)
				delete(toMerge, absorbed)
			}
			modified = true
			d.logEvent(round, r, roundlog.ActionMerge, root)
		}
	}

	// Filter retries: a representative whose root acquired pending
	// merges (or who stopped being a root entirely) is dropped from
	// retry — its supernode is folded into the merge instead.
	for r := range retrying {
		root := d.forest.Find(r)
		if root != r {
			delete(retrying, r)
			continue
		}
		if _, hasMerges := toMerge[root]; hasMerges {
			delete(retrying, r)
		}
	}

	next = make([]uint64, 0, len(retrying)+len(toMerge))
	for r := range retrying {
		next = append(next, r)
	}
	for a := range toMerge {
		next = append(next, a)
	}
	sort.Slice(next, func(i, j int) bool { return next[i] < next[j] })

	if err := d.mergeSupernodes(ctx, round, toMerge); err != nil {
		return nil, false, err
	}

	return next, modified, nil
}

// mergeSupernodes folds every absorbed supernode into its surviving
// root in parallel, one goroutine per root — disjoint destinations, so
// no locking is needed.
func (d *Driver) mergeSupernodes(ctx context.Context, round int, toMerge map[uint64][]uint64) error {
	if len(toMerge) == 0 {
		return nil
	}
	g, _ := errgroup.WithContext(ctx)
	for root, absorbed := range toMerge {
		root, absorbed := root, absorbed
		g.Go(func() error {
			dest := d.supernodes[root]
			for _, b := range absorbed {
				if err := dest.Merge(d.supernodes[b]); err != nil {
					return fmt.Errorf("boruvka: round %d merge %d into %d: %w", round, b, root, err)
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// partition groups every vertex by its final DSU root.
func (d *Driver) partition() [][]uint64 {
	groups := make(map[uint64][]uint64)
	for v := uint64(0); v < uint64(len(d.supernodes)); v++ {
		root := d.forest.Find(v)
		groups[root] = append(groups[root], v)
	}

	roots := make([]uint64, 0, len(groups))
	for root := range groups {
		roots = append(roots, root)
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i] < roots[j] })

	out := make([][]uint64, len(roots))
	for i, root := range roots {
		out[i] = groups[root]
	}
	return out
}

func (d *Driver) logEvent(round int, rep uint64, action roundlog.Action, mergedInto uint64) {
	if d.tracker == nil {
		return
	}
	_ = d.tracker.Log(roundlog.Event{
		Round:          round,
		Representative: rep,
		Action:         action,
		MergedInto:     mergedInto,
	})
}
