// Package graph implements the connectivity engine's facade: the
// single entry point that owns every supernode, the DSU, the gutter
// system, and the worker pool, and coordinates ingest, queries, and
// binary persistence over them.
package graph

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nodestream/graphcc/boruvka"
	"github.com/nodestream/graphcc/config"
	"github.com/nodestream/graphcc/gutter"
	"github.com/nodestream/graphcc/internal/dsu"
	"github.com/nodestream/graphcc/internal/roundlog"
	"github.com/nodestream/graphcc/snapshot"
	"github.com/nodestream/graphcc/supernode"
	"github.com/nodestream/graphcc/workerpool"
)

// UpdateKind distinguishes an insert from a delete on the wire. The two
// apply identically to sketch state (both toggle the same GF(2)
// coordinate) — the distinction exists purely for caller-facing clarity
// and is not branched on internally.
type UpdateKind int

const (
	Insert UpdateKind = iota
	Delete
)

// Graph is the connectivity engine's facade. Only one instance may be
// live at a time.
type Graph struct {
	numVerts   uint64
	seed       uint64
	numLevels  int
	failFactor uint64

	supernodes []*supernode.Supernode
	forest     *dsu.DSU
	gutters    gutter.System
	pool       *workerpool.Pool
	cfg        *config.Config
	logger     zerolog.Logger
	tracker    *roundlog.Tracker

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	locked bool
}

var (
	singletonMu sync.Mutex
	liveGraph   bool
)

func acquireSingleton() error {
	singletonMu.Lock()
	defer singletonMu.Unlock()
	if liveGraph {
		return ErrMultipleGraphs
	}
	liveGraph = true
	return nil
}

func releaseSingleton() {
	singletonMu.Lock()
	liveGraph = false
	singletonMu.Unlock()
}

// newSeed derives a master PRNG seed from the current time, mixed
// through a math/rand/v2 generator rather than used raw.
func newSeed() uint64 {
	now := uint64(time.Now().UnixNano())
	r := rand.New(rand.NewPCG(now, now^0x9E3779B97F4A7C15))
	return r.Uint64()
}

// New constructs a fresh graph over numVerts vertices, generating a new
// master seed.
func New(numVerts uint64, cfg *config.Config) (*Graph, error) {
	if err := acquireSingleton(); err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.New()
	}
	seed := newSeed()
	numLevels := cfg.NumLevels(numVerts)
	failFactor := uint64(cfg.SketchLevelsExtra())

	supernodes := make([]*supernode.Supernode, numVerts)
	for i := range supernodes {
		supernodes[i] = supernode.New(uint64(i), seed, numLevels)
	}

	g, err := build(numVerts, seed, numLevels, failFactor, cfg, supernodes)
	if err != nil {
		releaseSingleton()
		return nil, err
	}
	return g, nil
}

// build wires up a Graph's DSU, gutter system, and worker pool around
// an already-constructed supernode array (freshly seeded for New, or
// read back off disk for LoadBinary).
func build(numVerts, seed uint64, numLevels int, failFactor uint64, cfg *config.Config, supernodes []*supernode.Supernode) (*Graph, error) {
	if cfg == nil {
		cfg = config.New()
	}
	logger := cfg.CreateLogger()

	if err := os.MkdirAll(cfg.DiskDirectory(), 0o755); err != nil {
		return nil, fmt.Errorf("graph: create disk directory %s: %w", cfg.DiskDirectory(), err)
	}

	gutters, err := buildGutterSystem(cfg, logger)
	if err != nil {
		return nil, err
	}

	tracker, err := roundlog.New(filepath.Join(cfg.DiskDirectory(), "rounds.jsonl"))
	if err != nil {
		logger.Warn().Err(err).Msg("graph: round tracker disabled")
		tracker = nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	pool := workerpool.New(cfg.WorkerCount(), gutters, supernodes, numVerts, logger)
	pool.Start(ctx)

	return &Graph{
		numVerts:   numVerts,
		seed:       seed,
		numLevels:  numLevels,
		failFactor: failFactor,
		supernodes: supernodes,
		forest:     dsu.New(numVerts),
		gutters:    gutters,
		pool:       pool,
		cfg:        cfg,
		logger:     logger,
		tracker:    tracker,
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

func buildGutterSystem(cfg *config.Config, logger zerolog.Logger) (gutter.System, error) {
	const queueDepth = 1024
	switch cfg.Buffering() {
	case config.BufferingTree:
		return gutter.NewTree(cfg.DiskDirectory(), cfg.GutterLRUCacheSize(), queueDepth, logger)
	default:
		return gutter.NewStandalone(cfg.GutterShardCount(), queueDepth), nil
	}
}

// Close stops the worker pool, closes the gutter system, and releases
// the singleton slot. After Close the graph must not be used again.
func (g *Graph) Close() error {
	g.cancel()
	g.pool.Stop()
	err := g.gutters.Close()
	if g.tracker != nil {
		if terr := g.tracker.Close(); terr != nil && err == nil {
			err = terr
		}
	}
	releaseSingleton()
	return err
}

// Update submits one stream update for the unordered edge {u, v}. kind
// is accepted for API symmetry with the stream's insert/delete
// vocabulary but has no effect on sketch state.
func (g *Graph) Update(u, v uint64, kind UpdateKind) error {
	if u == v {
		return fmt.Errorf("graph: self-loop edge (%d, %d) is not permitted", u, v)
	}
	if u >= g.numVerts || v >= g.numVerts {
		return fmt.Errorf("graph: vertex out of range [0, %d)", g.numVerts)
	}

	g.mu.Lock()
	locked := g.locked
	g.mu.Unlock()
	if locked {
		return ErrUpdateLocked
	}

	if err := g.gutters.Insert(u, v); err != nil {
		return fmt.Errorf("graph: insert update at %d: %w", u, err)
	}
	if err := g.gutters.Insert(v, u); err != nil {
		return fmt.Errorf("graph: insert update at %d: %w", v, err)
	}
	return nil
}

// ConnectedComponents drains ingest, runs the Borůvka driver, and
// returns one slice per component. If resumable, supernode state is
// snapshotted before the run and restored afterwards, and ingest is
// unlocked on return; otherwise the graph is left locked and paused so
// a caller that opted out of resumability cannot resume ingest either.
func (g *Graph) ConnectedComponents(resumable bool) ([][]uint64, error) {
	g.mu.Lock()
	if g.locked {
		g.mu.Unlock()
		return nil, ErrUpdateLocked
	}
	g.locked = true
	g.mu.Unlock()

	if err := g.gutters.ForceFlush(); err != nil {
		g.unlock()
		return nil, fmt.Errorf("graph: force flush: %w", err)
	}
	g.pool.Pause()

	g.forest.Reset()

	reps := allVertices(g.numVerts)

	var store snapshot.Store
	if resumable {
		if g.cfg.SnapshotInMemory() {
			store = snapshot.NewMemory()
		} else {
			store = snapshot.NewDisk(g.cfg.DiskDirectory())
		}
		if err := store.Take(reps, g.supernodes); err != nil {
			g.pool.Unpause()
			g.unlock()
			return nil, fmt.Errorf("graph: snapshot: %w", err)
		}
	}

	driver := boruvka.New(g.supernodes, g.forest, g.numVerts, g.tracker, g.logger)
	partition, runErr := driver.Run(g.ctx)

	if resumable {
		if err := store.Restore(g.supernodes); err != nil {
			g.pool.Unpause()
			g.unlock()
			if runErr != nil {
				return nil, fmt.Errorf("graph: run failed (%v) and restore also failed: %w", runErr, err)
			}
			return nil, fmt.Errorf("graph: restore snapshot: %w", err)
		}
		for _, r := range reps {
			g.supernodes[r].ResetQueryState()
		}
		g.pool.Unpause()
		g.unlock()
	}

	if runErr != nil {
		return nil, runErr
	}
	return partition, nil
}

func (g *Graph) unlock() {
	g.mu.Lock()
	g.locked = false
	g.mu.Unlock()
}

func allVertices(n uint64) []uint64 {
	reps := make([]uint64, n)
	for i := range reps {
		reps[i] = uint64(i)
	}
	return reps
}
