package gutter

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/dgraph-io/badger/v4"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
)

// Tree is the disk-backed gutter system (`buffering_system = tree`).
// Hot per-source buffers live in an LRU write-behind cache; once a
// source is evicted for capacity, its buffer is appended to a
// badger-backed key so it survives until a worker drains it, bounding
// memory independent of how many distinct sources are mid-stream.
type Tree struct {
	db     *badger.DB
	cache  *lru.Cache[uint64, []uint64]
	logger zerolog.Logger

	mu          sync.Mutex
	diskPending map[uint64]bool
	inflight    map[uint64]bool
	evictErr    error

	ready   chan uint64
	closed  chan struct{}
	closeMu sync.Mutex
	isShut  bool
}

// NewTree opens (creating if absent) a badger database under dir and
// returns a Tree buffering at most cacheSize hot sources in memory.
func NewTree(dir string, cacheSize, queueDepth int, logger zerolog.Logger) (*Tree, error) {
	opts := badger.DefaultOptions(filepath.Join(dir, "gutter-tree")).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("gutter: open badger tree at %s: %w", dir, err)
	}

	if cacheSize < 1 {
		cacheSize = 1
	}
	if queueDepth < 1 {
		queueDepth = 1
	}

	t := &Tree{
		db:          db,
		logger:      logger,
		diskPending: make(map[uint64]bool),
		inflight:    make(map[uint64]bool),
		ready:       make(chan uint64, queueDepth),
		closed:      make(chan struct{}),
	}

	cache, err := lru.NewWithEvict(cacheSize, t.onEvict)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("gutter: new lru cache: %w", err)
	}
	t.cache = cache
	return t, nil
}

// onEvict runs synchronously out of cache.Add/cache.Remove, on whichever
// goroutine called them — every call site in this file only touches the
// cache while already holding t.mu, so onEvict must not lock t.mu itself
// (sync.Mutex isn't reentrant); it just writes through to the maps the
// caller's held lock already protects. It must never call back into the
// cache either. Failures are logged and recorded as a sticky error
// surfaced on the next Insert/ForceFlush/NextBatch call, since the LRU
// cache's evict hook has no error return of its own.
func (t *Tree) onEvict(src uint64, neighbors []uint64) {
	if len(neighbors) == 0 {
		return
	}
	if err := t.appendDisk(src, neighbors); err != nil {
		t.logger.Error().Err(err).Uint64("src", src).Msg("gutter tree: evict flush failed")
		t.evictErr = err
		return
	}
	t.diskPending[src] = true
}

// Insert buffers neighbor against src in the hot cache.
func (t *Tree) Insert(src, neighbor uint64) error {
	t.mu.Lock()
	if t.evictErr != nil {
		err := t.evictErr
		t.mu.Unlock()
		return fmt.Errorf("gutter: prior evict flush failed: %w", err)
	}
	existing, _ := t.cache.Peek(src)
	wasEmpty := len(existing) == 0 && !t.diskPending[src]
	updated := append(append([]uint64(nil), existing...), neighbor)
	t.cache.Add(src, updated)
	shouldEnqueue := wasEmpty && !t.inflight[src]
	t.mu.Unlock()

	if shouldEnqueue {
		select {
		case t.ready <- src:
		case <-t.closed:
		}
	}
	return nil
}

// ForceFlush pushes every hot cache entry to badger and syncs the
// database, so the on-disk state reflects every update accepted so far.
func (t *Tree) ForceFlush() error {
	t.mu.Lock()
	keys := t.cache.Keys()
	t.mu.Unlock()

	for _, src := range keys {
		t.mu.Lock()
		t.cache.Remove(src) // triggers onEvict synchronously
		t.mu.Unlock()
	}

	t.mu.Lock()
	err := t.evictErr
	t.mu.Unlock()
	if err != nil {
		return fmt.Errorf("gutter: force flush: %w", err)
	}
	return t.db.Sync()
}

// NextBatch blocks until a source is ready, then returns its full
// accumulated neighbor list merged from disk overflow (older) followed
// by whatever is still hot in cache (newer), preserving arrival order.
func (t *Tree) NextBatch(ctx context.Context) (Batch, error) {
	var src uint64
	select {
	case src = <-t.ready:
	case <-ctx.Done():
		return Batch{}, ctx.Err()
	case <-t.closed:
		return Batch{}, ErrClosed
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Remove hands any hot entry to onEvict, which appends it to the disk
	// overflow after the older spilled neighbors, so the disk record alone
	// holds the whole batch in arrival order.
	t.cache.Remove(src)
	if t.evictErr != nil {
		return Batch{}, fmt.Errorf("gutter: prior evict flush failed: %w", t.evictErr)
	}

	var neighbors []uint64
	if t.diskPending[src] {
		disk, err := t.readDisk(src)
		if err != nil {
			return Batch{}, fmt.Errorf("gutter: read overflow for src %d: %w", src, err)
		}
		if err := t.deleteDisk(src); err != nil {
			return Batch{}, fmt.Errorf("gutter: clear overflow for src %d: %w", src, err)
		}
		delete(t.diskPending, src)
		neighbors = disk
	}
	t.inflight[src] = true

	return Batch{
		Src:       src,
		Neighbors: neighbors,
		release:   func() { t.release(src) },
	}, nil
}

func (t *Tree) release(src uint64) {
	t.mu.Lock()
	t.inflight[src] = false
	_, inCache := t.cache.Peek(src)
	hasMore := inCache || t.diskPending[src]
	t.mu.Unlock()

	if hasMore {
		select {
		case t.ready <- src:
		case <-t.closed:
		}
	}
}

// Close flushes pending state is not attempted here — callers that need
// a durable final state must call ForceFlush first — and closes the
// underlying database.
func (t *Tree) Close() error {
	t.closeMu.Lock()
	defer t.closeMu.Unlock()
	if t.isShut {
		return nil
	}
	t.isShut = true
	close(t.closed)
	if err := t.db.Close(); err != nil {
		return fmt.Errorf("gutter: close badger tree: %w", err)
	}
	return nil
}
