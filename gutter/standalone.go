package gutter

import (
	"context"
	"sync"
)

// Standalone is the in-memory sharded gutter system (`buffering_system =
// standalone`). Vertices are partitioned across a fixed number of
// shards by src % shardCount so that many producers can insert
// concurrently without contending on a single lock, while each shard
// still enforces per-source ordering and at-most-one-batch-in-flight
// exclusivity.
type Standalone struct {
	shards  []*shard
	closed  chan struct{}
	closeMu sync.Mutex
	isShut  bool
}

type shard struct {
	mu       sync.Mutex
	pending  map[uint64][]uint64
	inflight map[uint64]bool
	ready    chan uint64
}

// NewStandalone constructs an in-memory gutter system with the given
// number of shards, each able to hold up to queueDepth ready sources
// before Insert blocks — this backend's only I/O-free backpressure
// point.
func NewStandalone(shardCount, queueDepth int) *Standalone {
	if shardCount < 1 {
		shardCount = 1
	}
	if queueDepth < 1 {
		queueDepth = 1
	}
	s := &Standalone{
		shards: make([]*shard, shardCount),
		closed: make(chan struct{}),
	}
	for i := range s.shards {
		s.shards[i] = &shard{
			pending:  make(map[uint64][]uint64),
			inflight: make(map[uint64]bool),
			ready:    make(chan uint64, queueDepth),
		}
	}
	return s
}

func (s *Standalone) shardFor(src uint64) *shard {
	return s.shards[src%uint64(len(s.shards))]
}

// Insert buffers neighbor against src, enqueueing src for delivery if it
// isn't already queued or in flight.
func (s *Standalone) Insert(src, neighbor uint64) error {
	sh := s.shardFor(src)
	sh.mu.Lock()
	wasEmpty := len(sh.pending[src]) == 0
	sh.pending[src] = append(sh.pending[src], neighbor)
	shouldEnqueue := wasEmpty && !sh.inflight[src]
	sh.mu.Unlock()

	if shouldEnqueue {
		select {
		case sh.ready <- src:
		case <-s.closed:
		}
	}
	return nil
}

// ForceFlush is a no-op for the in-memory backend: nothing is buffered
// outside the shard maps that NextBatch already reads directly, so there
// is nothing to flush to a durable layer.
func (s *Standalone) ForceFlush() error { return nil }

// NextBatch blocks on any shard with a ready source, returning that
// source's accumulated neighbors as one batch and marking it in flight.
// Shards are fanned in with one goroutine apiece rather than
// reflect.Select, since shard counts are small and fixed per system.
func (s *Standalone) NextBatch(ctx context.Context) (Batch, error) {
	type result struct {
		sh  *shard
		src uint64
	}
	out := make(chan result, 1)
	stop := make(chan struct{})
	var wg sync.WaitGroup
	for _, sh := range s.shards {
		wg.Add(1)
		go func(sh *shard) {
			defer wg.Done()
			select {
			case src := <-sh.ready:
				select {
				case out <- result{sh, src}:
				case <-stop:
					// Someone else won; put src back so it isn't lost.
					select {
					case sh.ready <- src:
					case <-s.closed:
					}
				}
			case <-stop:
			}
		}(sh)
	}

	var res result
	var err error
	select {
	case res = <-out:
	case <-ctx.Done():
		err = ctx.Err()
	case <-s.closed:
		err = ErrClosed
	}
	close(stop)
	wg.Wait()

	if err != nil {
		return Batch{}, err
	}

	sh := res.sh
	src := res.src
	sh.mu.Lock()
	neighbors := sh.pending[src]
	delete(sh.pending, src)
	sh.inflight[src] = true
	sh.mu.Unlock()

	return Batch{
		Src:       src,
		Neighbors: neighbors,
		release:   func() { s.release(sh, src) },
	}, nil
}

func (s *Standalone) release(sh *shard, src uint64) {
	sh.mu.Lock()
	sh.inflight[src] = false
	hasMore := len(sh.pending[src]) > 0
	sh.mu.Unlock()

	if hasMore {
		select {
		case sh.ready <- src:
		case <-s.closed:
		}
	}
}

// Close shuts the system down; any goroutine blocked in Insert or
// NextBatch unblocks with ErrClosed (or an empty write succeeding, for
// Insert, since buffered-but-undelivered updates are simply dropped).
func (s *Standalone) Close() error {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.isShut {
		return nil
	}
	s.isShut = true
	close(s.closed)
	return nil
}
