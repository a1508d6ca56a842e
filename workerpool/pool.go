// Package workerpool drains batches from a gutter.System into the
// graph's supernode array. Workers run until the pool is stopped, and
// can be cooperatively paused so the facade can reach quiescence before
// a query without tearing down the goroutines.
package workerpool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nodestream/graphcc/gutter"
	"github.com/nodestream/graphcc/internal/pairing"
	"github.com/nodestream/graphcc/supernode"
)

// Pool is a fixed-size set of workers pulling batches off a gutter
// system and folding them into a shared supernode table.
type Pool struct {
	workers    int
	gutters    gutter.System
	supernodes []*supernode.Supernode
	numVerts   uint64
	logger     zerolog.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	paused  bool
	active  int // workers currently outside the pause checkpoint
	stopped bool

	wg sync.WaitGroup
}

// New constructs a pool of the given size over supernodes, indexed by
// vertex id, drawing batches from g. numVerts is the vertex count used
// to encode each (src, neighbor) pair of a batch into the dense pairing
// index — it must match the count the Borůvka driver uses to decode
// sampled indices back into edges.
func New(workers int, g gutter.System, supernodes []*supernode.Supernode, numVerts uint64, logger zerolog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{
		workers:    workers,
		gutters:    g,
		supernodes: supernodes,
		numVerts:   numVerts,
		logger:     logger,
		active:     workers,
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Start launches the worker goroutines. Start must be called at most
// once.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
}

// pollInterval bounds how long a worker blocks in NextBatch before
// re-checking the pause flag. Without it, a worker idling in NextBatch
// with nothing queued would never reach the checkpoint, and Pause would
// hang waiting for quiescence it can never observe.
const pollInterval = 50 * time.Millisecond

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		pollCtx, cancel := context.WithTimeout(ctx, pollInterval)
		batch, err := p.gutters.NextBatch(pollCtx)
		cancel()
		if err != nil {
			if err == gutter.ErrClosed || ctx.Err() != nil {
				return
			}
			if pollCtx.Err() != nil {
				// Nothing was ready for a whole poll window. With ingest
				// locked this means the backlog is genuinely exhausted, not
				// just momentarily empty, so it's the only safe place to
				// honor a pause — checking between every batch would let a
				// worker park while sibling sources still sit unclaimed.
				if p.checkpoint() {
					return
				}
				continue
			}
			p.logger.Error().Err(err).Int("worker", id).Msg("workerpool: next batch failed")
			continue
		}

		if err := p.apply(batch); err != nil {
			p.logger.Error().Err(err).Int("worker", id).Uint64("src", batch.Src).Msg("workerpool: apply batch failed")
		}
		batch.Release()
	}
}

// apply folds one gutter batch into supernodes[src] via a scratch delta
// supernode: acquire a delta, accumulate every neighbor toggle into it,
// then apply the delta to the target in one call.
func (p *Pool) apply(batch gutter.Batch) error {
	if batch.Src >= uint64(len(p.supernodes)) {
		return fmt.Errorf("workerpool: src %d out of range", batch.Src)
	}
	target := p.supernodes[batch.Src]
	delta := target.Delta()
	for _, neighbor := range batch.Neighbors {
		idx := pairing.Encode(batch.Src, neighbor, p.numVerts)
		delta.Update(idx)
	}
	return target.ApplyDelta(delta)
}

// checkpoint blocks the calling worker while the pool is paused, and
// reports whether the pool has been stopped. It is the cooperative
// pause point workers reach once they find nothing left to pull.
func (p *Pool) checkpoint() (stop bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.paused && !p.stopped {
		p.active--
		if p.active == 0 {
			p.cond.Broadcast() // wakes Pause's quiescence wait
		}
		p.cond.Wait()
		p.active++
	}
	return p.stopped
}

// Pause blocks until every worker has drained the gutter system down to
// nothing ready and parked at the checkpoint. Callers must lock out new
// ingest and call ForceFlush before Pause, or a worker can keep finding
// fresh batches to pull and Pause will never observe quiescence.
func (p *Pool) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = true
	for p.active > 0 {
		p.cond.Wait()
	}
}

// Unpause resumes all paused workers.
func (p *Pool) Unpause() {
	p.mu.Lock()
	p.paused = false
	p.cond.Broadcast()
	p.mu.Unlock()
}

// Stop releases every paused worker permanently and waits for all
// worker goroutines to return. A running worker notices the stop only at
// its next checkpoint, after a whole poll window finds nothing ready, so
// unless the caller's ctx is canceled or the gutter system is closed,
// Stop also waits for the gutter system to run out of ready batches.
func (p *Pool) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.paused = false
	p.cond.Broadcast()
	p.mu.Unlock()
	p.wg.Wait()
}
