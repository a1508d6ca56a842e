package workerpool

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/nodestream/graphcc/gutter"
	"github.com/nodestream/graphcc/internal/pairing"
	"github.com/nodestream/graphcc/sketch"
	"github.com/nodestream/graphcc/supernode"
)

// fakeGutter is a minimal gutter.System backed by a channel, enough to
// drive the pool without pulling in a real backend.
type fakeGutter struct {
	mu     sync.Mutex
	ch     chan gutter.Batch
	closed chan struct{}
	once   sync.Once
}

func newFakeGutter() *fakeGutter {
	return &fakeGutter{ch: make(chan gutter.Batch, 16), closed: make(chan struct{})}
}

func (f *fakeGutter) Insert(src, neighbor uint64) error { return nil }
func (f *fakeGutter) ForceFlush() error                 { return nil }

func (f *fakeGutter) push(src uint64, neighbors []uint64) {
	f.ch <- gutter.Batch{Src: src, Neighbors: neighbors}
}

func (f *fakeGutter) NextBatch(ctx context.Context) (gutter.Batch, error) {
	select {
	case b := <-f.ch:
		return b, nil
	case <-ctx.Done():
		return gutter.Batch{}, ctx.Err()
	case <-f.closed:
		return gutter.Batch{}, gutter.ErrClosed
	}
}

func (f *fakeGutter) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func newTestSupernodes(n uint64, k int) []*supernode.Supernode {
	sns := make([]*supernode.Supernode, n)
	for i := range sns {
		sns[i] = supernode.New(uint64(i), 1234, k)
	}
	return sns
}

func TestPoolAppliesBatchIntoSupernode(t *testing.T) {
	const n = 8
	sns := newTestSupernodes(n, 3)
	g := newFakeGutter()
	defer g.Close()

	pool := New(2, g, sns, n, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)
	defer pool.Stop()

	g.push(1, []uint64{3})

	idx := pairing.Encode(1, 3, n)
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		outIdx, ret := sns[1].Levels[0].Sample()
		if ret == sketch.OK && outIdx == idx {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("batch was not applied to supernode 1 within deadline")
}

func TestPoolPauseReachesQuiescence(t *testing.T) {
	const n = 4
	sns := newTestSupernodes(n, 2)
	g := newFakeGutter()
	defer g.Close()

	pool := New(3, g, sns, n, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)
	defer pool.Stop()

	done := make(chan struct{})
	go func() {
		pool.Pause()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Pause did not return")
	}

	pool.Unpause()
}

func TestPoolStopUnblocksAllWorkers(t *testing.T) {
	const n = 4
	sns := newTestSupernodes(n, 2)
	g := newFakeGutter()
	defer g.Close()

	pool := New(4, g, sns, n, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	pool.Pause()

	done := make(chan struct{})
	go func() {
		pool.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Stop did not return after pause")
	}
}
