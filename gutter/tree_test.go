package gutter

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestTree(t *testing.T) *Tree {
	t.Helper()
	tree, err := NewTree(t.TempDir(), 2, 8, zerolog.Nop())
	if err != nil {
		t.Fatalf("new tree: %v", err)
	}
	t.Cleanup(func() { tree.Close() })
	return tree
}

func TestTreeBasicInsertAndDeliver(t *testing.T) {
	tree := newTestTree(t)

	tree.Insert(1, 100)
	tree.Insert(1, 200)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	batch, err := tree.NextBatch(ctx)
	if err != nil {
		t.Fatalf("next batch: %v", err)
	}
	if batch.Src != 1 || len(batch.Neighbors) != 2 {
		t.Fatalf("got %+v", batch)
	}
	batch.Release()
}

func TestTreeOverflowToDiskAndBack(t *testing.T) {
	tree := newTestTree(t)

	// Cache capacity is 2; force eviction of src=1 by filling other slots.
	tree.Insert(1, 1)
	tree.Insert(2, 1)
	tree.Insert(3, 1) // should evict src=1 (LRU) to disk

	tree.mu.Lock()
	pending := tree.diskPending[1]
	tree.mu.Unlock()
	if !pending {
		t.Fatalf("expected src 1 to have overflowed to disk")
	}

	// More updates for src 1 arrive after the overflow.
	tree.Insert(1, 2)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var batch *struct{}
	_ = batch
	for {
		b, err := tree.NextBatch(ctx)
		if err != nil {
			t.Fatalf("next batch: %v", err)
		}
		if b.Src == 1 {
			if len(b.Neighbors) != 2 || b.Neighbors[0] != 1 || b.Neighbors[1] != 2 {
				t.Fatalf("got neighbors %v, want [1 2] (disk-then-cache order)", b.Neighbors)
			}
			b.Release()
			return
		}
		b.Release()
	}
}

func TestTreeForceFlushPersistsToBadger(t *testing.T) {
	tree := newTestTree(t)
	tree.Insert(9, 42)

	if err := tree.ForceFlush(); err != nil {
		t.Fatalf("force flush: %v", err)
	}

	tree.mu.Lock()
	pending := tree.diskPending[9]
	tree.mu.Unlock()
	if !pending {
		t.Fatalf("expected src 9 to be flushed to disk")
	}
}
