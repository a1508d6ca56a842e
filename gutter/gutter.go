// Package gutter implements the write-behind buffering subsystem that
// groups stream updates by source vertex before handing batches to the
// worker pool.
package gutter

import (
	"context"
	"errors"
)

// Batch is a group of neighbor updates accumulated against one source
// vertex since its last batch was drained.
type Batch struct {
	Src       uint64
	Neighbors []uint64

	// release, if set, must be called once the batch has been fully
	// applied to the corresponding supernode. It is how an
	// implementation enforces an at-most-one-batch-per-source-in-flight
	// guarantee without assuming the consumer applies a batch
	// synchronously before requesting the next one.
	release func()
}

// Release signals that this batch has been fully applied and the
// source vertex may be handed out again. Safe to call on a zero-value
// Batch (e.g. one a caller constructed for a test double).
func (b Batch) Release() {
	if b.release != nil {
		b.release()
	}
}

// ErrClosed is returned by NextBatch once the gutter system has been
// closed.
var ErrClosed = errors.New("gutter: closed")

// System is the interface the engine's ingest and worker paths consume.
// Implementations must guarantee that batches for a given source are
// delivered in arrival order and that at most one batch per source is
// ever in flight across all consumers at once — the worker pool depends
// on this to mutate supernodes without locking them.
type System interface {
	// Insert buffers one (src, neighbor) update. It may block briefly
	// on backpressure but never on unrelated I/O.
	Insert(src, neighbor uint64) error

	// ForceFlush blocks until every buffered update is visible to a
	// subsequent NextBatch call.
	ForceFlush() error

	// NextBatch blocks until a batch is available, ctx is done, or the
	// system is closed (returning ErrClosed).
	NextBatch(ctx context.Context) (Batch, error)

	// Close releases resources. After Close, NextBatch may return
	// ErrClosed while batches are still buffered; those batches are not
	// drained. Insert keeps returning nil after Close.
	Close() error
}
