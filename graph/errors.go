package graph

import (
	"errors"

	"github.com/nodestream/graphcc/boruvka"
)

// ErrMultipleGraphs is returned by New when another Graph instance is
// already live — the sketch primitive's configuration is process-wide,
// so only one engine may run at a time.
var ErrMultipleGraphs = errors.New("graph: another graph instance is already live")

// ErrUpdateLocked is returned by Update when a query holds the ingest
// lock (between drain and restore/unlock).
var ErrUpdateLocked = errors.New("graph: ingest is locked for a query in progress")

// ErrOutOfQueries is the boruvka driver's exhaustion error, re-exported
// so callers of this package never need to import boruvka directly.
var ErrOutOfQueries = boruvka.ErrOutOfQueries

// ErrNoGoodBucket marks a sketch-level failure surfaced from the
// primitive — in this engine, a supernode record that failed to
// deserialize cleanly from a binary load. Callers are expected to
// tolerate a low rate of these.
var ErrNoGoodBucket = errors.New("graph: no good bucket")
