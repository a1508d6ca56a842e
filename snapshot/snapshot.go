// Package snapshot implements the two backends a resumable query can
// use to preserve supernode state across a Borůvka run: an in-memory
// clone, or a backup file on disk. Both snapshot exactly the
// representative set at the moment Take is called, and restore must be
// driven by that same ordered id list.
package snapshot

import "github.com/nodestream/graphcc/supernode"

// Store snapshots a set of supernodes before a resumable query mutates
// them, and restores them afterwards.
type Store interface {
	// Take clones supernodes[r] for every r in reps, in order. reps must
	// be exactly the representative set at the start of the query.
	Take(reps []uint64, supernodes []*supernode.Supernode) error

	// Restore replaces supernodes[r] with the snapshot taken for r, for
	// every r in the same order Take was given, then releases the
	// snapshot's own resources.
	Restore(supernodes []*supernode.Supernode) error
}
