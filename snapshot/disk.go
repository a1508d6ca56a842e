package snapshot

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nodestream/graphcc/supernode"
)

// Disk serializes representative supernodes contiguously to a fixed
// backup file: the same supernode record shape as the binary graph
// format, written in reps order with no index.
//
// Take and Restore return wrapped errors on I/O failure rather than
// terminating the process — callers decide how to react, the same as
// every other I/O path in this module.
type Disk struct {
	path string
	ids  []uint64
}

// NewDisk returns a Disk store backed by a fixed file under dir.
func NewDisk(dir string) *Disk {
	return &Disk{path: filepath.Join(dir, "backup.bin")}
}

// Take writes supernodes[r] for every r in reps, in order, to the
// backup file.
func (d *Disk) Take(reps []uint64, supernodes []*supernode.Supernode) error {
	if err := os.MkdirAll(filepath.Dir(d.path), 0o755); err != nil {
		return fmt.Errorf("snapshot: create backup directory: %w", err)
	}
	f, err := os.Create(d.path)
	if err != nil {
		return fmt.Errorf("snapshot: create backup file %s: %w", d.path, err)
	}
	defer f.Close()

	for _, r := range reps {
		if r >= uint64(len(supernodes)) {
			return fmt.Errorf("snapshot: representative %d out of range", r)
		}
		if _, err := supernodes[r].WriteTo(f); err != nil {
			return fmt.Errorf("snapshot: write backup for vertex %d: %w", r, err)
		}
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("snapshot: sync backup file: %w", err)
	}
	d.ids = append([]uint64(nil), reps...)
	return nil
}

// Restore reads the backup file back in the same order Take wrote it,
// replacing supernodes[id] one at a time, then removes the file.
func (d *Disk) Restore(supernodes []*supernode.Supernode) error {
	f, err := os.Open(d.path)
	if err != nil {
		return fmt.Errorf("snapshot: open backup file %s: %w", d.path, err)
	}
	defer f.Close()

	for _, id := range d.ids {
		if _, err := supernodes[id].ReadFrom(f); err != nil {
			return fmt.Errorf("snapshot: restore backup for vertex %d: %w", id, err)
		}
	}

	d.ids = nil
	if err := os.Remove(d.path); err != nil {
		return fmt.Errorf("snapshot: remove backup file: %w", err)
	}
	return nil
}
