package gutter

import (
	"encoding/binary"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

func keyFor(src uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, src)
	return b
}

func encodeNeighbors(neighbors []uint64) []byte {
	b := make([]byte, 8*len(neighbors))
	for i, n := range neighbors {
		binary.BigEndian.PutUint64(b[i*8:], n)
	}
	return b
}

func decodeNeighbors(b []byte) []uint64 {
	neighbors := make([]uint64, len(b)/8)
	for i := range neighbors {
		neighbors[i] = binary.BigEndian.Uint64(b[i*8:])
	}
	return neighbors
}

// appendDisk appends neighbors to whatever overflow already exists for
// src, read-modify-write, inside a single badger transaction.
func (t *Tree) appendDisk(src uint64, neighbors []uint64) error {
	return t.db.Update(func(txn *badger.Txn) error {
		key := keyFor(src)
		var existing []uint64
		item, err := txn.Get(key)
		switch {
		case err == nil:
			if verr := item.Value(func(val []byte) error {
				existing = decodeNeighbors(val)
				return nil
			}); verr != nil {
				return fmt.Errorf("read existing overflow: %w", verr)
			}
		case err == badger.ErrKeyNotFound:
			// no existing overflow
		default:
			return fmt.Errorf("get existing overflow: %w", err)
		}
		combined := append(existing, neighbors...)
		return txn.Set(key, encodeNeighbors(combined))
	})
}

func (t *Tree) readDisk(src uint64) ([]uint64, error) {
	var neighbors []uint64
	err := t.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyFor(src))
		if err != nil {
			return fmt.Errorf("get overflow: %w", err)
		}
		return item.Value(func(val []byte) error {
			neighbors = decodeNeighbors(val)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return neighbors, nil
}

func (t *Tree) deleteDisk(src uint64) error {
	return t.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(keyFor(src))
	})
}
