package supernode

import (
	"fmt"
	"io"

	"github.com/nodestream/graphcc/sketch"
)

// WriteTo writes sn's K sketch records, concatenated in level order, to
// w. Each record is opaque to the caller — written and read by the
// sketch primitive itself — and the supernode record format is just
// their concatenation.
func (sn *Supernode) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for level, s := range sn.Levels {
		data, err := s.MarshalBinary()
		if err != nil {
			return total, fmt.Errorf("supernode %d: marshal level %d: %w", sn.ID, level, err)
		}
		n, err := w.Write(data)
		total += int64(n)
		if err != nil {
			return total, fmt.Errorf("supernode %d: write level %d: %w", sn.ID, level, err)
		}
	}
	return total, nil
}

// ReadFrom reads exactly sn.K() sketch records from r into sn's existing
// levels, in order. sn must already have been constructed with New so
// the level seeds are in place.
func (sn *Supernode) ReadFrom(r io.Reader) (int64, error) {
	var total int64
	buf := make([]byte, sketch.Size)
	for level, s := range sn.Levels {
		n, err := io.ReadFull(r, buf)
		total += int64(n)
		if err != nil {
			return total, fmt.Errorf("supernode %d: read level %d: %w", sn.ID, level, err)
		}
		if err := s.UnmarshalBinary(buf); err != nil {
			return total, fmt.Errorf("supernode %d: unmarshal level %d: %w", sn.ID, level, err)
		}
	}
	return total, nil
}

// ByteSize is the number of bytes one supernode record occupies on disk.
func ByteSize(k int) int64 {
	return int64(k) * int64(sketch.Size)
}
