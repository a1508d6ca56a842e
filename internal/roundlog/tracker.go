// Package roundlog records one JSON line per Borůvka-round decision:
// a merge, a retry, or a resolved-to-zero component.
package roundlog

import (
	"encoding/json"
	"fmt"
	"os"
)

// Action is the outcome a single representative had in a round.
type Action string

const (
	ActionMerge Action = "merge"
	ActionRetry Action = "retry"
	ActionZero  Action = "zero"
)

// Event is one representative's outcome within one Borůvka round.
type Event struct {
	Round          int    `json:"round"`
	Representative uint64 `json:"representative"`
	Action         Action `json:"action"`
	MergedInto     uint64 `json:"merged_into,omitempty"`
}

// Tracker writes Events as newline-delimited JSON to a file. A nil
// *Tracker is safe to call methods on — tracking is an optional
// diagnostic, not load-bearing.
type Tracker struct {
	file    *os.File
	encoder *json.Encoder
}

// New creates a tracker writing to filename, truncating any existing
// file. A non-nil error means the caller should fall back to no
// tracking rather than fail the query outright.
func New(filename string) (*Tracker, error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("roundlog: create %s: %w", filename, err)
	}
	return &Tracker{file: f, encoder: json.NewEncoder(f)}, nil
}

// Log records one event. An encoding failure is returned — callers that
// care about the round log (most don't; it's a diagnostic) can check it,
// but a Borůvka round must never abort because the tracker faltered.
func (t *Tracker) Log(ev Event) error {
	if t == nil {
		return nil
	}
	if err := t.encoder.Encode(ev); err != nil {
		return fmt.Errorf("roundlog: encode: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file. Safe to call on a nil
// *Tracker.
func (t *Tracker) Close() error {
	if t == nil || t.file == nil {
		return nil
	}
	if err := t.file.Sync(); err != nil {
		t.file.Close()
		return fmt.Errorf("roundlog: sync: %w", err)
	}
	return t.file.Close()
}
