package roundlog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestLogWritesNewlineDelimitedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rounds.ndjson")
	tr, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	events := []Event{
		{Round: 0, Representative: 1, Action: ActionMerge, MergedInto: 2},
		{Round: 0, Representative: 3, Action: ActionZero},
		{Round: 1, Representative: 1, Action: ActionRetry},
	}
	for _, ev := range events {
		if err := tr.Log(ev); err != nil {
			t.Fatalf("Log(%+v): %v", ev, err)
		}
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	var got []Event
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var ev Event
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			t.Fatalf("unmarshal line %q: %v", sc.Text(), err)
		}
		got = append(got, ev)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(got) != len(events) {
		t.Fatalf("got %d events, want %d", len(got), len(events))
	}
	for i, want := range events {
		if got[i] != want {
			t.Fatalf("event %d: got %+v, want %+v", i, got[i], want)
		}
	}
}

func TestNilTrackerIsSafeToUse(t *testing.T) {
	var tr *Tracker
	if err := tr.Log(Event{Round: 0, Representative: 1, Action: ActionMerge}); err != nil {
		t.Fatalf("Log on nil tracker: %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("Close on nil tracker: %v", err)
	}
}

func TestNewOverwritesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rounds.ndjson")
	if err := os.WriteFile(path, []byte("stale content\n"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	tr, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := tr.Log(Event{Round: 0, Representative: 5, Action: ActionZero}); err != nil {
		t.Fatalf("Log: %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data[:5]) == "stale" {
		t.Fatalf("New did not truncate the existing file")
	}
}
