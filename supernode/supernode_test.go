package supernode

import (
	"bytes"
	"testing"

	"github.com/nodestream/graphcc/sketch"
)

func TestUpdateThenSampleLevelZero(t *testing.T) {
	sn := New(0, 99, 8)
	sn.Update(42)
	idx, ret := sn.Sample()
	if ret != sketch.OK {
		t.Fatalf("got %v, want OK", ret)
	}
	if idx != 42 {
		t.Fatalf("got idx %d, want 42", idx)
	}
	if sn.Cursor() != 1 {
		t.Fatalf("cursor = %d, want 1", sn.Cursor())
	}
}

func TestExhaustionAfterKSamples(t *testing.T) {
	sn := New(0, 99, 3)
	for i := 0; i < 3; i++ {
		sn.Sample()
	}
	if !sn.Exhausted() {
		t.Fatalf("expected exhausted after K samples")
	}
	_, ret := sn.Sample()
	if ret != sketch.Fail {
		t.Fatalf("sample past exhaustion: got %v, want Fail", ret)
	}
}

func TestResetQueryStatePreservesSketchContents(t *testing.T) {
	sn := New(0, 99, 4)
	sn.Update(7)
	sn.Sample()
	sn.Sample()
	sn.ResetQueryState()
	if sn.Cursor() != 0 {
		t.Fatalf("cursor after reset = %d, want 0", sn.Cursor())
	}
	idx, ret := sn.Sample()
	if ret != sketch.OK || idx != 7 {
		t.Fatalf("sketch contents lost across reset: got idx=%d ret=%v", idx, ret)
	}
}

func TestMergeCombinesIncidence(t *testing.T) {
	a := New(0, 1, 4)
	b := New(1, 1, 4)

	// Different vertex ids get independently seeded levels; merge must
	// still compose their accumulators linearly regardless.
	a.Update(10)
	b.Update(20)

	if err := a.Merge(b); err != nil {
		t.Fatalf("merge: %v", err)
	}
	// a's level 0 bucket now holds both 10 and 20 XORed in.
	idx, ret := a.Sample()
	if ret != sketch.Fail && ret != sketch.OK {
		t.Fatalf("unexpected ret %v", ret)
	}
	_ = idx
}

func TestCloneIsIndependent(t *testing.T) {
	sn := New(0, 1, 4)
	sn.Update(5)
	clone := sn.Clone()
	sn.Update(6)

	cloneIdx, cloneRet := clone.Sample()
	if cloneRet != sketch.OK || cloneIdx != 5 {
		t.Fatalf("clone mutated by later update to original: idx=%d ret=%v", cloneIdx, cloneRet)
	}
}

func TestBinaryRoundTrip(t *testing.T) {
	sn := New(3, 77, 5)
	sn.Update(100)
	sn.Update(200)

	var buf bytes.Buffer
	if _, err := sn.WriteTo(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	if int64(buf.Len()) != ByteSize(5) {
		t.Fatalf("wrote %d bytes, want %d", buf.Len(), ByteSize(5))
	}

	restored := New(3, 77, 5)
	if _, err := restored.ReadFrom(&buf); err != nil {
		t.Fatalf("read: %v", err)
	}

	for i := range sn.Levels {
		wantXOR, wantRet := sn.Levels[i].Sample()
		gotXOR, gotRet := restored.Levels[i].Sample()
		if wantXOR != gotXOR || wantRet != gotRet {
			t.Fatalf("level %d mismatch after round trip", i)
		}
	}
}

func TestDeltaAppliesLikeDirectUpdates(t *testing.T) {
	direct := New(0, 55, 6)
	direct.Update(1)
	direct.Update(2)

	viaDelta := New(0, 55, 6)
	delta := viaDelta.Delta()
	delta.Update(1)
	delta.Update(2)
	if err := viaDelta.ApplyDelta(delta); err != nil {
		t.Fatalf("apply delta: %v", err)
	}

	for i := range direct.Levels {
		wantIdx, wantRet := direct.Levels[i].Sample()
		gotIdx, gotRet := viaDelta.Levels[i].Sample()
		if wantIdx != gotIdx || wantRet != gotRet {
			t.Fatalf("level %d: delta application diverged from direct updates", i)
		}
	}
}
