package difftext

import "testing"

func TestDiffApplyRoundTrip(t *testing.T) {
	cases := []struct{ remote, local string }{
		{"hello world", "hello there"},
		{"", "fresh buffer"},
		{"same", "same"},
		{"The quick brown fox", "The slow brown fox jumps"},
	}
	for _, c := range cases {
		ops := Diff(c.remote, c.local, 0)
		got := Apply(c.remote, ops)
		if got != c.local {
			t.Fatalf("Diff/Apply round trip: remote=%q local=%q got=%q ops=%v", c.remote, c.local, got, ops)
		}
	}
}

func TestDiffIdenticalProducesNoOps(t *testing.T) {
	ops := Diff("unchanged", "unchanged", 0)
	if len(ops) != 0 {
		t.Fatalf("expected no ops for identical text, got %v", ops)
	}
}

func TestDiffChunksLongInserts(t *testing.T) {
	long := make([]byte, 100)
	for i := range long {
		long[i] = 'a'
	}
	ops := Diff("", string(long), 10)
	for _, op := range ops {
		if len(op.Insert) > 10 {
			t.Fatalf("chunk exceeded max size: len=%d", len(op.Insert))
		}
	}
	if got := Apply("", ops); got != string(long) {
		t.Fatalf("chunked apply mismatch: got %q", got)
	}
}
