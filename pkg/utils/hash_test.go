package utils

import "testing"

func TestHashStringStable(t *testing.T) {
	a := HashString("cancel order")
	b := HashString("cancel order")
	if a != b {
		t.Fatalf("hash not stable: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
}

func TestHashTokensBoundaries(t *testing.T) {
	if HashTokens([]string{"ab", "c"}) == HashTokens([]string{"a", "bc"}) {
		t.Fatal("token boundaries must change the hash")
	}
	if HashTokens(nil) != HashTokens([]string{}) {
		t.Fatal("nil and empty sequences should hash the same")
	}
}
