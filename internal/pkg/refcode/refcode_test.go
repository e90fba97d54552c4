package refcode

import (
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := New()
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		if len(code) != Length {
			t.Fatalf("len = %d, want %d", len(code), Length)
		}
		for _, c := range code {
			if !strings.ContainsRune(Alphabet, c) {
				t.Fatalf("code %q contains %q outside the alphabet", code, c)
			}
		}
		seen[code] = true
	}
	if len(seen) < 99 {
		t.Fatalf("too many collisions: %d unique of 100", len(seen))
	}
}
