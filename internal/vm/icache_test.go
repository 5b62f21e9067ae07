package vm

import "testing"

func TestICache_MissThenHit(t *testing.T) {
	c := NewICache()

	if _, ok := c.Lookup(0x1000); ok {
		t.Fatal("expected a miss on an empty cache")
	}

	want := Decoded{Op: ADDI, Rd: 5, Rs1: 6}
	c.Fill(0x1000, want)

	got, ok := c.Lookup(0x1000)
	if !ok {
		t.Fatal("expected a hit after Fill")
	}

	if got != want {
		t.Fatalf("Lookup = %+v, want %+v", got, want)
	}
}

func TestICache_TagMismatchOnAliasedIndexMisses(t *testing.T) {
	c := NewICache()

	// pc and pc+icacheSize*4 share the same direct-mapped index but have
	// different tags, so filling one must not satisfy a lookup of the other.
	pc1 := Word(0x1000)
	pc2 := pc1 + icacheSize*4

	c.Fill(pc1, Decoded{Op: ADDI})

	if _, ok := c.Lookup(pc2); ok {
		t.Fatal("expected aliased index with a different tag to miss")
	}
}

func TestICache_InvalidateClearsAllEntries(t *testing.T) {
	c := NewICache()

	c.Fill(0x1000, Decoded{Op: ADDI})
	c.Fill(0x2000, Decoded{Op: ADD})

	c.Invalidate()

	if _, ok := c.Lookup(0x1000); ok {
		t.Fatal("expected a miss after Invalidate")
	}

	if _, ok := c.Lookup(0x2000); ok {
		t.Fatal("expected a miss after Invalidate")
	}
}
