package region

import "testing"

func TestMemProvider_ExtendGrowsAndReturnsOldEnd(t *testing.T) {
	p := NewMemProvider(1024)

	a, ok := p.Extend(16)
	if !ok {
		t.Fatalf("Extend(16) failed")
	}

	if a != 0 {
		t.Fatalf("first Extend returned %d, want 0", a)
	}

	b, ok := p.Extend(8)
	if !ok {
		t.Fatalf("Extend(8) failed")
	}

	if b != 16 {
		t.Fatalf("second Extend returned %d, want 16", b)
	}

	if got := len(p.Bytes()); got != 24 {
		t.Fatalf("Bytes() length = %d, want 24", got)
	}

	if p.Hi() != Addr(23) {
		t.Fatalf("Hi() = %d, want 23", p.Hi())
	}
}

func TestMemProvider_ExtendRefusesPastLimit(t *testing.T) {
	p := NewMemProvider(16)

	if _, ok := p.Extend(16); !ok {
		t.Fatalf("Extend(16) should fit exactly at the limit")
	}

	if _, ok := p.Extend(1); ok {
		t.Fatalf("Extend(1) should be refused once the limit is reached")
	}
}

func TestMemProvider_ExtendZeroIsRejected(t *testing.T) {
	p := NewMemProvider(1024)

	if _, ok := p.Extend(0); ok {
		t.Fatalf("Extend(0) should be rejected")
	}
}

func TestMemProvider_EmptyHi(t *testing.T) {
	p := NewMemProvider(1024)

	if p.Hi() != 0 {
		t.Fatalf("Hi() on empty provider = %d, want 0", p.Hi())
	}
}
