package allocator

import "testing"

func TestPackAndUnpack(t *testing.T) {
	cases := []struct {
		size  uint32
		alloc bool
	}{
		{24, true},
		{24, false},
		{4096, true},
		{0, true},
	}

	for _, c := range cases {
		w := pack(c.size, c.alloc)
		if got := getSize(w); got != c.size {
			t.Fatalf("pack(%d,%v): getSize = %d, want %d", c.size, c.alloc, got, c.size)
		}

		if got := getAlloc(w); got != c.alloc {
			t.Fatalf("pack(%d,%v): getAlloc = %v, want %v", c.size, c.alloc, got, c.alloc)
		}
	}
}

func TestAlignUp(t *testing.T) {
	cases := []struct{ size, alignment, want uint32 }{
		{0, 8, 0},
		{1, 8, 8},
		{8, 8, 8},
		{9, 8, 16},
		{17, 8, 24},
	}

	for _, c := range cases {
		if got := alignUp(c.size, c.alignment); got != c.want {
			t.Fatalf("alignUp(%d,%d) = %d, want %d", c.size, c.alignment, got, c.want)
		}
	}
}

func TestAdjustedSize_FloorsAtOverhead(t *testing.T) {
	cases := []struct{ size, want uint32 }{
		{0, Overhead},
		{1, Overhead},
		{16, Overhead},
		{17, 32},
		{64, 72},
	}

	for _, c := range cases {
		if got := adjustedSize(c.size); got != c.want {
			t.Fatalf("adjustedSize(%d) = %d, want %d", c.size, got, c.want)
		}
	}
}

func TestAlignExtension_RoundsToEvenWords(t *testing.T) {
	cases := []struct{ n, want uint32 }{
		{1, 8},
		{4, 8},
		{8, 8},
		{9, 16},
		{16, 16},
	}

	for _, c := range cases {
		if got := alignExtension(c.n); got != c.want {
			t.Fatalf("alignExtension(%d) = %d, want %d", c.n, got, c.want)
		}
	}
}

func TestWriteTagsAndNeighborAddresses(t *testing.T) {
	buf := make([]byte, 64)

	const bp Addr = 8
	const size uint32 = 24

	writeTags(buf, bp, size, true)

	if got := blockSize(buf, bp); got != size {
		t.Fatalf("blockSize = %d, want %d", got, size)
	}

	if !isAllocated(buf, bp) {
		t.Fatalf("isAllocated = false, want true")
	}

	if got := readWord(buf, footerAddr(bp, size)); getSize(got) != size || !getAlloc(got) {
		t.Fatalf("footer word = %#x, want size=%d alloc=true", got, size)
	}

	next := nextBlockAddr(bp, size)
	if want := bp + Addr(size); next != want {
		t.Fatalf("nextBlockAddr = %d, want %d", next, want)
	}

	writeTags(buf, next, 16, false)

	if got := prevBlockAddr(buf, next); got != bp {
		t.Fatalf("prevBlockAddr(next) = %d, want %d", got, bp)
	}
}
