package trace

import (
	"io"
	"strings"
	"testing"

	"github.com/tagheap/tagheap/internal/allocator"
)

func TestReplayer_RunsFullTrace(t *testing.T) {
	h, err := allocator.NewHeap()
	if err != nil {
		t.Fatalf("NewHeap: %v", err)
	}
	defer h.Close()

	ops, err := Parse(strings.NewReader(`# heapcheck-trace v1.0.0
alloc a 64
alloc b 64
free a
realloc b 128
check
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	r := NewReplayer(h, true, io.Discard)
	if err := r.Run(ops); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if r.Applied() != len(ops) {
		t.Fatalf("Applied() = %d, want %d", r.Applied(), len(ops))
	}
}

func TestReplayer_UnknownTagFails(t *testing.T) {
	h, err := allocator.NewHeap()
	if err != nil {
		t.Fatalf("NewHeap: %v", err)
	}
	defer h.Close()

	ops, err := Parse(strings.NewReader("free ghost\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	r := NewReplayer(h, false, io.Discard)
	if err := r.Run(ops); err == nil {
		t.Fatalf("expected Run to fail on an unknown tag")
	}
}
