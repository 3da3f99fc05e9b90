package trace

import (
	"fmt"
	"io"

	"github.com/tagheap/tagheap/internal/allocator"
)

// Replayer drives a sequence of Ops against a Heap, tracking the Addr each
// tag currently resolves to so a trace file can name allocations
// symbolically instead of by raw offset.
type Replayer struct {
	heap    *allocator.Heap
	tags    map[string]allocator.Addr
	verify  bool
	out     io.Writer
	applied int
}

// NewReplayer returns a Replayer for heap. When verify is true, Check runs
// after every operation, not just explicit "check" lines, and the first
// violation aborts the replay. out receives one progress line per
// operation; pass io.Discard for silent replay.
func NewReplayer(heap *allocator.Heap, verify bool, out io.Writer) *Replayer {
	return &Replayer{
		heap:   heap,
		tags:   make(map[string]allocator.Addr),
		verify: verify,
		out:    out,
	}
}

// Run executes ops in order, stopping at the first error.
func (r *Replayer) Run(ops []Op) error {
	for _, op := range ops {
		if err := r.apply(op); err != nil {
			return fmt.Errorf("trace:%d: %w", op.Line, err)
		}

		if r.verify && op.Kind != Check {
			if err := r.heap.Check(); err != nil {
				return fmt.Errorf("trace:%d: invariant check after %s: %w", op.Line, op.Kind, err)
			}
		}

		r.applied++
	}

	return nil
}

// Applied reports how many operations completed successfully.
func (r *Replayer) Applied() int { return r.applied }

func (r *Replayer) apply(op Op) error {
	switch op.Kind {
	case Alloc:
		bp := r.heap.Alloc(op.Size)
		if bp == 0 {
			return fmt.Errorf("alloc %s %d: %v", op.Tag, op.Size, r.heap.LastError())
		}

		r.tags[op.Tag] = bp
		fmt.Fprintf(r.out, "alloc %s -> %d (%d bytes)\n", op.Tag, bp, op.Size)

		return nil

	case Free:
		bp, ok := r.tags[op.Tag]
		if !ok {
			return fmt.Errorf("free %s: unknown tag", op.Tag)
		}

		r.heap.Free(bp)
		delete(r.tags, op.Tag)
		fmt.Fprintf(r.out, "free %s (%d)\n", op.Tag, bp)

		return nil

	case Realloc:
		bp, ok := r.tags[op.Tag]
		if !ok {
			return fmt.Errorf("realloc %s: unknown tag", op.Tag)
		}

		newBp := r.heap.Realloc(bp, op.Size)
		if newBp == 0 && op.Size != 0 {
			return fmt.Errorf("realloc %s %d: %v", op.Tag, op.Size, r.heap.LastError())
		}

		if op.Size == 0 {
			delete(r.tags, op.Tag)
		} else {
			r.tags[op.Tag] = newBp
		}

		fmt.Fprintf(r.out, "realloc %s -> %d (%d bytes)\n", op.Tag, newBp, op.Size)

		return nil

	case Check:
		if err := r.heap.Check(); err != nil {
			return fmt.Errorf("check: %w", err)
		}

		fmt.Fprintf(r.out, "check ok\n")

		return nil

	default:
		return fmt.Errorf("unhandled operation kind %v", op.Kind)
	}
}
