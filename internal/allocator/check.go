package allocator

import (
	"fmt"

	heaperrors "github.com/tagheap/tagheap/internal/errors"
)

// Check verifies the invariants that must hold between every public call:
// the prologue is intact, and every block reachable from the free list is
// aligned, has matching header/footer, is actually marked free, and has
// PREV/NEXT links that stay within the heap. It reports the first
// violation it finds through the configured Diagnostics sink and returns
// it as a HeapError; it is a diagnostic for development and tests, not
// something to call on a hot path.
//
// The prologue is deliberately never inspected as if it were an ordinary
// free-list node: its own PREV/NEXT slots are sentinel storage, not a real
// block's linkage, and checking them against heap bounds would produce
// spurious failures on an otherwise-healthy heap.
func (h *Heap) Check() error {
	if h.provider == nil {
		return h.diagFail(heaperrors.InvalidArgument("Check", "heap not initialized"))
	}

	buf := h.provider.Bytes()

	hdr := readWord(buf, headerAddr(h.heapListp))
	if getSize(hdr) != Overhead || !getAlloc(hdr) {
		return h.diagFail(heaperrors.InvariantViolation(
			fmt.Sprintf("prologue header corrupt: size=%d alloc=%v", getSize(hdr), getAlloc(hdr))))
	}

	lo, hi := h.provider.Lo(), h.provider.Hi()
	seen := make(map[Addr]bool)

	for bp := h.freeListp; bp != h.heapListp; bp = nextFree(buf, bp) {
		if seen[bp] {
			return h.diagFail(heaperrors.InvariantViolation(
				fmt.Sprintf("cycle detected in free list at block %d", bp)))
		}

		seen[bp] = true

		if uint32(bp)%8 != 0 {
			return h.diagFail(heaperrors.InvariantViolation(
				fmt.Sprintf("block %d is not 8-byte aligned", bp)))
		}

		size := getSize(readWord(buf, headerAddr(bp)))
		footer := readWord(buf, footerAddr(bp, size))
		header := readWord(buf, headerAddr(bp))

		if header != footer {
			return h.diagFail(heaperrors.InvariantViolation(
				fmt.Sprintf("block %d header/footer mismatch: %#x != %#x", bp, header, footer)))
		}

		if getAlloc(header) {
			return h.diagFail(heaperrors.InvariantViolation(
				fmt.Sprintf("block %d is marked allocated but reachable from the free list", bp)))
		}

		prev, next := prevFree(buf, bp), nextFree(buf, bp)
		if prev != h.heapListp && (prev < lo || prev > hi) {
			return h.diagFail(heaperrors.InvariantViolation(
				fmt.Sprintf("block %d PREV link %d out of heap bounds", bp, prev)))
		}

		if next != h.heapListp && (next < lo || next > hi) {
			return h.diagFail(heaperrors.InvariantViolation(
				fmt.Sprintf("block %d NEXT link %d out of heap bounds", bp, next)))
		}
	}

	return nil
}

func (h *Heap) diagFail(err *heaperrors.HeapError) error {
	h.config.Diagnostics.Report("check: %s", err.Message)
	h.lastErr = err

	return err
}
