package allocator

// findFit performs a first-fit scan of the free list starting at
// h.freeListp, returning the first block whose size is at least size.
// Traversal terminates when it reaches a node whose allocation bit is set
// — the prologue sentinel parked at the tail of every free-list chain —
// rather than a null terminator. O(n) in the number of free blocks.
func (h *Heap) findFit(size uint32) (Addr, bool) {
	buf := h.provider.Bytes()

	for bp := h.freeListp; !isAllocated(buf, bp); bp = nextFree(buf, bp) {
		if blockSize(buf, bp) >= size {
			return bp, true
		}
	}

	return 0, false
}

// place consumes a free block of at least size bytes, splitting the tail
// back into the free list when the remainder is large enough to be useful
// on its own. Precondition: bp is free and blockSize(bp) >= size.
//
// Ordering is load-bearing: the front piece's header/footer must be
// overwritten, and bp unlinked, before the tail's address is derived and
// its own header/footer are written — nextBlockAddr needs the (now final)
// front-piece size, and unlinking bp must happen before its PREV/NEXT
// payload bytes could be disturbed by anything touching the tail.
func (h *Heap) place(bp Addr, size uint32) {
	buf := h.provider.Bytes()
	total := blockSize(buf, bp)

	if total-size >= Overhead {
		writeTags(buf, bp, size, true)
		h.removeBlock(bp)

		tail := nextBlockAddr(bp, size)
		writeTags(buf, tail, total-size, false)
		h.coalesce(tail)

		return
	}

	writeTags(buf, bp, total, true)
	h.removeBlock(bp)
}

// isPrevAllocated reports whether the address-order predecessor of bp is
// allocated. A predecessor that resolves back to bp itself is a
// degenerate case that cannot occur given the prologue always precedes
// every real block, but is treated as "allocated" defensively rather than
// risking a block coalescing with itself.
func isPrevAllocated(buf []byte, bp Addr) bool {
	p := prevBlockAddr(buf, bp)
	if p == bp {
		return true
	}

	return isAllocated(buf, p)
}

// coalesce merges bp — whose header/footer already mark it free but which
// is not yet linked into the free list — with any free address-order
// neighbors, then pushes the resulting block onto the front of the free
// list and returns its (possibly moved) block pointer.
func (h *Heap) coalesce(bp Addr) Addr {
	buf := h.provider.Bytes()
	size := blockSize(buf, bp)

	prevAlloc := isPrevAllocated(buf, bp)
	next := nextBlockAddr(bp, size)
	nextAlloc := isAllocated(buf, next)

	switch {
	case prevAlloc && nextAlloc:
		// No merge.

	case prevAlloc && !nextAlloc:
		size += blockSize(buf, next)
		h.removeBlock(next)
		writeTags(buf, bp, size, false)

	case !prevAlloc && nextAlloc:
		prev := prevBlockAddr(buf, bp)
		size += blockSize(buf, prev)
		h.removeBlock(prev)
		bp = prev
		writeTags(buf, bp, size, false)

	default: // both free
		prev := prevBlockAddr(buf, bp)
		size += blockSize(buf, prev) + blockSize(buf, next)
		h.removeBlock(prev)
		h.removeBlock(next)
		bp = prev
		writeTags(buf, bp, size, false)
	}

	h.insertAtFront(bp)

	return bp
}
