// Package allocator implements a boundary-tagged heap allocator: variable
// sized blocks carrying a redundant header/footer size+allocation tag,
// threaded into an explicit doubly-linked free list, serviced by a
// first-fit placement policy. This file holds the boundary-tag layer: pure
// byte-level reads and writes of header/footer words and the derivation of
// neighbor block addresses. Every helper here is O(1) arithmetic with no
// allocation of its own.
package allocator

import (
	"encoding/binary"

	"github.com/tagheap/tagheap/internal/region"
)

// Addr is this module's block pointer: an offset into the heap's backing
// byte store, exactly as region.Addr. Addr(0) is the null block pointer.
type Addr = region.Addr

const (
	// wordSize is the width of a header or footer tag word.
	wordSize = 4

	// linkWidth is the width of a free-list PREV/NEXT link as stored in a
	// free block's payload. The original boundary-tag layout reserves
	// pointer-width storage for each link; OVERHEAD is sized accordingly.
	linkWidth = 8

	// Overhead is the minimum block size: header + PREV link + NEXT link
	// + footer. Every block is at least this large so a free block always
	// has room for its free-list linkage.
	Overhead uint32 = wordSize + linkWidth + linkWidth + wordSize

	allocBit uint32 = 0x1
	sizeMask uint32 = ^uint32(0x7)
)

// pack encodes a block size and allocation state into a single tag word.
// size must already be a multiple of 8.
func pack(size uint32, alloc bool) uint32 {
	w := size
	if alloc {
		w |= allocBit
	}

	return w
}

// getSize extracts the block size from a tag word.
func getSize(word uint32) uint32 { return word & sizeMask }

// getAlloc extracts the allocation bit from a tag word.
func getAlloc(word uint32) bool { return word&allocBit != 0 }

func readWord(buf []byte, a Addr) uint32 {
	return binary.LittleEndian.Uint32(buf[a : a+wordSize])
}

func writeWord(buf []byte, a Addr, w uint32) {
	binary.LittleEndian.PutUint32(buf[a:a+wordSize], w)
}

func readLink(buf []byte, a Addr) Addr {
	return Addr(binary.LittleEndian.Uint64(buf[a : a+linkWidth]))
}

func writeLink(buf []byte, a Addr, v Addr) {
	binary.LittleEndian.PutUint64(buf[a:a+linkWidth], uint64(v))
}

// headerAddr returns the address of bp's header word.
func headerAddr(bp Addr) Addr { return bp - wordSize }

// footerAddr returns the address of a size-byte block's footer word,
// given its block pointer. The block spans [headerAddr(bp),
// headerAddr(bp)+size), so the footer — its last word — sits at
// headerAddr(bp)+size-wordSize, which is bp+size-2*wordSize. Callers that have just
// changed a block's size must pass the new size explicitly rather than
// re-deriving it from a (possibly stale) header.
func footerAddr(bp Addr, size uint32) Addr { return bp + Addr(size) - 2*wordSize }

// nextBlockAddr returns the block pointer of the block immediately
// following a size-byte block starting at bp.
func nextBlockAddr(bp Addr, size uint32) Addr { return bp + Addr(size) }

// blockSize reads bp's current size from its header.
func blockSize(buf []byte, bp Addr) uint32 {
	return getSize(readWord(buf, headerAddr(bp)))
}

// isAllocated reads bp's current allocation bit from its header.
func isAllocated(buf []byte, bp Addr) bool {
	return getAlloc(readWord(buf, headerAddr(bp)))
}

// prevBlockAddr derives the address-order predecessor of bp in O(1) by
// reading the previous block's footer, which sits in the four bytes
// immediately before bp's own header. This is the entire reason a footer
// is kept: without it, finding the previous block requires an O(n) forward
// scan from the start of the heap.
func prevBlockAddr(buf []byte, bp Addr) Addr {
	prevFooter := bp - 2*wordSize
	prevSize := getSize(readWord(buf, prevFooter))

	return bp - Addr(prevSize)
}

// writeTags writes matching header and footer words for a size-byte block
// starting at bp.
func writeTags(buf []byte, bp Addr, size uint32, alloc bool) {
	w := pack(size, alloc)
	writeWord(buf, headerAddr(bp), w)
	writeWord(buf, footerAddr(bp, size), w)
}

// alignUp rounds size up to the nearest multiple of alignment, which must
// be a power of two.
func alignUp(size, alignment uint32) uint32 {
	return (size + alignment - 1) &^ (alignment - 1)
}

// adjustedSize converts a user-requested payload size into the total block
// size to search/place for: the payload rounded up to 8 bytes plus header
// and footer, floored at Overhead so the result always has room for
// free-list linkage once freed.
func adjustedSize(size uint32) uint32 {
	a := alignUp(size, 8) + 2*wordSize
	if a < Overhead {
		a = Overhead
	}

	return a
}

// alignExtension rounds a requested extension size up to an even number of
// words, preserving 8-byte alignment of the heap's end.
func alignExtension(n uint32) uint32 {
	words := (n + wordSize - 1) / wordSize
	if words%2 != 0 {
		words++
	}

	return words * wordSize
}
