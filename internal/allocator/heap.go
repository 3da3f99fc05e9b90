package allocator

import (
	"fmt"

	heaperrors "github.com/tagheap/tagheap/internal/errors"
	"github.com/tagheap/tagheap/internal/region"
)

// CHUNKSIZE is the default number of bytes requested from the provider
// whenever the heap must grow, unless a larger extension is needed to
// satisfy the allocation that triggered the growth. The extend-heap
// helper's own Overhead floor (see extendHeap) means the effective
// minimum growth is always at least Overhead bytes, regardless of this
// constant.
const CHUNKSIZE uint32 = 16

// Config configures a Heap. The zero value is not ready for use; build one
// with defaultConfig and the With* options.
type Config struct {
	// InitialChunk is CHUNKSIZE: the default heap-growth unit.
	InitialChunk uint32

	// MaxHeap bounds a default MemProvider's total size, when no explicit
	// Provider is supplied via WithProvider. Ignored otherwise.
	MaxHeap uint32

	// Diagnostics receives Check's invariant-violation reports.
	Diagnostics Diagnostics

	// Provider is the heap-region collaborator. If nil, Init constructs a
	// MemProvider bounded by MaxHeap.
	Provider region.Provider
}

// Option customizes a Config.
type Option func(*Config)

func defaultConfig() *Config {
	return &Config{
		InitialChunk: CHUNKSIZE,
		MaxHeap:      64 * 1024 * 1024,
		Diagnostics:  discardDiagnostics{},
	}
}

// WithInitialChunk overrides CHUNKSIZE.
func WithInitialChunk(n uint32) Option {
	return func(c *Config) { c.InitialChunk = n }
}

// WithMaxHeap bounds the size of the default MemProvider. Has no effect if
// WithProvider is also given.
func WithMaxHeap(n uint32) Option {
	return func(c *Config) { c.MaxHeap = n }
}

// WithDiagnostics installs the sink Check reports violations to.
func WithDiagnostics(d Diagnostics) Option {
	return func(c *Config) { c.Diagnostics = d }
}

// WithProvider installs an explicit heap-region provider, overriding the
// default MemProvider.
func WithProvider(p region.Provider) Option {
	return func(c *Config) { c.Provider = p }
}

// AllocatorStats reports cumulative and current allocator activity.
type AllocatorStats struct {
	TotalAllocated    uint64
	TotalFreed        uint64
	BytesInUse        uint64
	AllocationCount   uint64
	FreeCount         uint64
	ActiveAllocations int
}

// Heap is the public allocator: boundary-tagged blocks, an explicit
// doubly-linked free list, and first-fit placement, built on top of a
// region.Provider. The zero value is not ready for use; call NewHeap.
type Heap struct {
	config   *Config
	provider region.Provider

	heapListp Addr // prologue's payload address; also the forward-walk start
	freeListp Addr // current free-list head

	allocCount, freeCount       uint64
	totalAllocBytes, totalFreed uint64

	lastErr *heaperrors.HeapError
}

// NewHeap constructs a Heap and runs Init on it.
func NewHeap(opts ...Option) (*Heap, error) {
	h := &Heap{config: defaultConfig()}
	for _, opt := range opts {
		opt(h.config)
	}

	if err := h.Init(); err != nil {
		return nil, err
	}

	return h, nil
}

// Init (re)initializes the heap: a fresh provider (unless one was supplied
// via WithProvider), a prologue, an epilogue, and CHUNKSIZE bytes of
// initial free space. Calling Init again resets all allocator state.
func (h *Heap) Init() error {
	h.provider = h.config.Provider
	if h.provider == nil {
		h.provider = region.NewMemProvider(h.config.MaxHeap)
	}

	h.allocCount, h.freeCount, h.totalAllocBytes, h.totalFreed = 0, 0, 0, 0
	h.lastErr = nil

	// Exactly pad word + prologue block + epilogue header: the minimum
	// layout that leaves no unreachable slack between the epilogue and
	// the provider's current end. extendHeap depends on that — it treats
	// the provider's pre-extend end as the address of the stale epilogue
	// header it is about to overwrite, which only holds if nothing was
	// ever requested beyond the epilogue.
	start, ok := h.provider.Extend(Overhead + 2*wordSize)
	if !ok {
		return h.fail(heaperrors.OutOfMemory("Init"))
	}

	buf := h.provider.Bytes()

	// Padding word so the prologue's payload never lands on Addr(0), the
	// reserved null block pointer.
	writeWord(buf, start, 0)

	prologue := start + 2*wordSize
	writeTags(buf, prologue, Overhead, true)
	setPrevFree(buf, prologue, 0)
	setNextFree(buf, prologue, 0)
	writeWord(buf, headerAddr(nextBlockAddr(prologue, Overhead)), pack(0, true)) // epilogue

	h.heapListp = prologue
	h.freeListp = prologue

	if _, err := h.extendHeap(h.config.InitialChunk); err != nil {
		return h.fail(err)
	}

	return nil
}

// extendHeap grows the region by at least size bytes (rounded to an even
// number of words, floored at Overhead), installs the new free block's
// tags and a fresh epilogue, then coalesces the new block with its
// predecessor if that predecessor was itself free.
func (h *Heap) extendHeap(size uint32) (Addr, *heaperrors.HeapError) {
	size = alignExtension(size)
	if size < Overhead {
		size = Overhead
	}

	start, ok := h.provider.Extend(size)
	if !ok {
		return 0, heaperrors.OutOfMemory("extendHeap")
	}

	buf := h.provider.Bytes()
	// start is the provider's pre-extend end, one word past the stale
	// epilogue's header address — so bp (whose header lives at bp-wordSize)
	// is start itself, letting the new block's header reuse that word
	// instead of spending any of the size bytes just requested on it.
	bp := start

	writeTags(buf, bp, size, false)
	writeWord(buf, headerAddr(nextBlockAddr(bp, size)), pack(0, true)) // new epilogue

	return h.coalesce(bp), nil
}

// Alloc reserves a block of at least size bytes and returns its payload
// address, or the null Addr on failure. Alloc(0) returns null without
// touching the heap.
func (h *Heap) Alloc(size uint32) Addr {
	h.lastErr = nil

	if size == 0 {
		return 0
	}

	asize := adjustedSize(size)

	if bp, ok := h.findFit(asize); ok {
		h.place(bp, asize)
		h.recordAlloc(asize)

		return bp
	}

	grow := asize
	if h.config.InitialChunk > grow {
		grow = h.config.InitialChunk
	}

	bp, err := h.extendHeap(grow)
	if err != nil {
		h.fail(err)

		return 0
	}

	h.place(bp, asize)
	h.recordAlloc(asize)

	return bp
}

// Free releases a block previously returned by Alloc or Realloc. Free(0)
// is a no-op.
func (h *Heap) Free(bp Addr) {
	h.lastErr = nil

	if bp == 0 {
		return
	}

	buf := h.provider.Bytes()
	size := blockSize(buf, bp)

	writeTags(buf, bp, size, false)
	h.coalesce(bp)

	h.freeCount++
	h.totalFreed += uint64(size)
}

// Realloc resizes the block at bp to hold at least size bytes. size==0
// delegates to Free, bp==0 delegates to Alloc, an unchanged adjusted size
// is a no-op, a shrink too small to be worth splitting is a no-op, a
// worthwhile shrink splits the tail back into the free list, and a grow
// allocates fresh, copies, and frees the original.
func (h *Heap) Realloc(bp Addr, size uint32) Addr {
	if size == 0 {
		h.Free(bp)

		return 0
	}

	if bp == 0 {
		return h.Alloc(size)
	}

	h.lastErr = nil

	buf := h.provider.Bytes()
	old := blockSize(buf, bp)
	asize := adjustedSize(size)

	if old == asize {
		return bp
	}

	if asize <= old {
		if old-asize <= Overhead {
			return bp
		}

		writeTags(buf, bp, asize, true)

		tail := nextBlockAddr(bp, asize)
		writeTags(buf, tail, old-asize, false)
		h.coalesce(tail)

		return bp
	}

	newBp := h.Alloc(size)
	if newBp == 0 {
		return 0
	}

	buf = h.provider.Bytes() // Alloc may have grown the region.

	copyLen := size
	if old-2*wordSize < copyLen {
		copyLen = old - 2*wordSize
	}

	copy(buf[newBp:newBp+Addr(copyLen)], buf[bp:bp+Addr(copyLen)])
	h.Free(bp)

	return newBp
}

// LastError returns the HeapError recorded by the most recent failing
// call, or nil if the most recent Init, Alloc, Free or Realloc succeeded;
// a successful Check or Stats call leaves it unchanged. Alloc and Realloc
// always signal failure by returning the null Addr; LastError is
// additional detail for callers that want it.
func (h *Heap) LastError() *heaperrors.HeapError { return h.lastErr }

// Stats reports allocator activity, with BytesInUse and ActiveAllocations
// computed from a real forward walk of the heap rather than approximated
// from counters, since the boundary tags make that walk O(n) and exact.
func (h *Heap) Stats() AllocatorStats {
	buf := h.provider.Bytes()

	s := AllocatorStats{
		AllocationCount: h.allocCount,
		FreeCount:       h.freeCount,
		TotalAllocated:  h.totalAllocBytes,
		TotalFreed:      h.totalFreed,
	}

	for bp := h.heapListp; ; {
		size := blockSize(buf, bp)
		if size == 0 {
			break // epilogue
		}

		if bp != h.heapListp && isAllocated(buf, bp) {
			s.BytesInUse += uint64(size)
			s.ActiveAllocations++
		}

		bp = nextBlockAddr(bp, size)
	}

	return s
}

// Close releases the heap's provider, if it holds any resource that needs
// releasing (a MemProvider does not; a MappedProvider's OS mapping does).
func (h *Heap) Close() error {
	if h.provider == nil {
		return nil
	}

	return h.provider.Close()
}

func (h *Heap) recordAlloc(size uint32) {
	h.allocCount++
	h.totalAllocBytes += uint64(size)
}

func (h *Heap) fail(err *heaperrors.HeapError) error {
	h.lastErr = err

	return err
}

// String renders the heap's block chain for debugging, one line per block.
func (h *Heap) String() string {
	buf := h.provider.Bytes()
	out := ""

	for bp := h.heapListp; ; {
		size := blockSize(buf, bp)
		if size == 0 {
			out += fmt.Sprintf("epilogue@%d\n", bp)

			break
		}

		out += fmt.Sprintf("block@%d size=%d alloc=%v\n", bp, size, isAllocated(buf, bp))
		bp = nextBlockAddr(bp, size)
	}

	return out
}
