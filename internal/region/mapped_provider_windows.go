//go:build windows

package region

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// MappedProvider is a Provider backed by a single VirtualAlloc reservation,
// the Windows counterpart to the unix mmap-backed implementation.
type MappedProvider struct {
	mem       []byte
	addr      uintptr
	committed uint32
	size      uint32
}

// NewMappedProvider reserves and commits maxBytes bytes of address space.
// The mapping is released by Close.
func NewMappedProvider(maxBytes int) (*MappedProvider, error) {
	addr, err := windows.VirtualAlloc(0, uintptr(maxBytes), windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return nil, err
	}

	mem := unsafe.Slice((*byte)(unsafe.Pointer(addr)), maxBytes)

	return &MappedProvider{mem: mem, addr: addr, size: uint32(maxBytes)}, nil
}

func (p *MappedProvider) Lo() Addr { return 0 }

func (p *MappedProvider) Hi() Addr {
	if p.committed == 0 {
		return 0
	}

	return Addr(p.committed - 1)
}

func (p *MappedProvider) Extend(n uint32) (Addr, bool) {
	if n == 0 {
		return 0, false
	}

	if p.committed+n > p.size {
		return 0, false
	}

	start := Addr(p.committed)
	p.committed += n

	return start, true
}

func (p *MappedProvider) Bytes() []byte { return p.mem[:p.committed] }

func (p *MappedProvider) Close() error {
	if p.addr == 0 {
		return nil
	}

	err := windows.VirtualFree(p.addr, 0, windows.MEM_RELEASE)
	p.addr = 0
	p.mem = nil

	return err
}
