//go:build unix

package region

import "golang.org/x/sys/unix"

// MappedProvider is a Provider backed by a single anonymous memory mapping
// reserved up front via mmap, so every address it ever hands out stays
// valid for the mapping's lifetime — growing the region only advances a
// "committed" watermark within memory that is already reserved. This is
// the real-OS counterpart to MemProvider.
type MappedProvider struct {
	mem       []byte
	committed uint32
}

// NewMappedProvider reserves an anonymous mapping of maxBytes bytes. The
// mapping is released by Close.
func NewMappedProvider(maxBytes int) (*MappedProvider, error) {
	mem, err := unix.Mmap(-1, 0, maxBytes, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, err
	}

	return &MappedProvider{mem: mem}, nil
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

	if p.committed+n > uint32(len(p.mem)) {
		return 0, false
	}

	start := Addr(p.committed)
	p.committed += n

	return start, true
}

func (p *MappedProvider) Bytes() []byte { return p.mem[:p.committed] }

func (p *MappedProvider) Close() error {
	if p.mem == nil {
		return nil
	}

	err := unix.Munmap(p.mem)
	p.mem = nil

	return err
}
