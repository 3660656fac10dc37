// Package mmapprovider implements slab.PageProvider directly on top of
// mmap(2)/munmap(2), the Go analogue of the MmapPageProvider test
// fixture the original slab allocator's test suite used as its
// reference page source.
package mmapprovider

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	"mazarinheap/slab"
)

// Provider hands out slab.PageSize-aligned backing pages. Each page is
// carved out of a mmap region twice the page size so the aligned
// sub-region can always be found regardless of where the OS placed
// the mapping; the surrounding slack is kept mapped (not used) and
// released together with the page on ReleasePage.
//
// Not safe for concurrent use.
type Provider struct {
	regions map[uintptr]rawRegion
}

type rawRegion struct {
	addr uintptr
	len  int
}

// New returns an empty Provider.
func New() *Provider {
	return &Provider{regions: make(map[uintptr]rawRegion)}
}

// AllocatedCount returns how many pages this provider currently has
// outstanding (allocated but not yet released).
func (p *Provider) AllocatedCount() int { return len(p.regions) }

// AllocatePage maps a fresh region and returns the PageSize-aligned
// page carved out of it.
func (p *Provider) AllocatePage() (slab.Page, error) {
	rawLen := int(slab.PageSize * 2)
	data, err := unix.Mmap(-1, 0, rawLen, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return slab.Page{}, fmt.Errorf("mmapprovider: mmap: %w", err)
	}

	raw := uintptr(unsafe.Pointer(&data[0]))
	aligned := (raw + slab.PageSize - 1) &^ uintptr(slab.PageSize-1)

	page := slab.PageAt(aligned)
	page.ClearMetadata()
	p.regions[aligned] = rawRegion{addr: raw, len: rawLen}
	return page, nil
}

// ReleasePage unmaps the region backing p.
func (p *Provider) ReleasePage(page slab.Page) error {
	r, ok := p.regions[page.StartAddress()]
	if !ok {
		return fmt.Errorf("mmapprovider: page %#x was not allocated by this provider", page.StartAddress())
	}
	delete(p.regions, page.StartAddress())

	data := unsafe.Slice((*byte)(unsafe.Pointer(r.addr)), r.len)
	if err := unix.Munmap(data); err != nil {
		return fmt.Errorf("mmapprovider: munmap: %w", err)
	}
	return nil
}
