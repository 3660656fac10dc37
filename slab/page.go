package slab

import (
	"unsafe"

	"mazarinheap/bitfield"
)

// PageSize is the fixed size of a backing page handed to the
// allocator by the page provider.
const PageSize = 8192

// CacheLineSize is the assumed cache line width on the default target.
const CacheLineSize = 64

// pageMeta is laid out at the tail of every backing page: an
// occupancy bitmap, intrusive list links, and the owning heap's id.
// Its size fixes MetadataSize below, so slot 0 at offset 0 keeps
// natural size-class alignment for every size class.
type pageMeta struct {
	bitmap bitfield.SlotMap
	next   uintptr
	prev   uintptr
	heapID uint64
}

// MetadataSize is the byte size of the tail metadata region. It must
// match unsafe.Sizeof(pageMeta{}) exactly; page_test.go asserts this.
const MetadataSize = bitfield.Size + 3*8

// DataEnd is the offset at which the metadata region begins; object
// slots live in [0, DataEnd).
const DataEnd = PageSize - MetadataSize

// MaxAllocSize is the largest object size a Page can ever carve,
// since the metadata region must still fit in the same page.
const MaxAllocSize = DataEnd

// Layout describes a requested allocation: size in bytes and a power
// of two alignment.
type Layout struct {
	Size  uintptr
	Align uintptr
}

// Page is a lightweight handle onto a PageSize, page-aligned backing
// region. Its zero value (base 0) represents "no page" and must not be
// used for anything but equality checks.
type Page struct {
	base uintptr
}

// PageAt wraps an existing backing region starting at base, which
// must be PageSize-aligned. Used by page providers when handing a
// freshly mapped region to the allocator.
func PageAt(base uintptr) Page {
	return Page{base: base}
}

// PageContaining recovers the owning page of a live allocation by
// masking off the low bits of ptr, per the PageSize alignment contract
// every page provider must uphold.
func PageContaining(ptr uintptr) Page {
	return Page{base: ptr &^ uintptr(PageSize-1)}
}

// IsZero reports whether p is the zero-value "no page" handle.
func (p Page) IsZero() bool { return p.base == 0 }

// StartAddress returns the page's base address.
func (p Page) StartAddress() uintptr { return p.base }

func (p Page) meta() *pageMeta {
	return (*pageMeta)(unsafe.Pointer(p.base + DataEnd))
}

// HeapID returns the opaque owner tag last stamped on this page.
func (p Page) HeapID() uint64 { return p.meta().heapID }

// SetHeapID stamps the owning heap tag. It is metadata only; the core
// never branches on its value.
func (p Page) SetHeapID(id uint64) { p.meta().heapID = id }

// ClearMetadata zeroes the linkage, heap id, and occupancy bitmap.
func (p Page) ClearMetadata() {
	*p.meta() = pageMeta{}
}

// InitializeBitmap computes objectsPerPage = min(dataBytes/size, 512),
// clears every bit, and sets permanent sentinel bits for every index
// at or beyond objectsPerPage. Returns the computed objectsPerPage.
func (p Page) InitializeBitmap(size, dataBytes uintptr) int {
	objectsPerPage := int(dataBytes / size)
	if objectsPerPage > bitfield.MaxSlots {
		objectsPerPage = bitfield.MaxSlots
	}
	p.meta().bitmap.Initialize(objectsPerPage)
	return objectsPerPage
}

// Allocate scans for the lowest-index free slot whose address
// satisfies layout.Align and returns its address. ok is false if no
// slot satisfies both constraints.
func (p Page) Allocate(layout Layout) (ptr uintptr, ok bool) {
	base := p.base
	size := layout.Size
	align := layout.Align
	idx, found := p.meta().bitmap.FirstFit(func(i int) bool {
		return (base+uintptr(i)*size)%align == 0
	})
	if !found {
		return 0, false
	}
	p.meta().bitmap.Set(idx)
	return base + uintptr(idx)*size, true
}

// Deallocate frees the slot at ptr. objectsPerPage bounds the valid
// slot range so a corrupt pointer can never clear a permanent
// sentinel bit beyond the class's real slot count.
func (p Page) Deallocate(ptr uintptr, layout Layout, objectsPerPage int) error {
	offset := ptr - p.base
	if layout.Size == 0 || offset%layout.Size != 0 {
		return newAllocError("Page.Deallocate", ErrInvalidPointer)
	}
	idx := int(offset / layout.Size)
	if idx < 0 || idx >= objectsPerPage {
		return newAllocError("Page.Deallocate", ErrInvalidPointer)
	}
	bm := &p.meta().bitmap
	if !bm.IsSet(idx) {
		return wrapf(newAllocError("Page.Deallocate", ErrInvalidPointer), "double free at slot %d", idx)
	}
	bm.Clear(idx)
	return nil
}

// IsFull reports whether every slot below objectsPerPage is allocated.
func (p Page) IsFull(objectsPerPage int) bool {
	return p.meta().bitmap.AllSet(objectsPerPage)
}

// IsEmpty reports whether every slot below objectsPerPage is free.
func (p Page) IsEmpty(objectsPerPage int) bool {
	return p.meta().bitmap.AllClear(objectsPerPage)
}

func (p Page) next() uintptr { return p.meta().next }
func (p Page) prev() uintptr { return p.meta().prev }
func (p Page) setNext(addr uintptr) { p.meta().next = addr }
func (p Page) setPrev(addr uintptr) { p.meta().prev = addr }
