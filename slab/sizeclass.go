package slab

import (
	"github.com/sirupsen/logrus"

	"mazarinheap/bitfield"
)

// SizeClassAllocator owns every Page for exactly one object size. It
// keeps three intrusive PageLists — empty, partial, full — so the hot
// allocation path only ever touches partial, making a successful
// allocation O(1) amortized.
//
// Not safe for concurrent use; callers serialize access the way a
// per-CPU heap serializes access to its Zone.
type SizeClassAllocator struct {
	size            uintptr
	objectsPerPage  int
	allocationCount uint64

	empty   PageList
	partial PageList
	full    PageList

	log *logrus.Entry
}

func newSizeClassAllocator(size uintptr, log *logrus.Logger) *SizeClassAllocator {
	objectsPerPage := int(uintptr(DataEnd) / size)
	if objectsPerPage > bitfield.MaxSlots {
		objectsPerPage = bitfield.MaxSlots
	}
	return &SizeClassAllocator{
		size:           size,
		objectsPerPage: objectsPerPage,
		log:            log.WithField("size_class", size),
	}
}

// Size returns the fixed object size this allocator serves.
func (s *SizeClassAllocator) Size() uintptr { return s.size }

// ObjectsPerPage returns the derived slot count per page for this class.
func (s *SizeClassAllocator) ObjectsPerPage() int { return s.objectsPerPage }

// EmptyCount returns the number of pages currently on the empty list.
func (s *SizeClassAllocator) EmptyCount() int { return s.empty.Len() }

func (s *SizeClassAllocator) transition(p Page, from, to string) {
	s.log.WithFields(logrus.Fields{
		"page": p.StartAddress(),
		"from": from,
		"to":   to,
	}).Debug("page list transition")
}

// Allocate serves layout (whose size must already be <= s.size) from
// a partial page if one can satisfy it, else promotes an empty page.
func (s *SizeClassAllocator) Allocate(layout Layout) (uintptr, error) {
	widened := Layout{Size: s.size, Align: layout.Align}

	if ptr, ok := s.allocateFromPartial(widened); ok {
		return ptr, nil
	}

	p, ok := s.empty.PopFront()
	if !ok {
		return 0, newAllocError("SizeClassAllocator.Allocate", ErrOutOfMemory)
	}
	ptr, ok := p.Allocate(widened)
	if !ok {
		// A freshly initialized page must have room; this would mean
		// InitializeBitmap and objectsPerPage disagree.
		panic("slab: fresh empty page rejected an allocation it should fit")
	}
	s.partial.PushFront(p)
	s.allocationCount++
	s.transition(p, "empty", "partial")
	if p.IsFull(s.objectsPerPage) {
		s.partial.Remove(p.StartAddress())
		s.full.PushFront(p)
		s.transition(p, "partial", "full")
	}
	return ptr, nil
}

func (s *SizeClassAllocator) allocateFromPartial(layout Layout) (uintptr, bool) {
	var (
		ptr   uintptr
		page  Page
		found bool
	)
	s.partial.ForEach(func(p Page) bool {
		if candidate, ok := p.Allocate(layout); ok {
			ptr, page, found = candidate, p, true
			return false
		}
		return true
	})
	if !found {
		return 0, false
	}
	s.allocationCount++
	if page.IsFull(s.objectsPerPage) {
		assertf(s.partial.Contains(page.StartAddress()), "page %#x not in partial before partial->full", page.StartAddress())
		s.partial.Remove(page.StartAddress())
		s.full.PushFront(page)
		s.transition(page, "partial", "full")
	}
	return ptr, true
}

// Deallocate frees ptr (described by layout, whose size must already
// be <= s.size) and moves the owning page between lists as needed.
func (s *SizeClassAllocator) Deallocate(ptr uintptr, layout Layout) error {
	page := PageContaining(ptr)
	wasFull := page.IsFull(s.objectsPerPage)

	widened := Layout{Size: s.size, Align: layout.Align}
	if err := page.Deallocate(ptr, widened, s.objectsPerPage); err != nil {
		return wrapf(err, "size class %d", s.size)
	}

	switch {
	case page.IsEmpty(s.objectsPerPage):
		if wasFull {
			assertf(s.full.Contains(page.StartAddress()), "page %#x not in full before full->empty", page.StartAddress())
			s.full.Remove(page.StartAddress())
			s.transition(page, "full", "empty")
		} else {
			assertf(s.partial.Contains(page.StartAddress()), "page %#x not in partial before partial->empty", page.StartAddress())
			s.partial.Remove(page.StartAddress())
			s.transition(page, "partial", "empty")
		}
		s.empty.PushFront(page)
	case wasFull:
		assertf(s.full.Contains(page.StartAddress()), "page %#x not in full before full->partial", page.StartAddress())
		s.full.Remove(page.StartAddress())
		s.partial.PushFront(page)
		s.transition(page, "full", "partial")
	}
	return nil
}

// Refill clears p's metadata, initializes its bitmap for this class's
// size, stamps heapID, and pushes it onto the empty list.
func (s *SizeClassAllocator) Refill(p Page, heapID uint64) error {
	p.ClearMetadata()
	s.objectsPerPage = p.InitializeBitmap(s.size, uintptr(DataEnd))
	p.SetHeapID(heapID)
	s.empty.PushFront(p)
	s.log.WithField("page", p.StartAddress()).Debug("refilled empty page")
	return nil
}

// RetrieveEmptyPage pops a page off the empty list, if any.
func (s *SizeClassAllocator) RetrieveEmptyPage() (Page, bool) {
	return s.empty.PopFront()
}

// Merge drains other's three lists into this allocator's corresponding
// lists, restamping every moved page with heapID.
func (s *SizeClassAllocator) Merge(other *SizeClassAllocator, heapID uint64) error {
	for {
		p, ok := other.empty.PopFront()
		if !ok {
			break
		}
		p.SetHeapID(heapID)
		s.empty.PushFront(p)
	}
	for {
		p, ok := other.partial.PopFront()
		if !ok {
			break
		}
		p.SetHeapID(heapID)
		s.partial.PushFront(p)
	}
	for {
		p, ok := other.full.PopFront()
		if !ok {
			break
		}
		p.SetHeapID(heapID)
		s.full.PushFront(p)
	}
	return nil
}
