package slab

import (
	"github.com/sirupsen/logrus"
)

// NumSizeClasses is the number of fixed size classes a Zone dispatches
// across.
const NumSizeClasses = 11

// BaseAllocSizes are the fixed size classes, ascending: powers of two
// from 8 through 4096, plus the ceiling class MaxAllocSize. Power of
// two classes keep alignment reasoning simple and bound internal
// fragmentation to roughly 50% worst case; the ceiling class is
// clamped to MaxAllocSize so even the largest supported object still
// fits alongside its page's in-band metadata.
var BaseAllocSizes = [NumSizeClasses]uintptr{8, 16, 32, 64, 128, 256, 512, 1024, 2048, 4096, MaxAllocSize}

// SlabEmptyPagesThreshold is the minimum number of empty pages a size
// class must have (strictly more than) before RetrieveEmptyPage will
// withdraw one from it.
const SlabEmptyPagesThreshold = 0

// Config configures a Zone. The zero value yields the spec defaults.
type Config struct {
	// Logger receives Debug-level page list transition events. Defaults
	// to logrus.StandardLogger().
	Logger *logrus.Logger
	// EmptyPagesThreshold overrides SlabEmptyPagesThreshold.
	EmptyPagesThreshold int
}

// Zone is a fixed array of SizeClassAllocator, one per size class. It
// routes each request to the smallest class able to hold it, and can
// rebalance across classes by withdrawing an empty page from the
// class with the most of them to refill a class that has none.
//
// Not safe for concurrent use.
type Zone struct {
	classes   [NumSizeClasses]*SizeClassAllocator
	threshold int
}

// New builds a Zone with all size classes initialized and empty.
func New(cfg Config) *Zone {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	z := &Zone{threshold: cfg.EmptyPagesThreshold}
	if cfg.EmptyPagesThreshold == 0 {
		z.threshold = SlabEmptyPagesThreshold
	}
	for i, size := range BaseAllocSizes {
		z.classes[i] = newSizeClassAllocator(size, logger)
	}
	return z
}

// SizeToClass maps a requested size to its size class index, rounding
// up to the smallest class able to hold it. ok is false if size
// exceeds MaxAllocSize.
func SizeToClass(size uintptr) (idx int, ok bool) {
	if size > MaxAllocSize {
		return 0, false
	}
	for i, classSize := range BaseAllocSizes {
		if size <= classSize {
			return i, true
		}
	}
	return 0, false
}

// MaxSizeForClass returns the maximum usable size of the class that
// requested would round up to — useful for realloc-style callers that
// want to know how much headroom they already have without
// allocating. ok is false if requested exceeds MaxAllocSize.
func (z *Zone) MaxSizeForClass(requested uintptr) (uintptr, bool) {
	idx, ok := SizeToClass(requested)
	if !ok {
		return 0, false
	}
	return BaseAllocSizes[idx], true
}

func validateLayout(layout Layout) error {
	if layout.Align == 0 || layout.Align&(layout.Align-1) != 0 {
		return newAllocError("validateLayout", ErrInvalidLayout)
	}
	if layout.Align > PageSize {
		return newAllocError("validateLayout", ErrInvalidLayout)
	}
	return nil
}

// Allocate routes layout to its size class and serves it, attempting
// one intra-zone page exchange and retry if the class is out of
// memory.
func (z *Zone) Allocate(layout Layout) (uintptr, error) {
	if err := validateLayout(layout); err != nil {
		return 0, err
	}
	idx, ok := SizeToClass(layout.Size)
	if !ok {
		return 0, newAllocError("Zone.Allocate", ErrInvalidLayout)
	}

	ptr, err := z.classes[idx].Allocate(layout)
	if err == nil {
		return ptr, nil
	}

	if exchErr := z.ExchangePagesWithinHeap(layout); exchErr != nil {
		return 0, exchErr
	}
	return z.classes[idx].Allocate(layout)
}

// Deallocate routes ptr to its size class by layout and frees it.
func (z *Zone) Deallocate(ptr uintptr, layout Layout) error {
	idx, ok := SizeToClass(layout.Size)
	if !ok {
		return newAllocError("Zone.Deallocate", ErrInvalidLayout)
	}
	return z.classes[idx].Deallocate(ptr, layout)
}

// Refill hands a fresh backing page to the size class layout maps to.
func (z *Zone) Refill(layout Layout, p Page, heapID uint64) error {
	idx, ok := SizeToClass(layout.Size)
	if !ok {
		return newAllocError("Zone.Refill", ErrInvalidLayout)
	}
	return z.classes[idx].Refill(p, heapID)
}

func (z *Zone) classWithMostEmptyPages() (idx, count int) {
	for i, sc := range z.classes {
		if n := sc.EmptyCount(); n > count {
			count, idx = n, i
		}
	}
	return idx, count
}

// RetrieveEmptyPage withdraws an empty page from the class with the
// most of them, if that count exceeds the configured threshold.
func (z *Zone) RetrieveEmptyPage() (Page, bool) {
	idx, count := z.classWithMostEmptyPages()
	if count <= z.threshold {
		return Page{}, false
	}
	return z.classes[idx].RetrieveEmptyPage()
}

// ExchangePagesWithinHeap withdraws an empty page via RetrieveEmptyPage
// and refills it into the size class layout maps to, reclassifying it
// to the new size (its bitmap is re-initialized). The page keeps the
// heap id it already carried.
func (z *Zone) ExchangePagesWithinHeap(layout Layout) error {
	p, ok := z.RetrieveEmptyPage()
	if !ok {
		return newAllocError("Zone.ExchangePagesWithinHeap", ErrNoEmptyPage)
	}
	return z.Refill(layout, p, p.HeapID())
}

// Merge drains other's pages into this zone, class by class,
// restamping every moved page with heapID.
func (z *Zone) Merge(other *Zone, heapID uint64) error {
	for i := range z.classes {
		if err := z.classes[i].Merge(other.classes[i], heapID); err != nil {
			return wrapf(err, "merging size class %d", BaseAllocSizes[i])
		}
	}
	return nil
}

// EmptyPages sums the empty-page count across every size class.
func (z *Zone) EmptyPages() int {
	total := 0
	for _, sc := range z.classes {
		total += sc.EmptyCount()
	}
	return total
}
