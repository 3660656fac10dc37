package slab

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSizeClass(t *testing.T, size uintptr) *SizeClassAllocator {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return newSizeClassAllocator(size, logger)
}

func refillWith(t *testing.T, sc *SizeClassAllocator, heapID uint64) Page {
	t.Helper()
	p := newTestPage(t)
	require.NoError(t, sc.Refill(p, heapID))
	return p
}

func TestSizeClassAllocateOutOfMemoryWithNoPages(t *testing.T) {
	sc := newTestSizeClass(t, 64)
	_, err := sc.Allocate(Layout{Size: 64, Align: 1})
	assert.ErrorIs(t, err, ErrOutOfMemory)
}

func TestSizeClassAllocateMovesEmptyToPartialToFull(t *testing.T) {
	sc := newTestSizeClass(t, 4096)
	refillWith(t, sc, 1)
	assert.Equal(t, 1, sc.EmptyCount())

	layout := Layout{Size: 4096, Align: 1}
	// objectsPerPage for 4096 is 1, so a single allocation fills the page.
	_, err := sc.Allocate(layout)
	require.NoError(t, err)

	assert.Equal(t, 0, sc.EmptyCount())
	assert.Equal(t, 0, sc.partial.Len())
	assert.Equal(t, 1, sc.full.Len())
}

func TestSizeClassAllocateFillsPartialBeforeTakingEmpty(t *testing.T) {
	sc := newTestSizeClass(t, 2048)
	refillWith(t, sc, 1)
	refillWith(t, sc, 1)

	layout := Layout{Size: 2048, Align: 1}
	_, err := sc.Allocate(layout)
	require.NoError(t, err)
	require.Equal(t, 1, sc.partial.Len(), "objectsPerPage for 2048 should be > 1")

	_, err = sc.Allocate(layout)
	require.NoError(t, err)
	assert.Equal(t, 1, sc.empty.Len(), "second page must stay empty while the partial page has room")
}

// A page with a single slot goes straight from full to empty.
func TestSizeClassDeallocateTransitionsFullToEmpty(t *testing.T) {
	sc := newTestSizeClass(t, 4096)
	refillWith(t, sc, 1)
	layout := Layout{Size: 4096, Align: 1}

	ptr, err := sc.Allocate(layout)
	require.NoError(t, err)
	require.Equal(t, 1, sc.full.Len())

	require.NoError(t, sc.Deallocate(ptr, layout))
	assert.Equal(t, 0, sc.full.Len())
	assert.Equal(t, 0, sc.partial.Len())
	assert.Equal(t, 1, sc.empty.Len())
}

func TestSizeClassDeallocatePartialStaysPartial(t *testing.T) {
	sc := newTestSizeClass(t, 64)
	refillWith(t, sc, 1)
	layout := Layout{Size: 64, Align: 1}

	ptr1, err := sc.Allocate(layout)
	require.NoError(t, err)
	_, err = sc.Allocate(layout)
	require.NoError(t, err)
	require.Equal(t, 1, sc.partial.Len())

	require.NoError(t, sc.Deallocate(ptr1, layout))
	assert.Equal(t, 1, sc.partial.Len(), "page still has one live slot, stays partial")
	assert.Equal(t, 0, sc.empty.Len())
}

func TestSizeClassRetrieveEmptyPage(t *testing.T) {
	sc := newTestSizeClass(t, 64)
	refillWith(t, sc, 1)

	p, ok := sc.RetrieveEmptyPage()
	require.True(t, ok)
	assert.Equal(t, 0, sc.EmptyCount())

	_, ok = sc.RetrieveEmptyPage()
	assert.False(t, ok)
	_ = p
}

func TestSizeClassMergeRestampsHeapID(t *testing.T) {
	src := newTestSizeClass(t, 64)
	dst := newTestSizeClass(t, 64)

	emptyPage := refillWith(t, src, 11)
	partialPage := refillWith(t, src, 11)
	_, err := src.Allocate(Layout{Size: 64, Align: 1})
	require.NoError(t, err)
	require.Equal(t, 1, src.partial.Len())

	require.NoError(t, dst.Merge(src, 99))

	assert.Equal(t, 1, dst.empty.Len())
	assert.Equal(t, 1, dst.partial.Len())
	assert.True(t, src.empty.IsEmpty())
	assert.True(t, src.partial.IsEmpty())

	assert.Equal(t, uint64(99), emptyPage.HeapID())
	assert.Equal(t, uint64(99), partialPage.HeapID())
}
