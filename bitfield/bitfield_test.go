package bitfield

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitializeSetsSentinels(t *testing.T) {
	var m SlotMap
	m.Initialize(5)

	for i := 0; i < 5; i++ {
		assert.False(t, m.IsSet(i), "slot %d should start clear", i)
	}
	for i := 5; i < MaxSlots; i++ {
		assert.True(t, m.IsSet(i), "sentinel slot %d should be permanently set", i)
	}
}

func TestSetClearRoundTrip(t *testing.T) {
	var m SlotMap
	m.Initialize(64)

	m.Set(3)
	assert.True(t, m.IsSet(3))
	m.Clear(3)
	assert.False(t, m.IsSet(3))
}

func TestFirstFitSkipsSetBits(t *testing.T) {
	var m SlotMap
	m.Initialize(10)
	m.Set(0)
	m.Set(1)

	idx, ok := m.FirstFit(func(int) bool { return true })
	assert.True(t, ok)
	assert.Equal(t, 2, idx)
}

func TestFirstFitHonorsMatchPredicate(t *testing.T) {
	var m SlotMap
	m.Initialize(16)

	// Only accept even slots, simulating an alignment constraint.
	idx, ok := m.FirstFit(func(i int) bool { return i%2 == 0 })
	assert.True(t, ok)
	assert.Equal(t, 0, idx)

	m.Set(0)
	idx, ok = m.FirstFit(func(i int) bool { return i%2 == 0 })
	assert.True(t, ok)
	assert.Equal(t, 2, idx)
}

func TestFirstFitNoneMatch(t *testing.T) {
	var m SlotMap
	m.Initialize(3)

	_, ok := m.FirstFit(func(i int) bool { return i >= 3 })
	assert.False(t, ok)
}

func TestAllClearAllSet(t *testing.T) {
	var m SlotMap
	m.Initialize(4)
	assert.True(t, m.AllClear(4))
	assert.False(t, m.AllSet(4))

	for i := 0; i < 4; i++ {
		m.Set(i)
	}
	assert.False(t, m.AllClear(4))
	assert.True(t, m.AllSet(4))
}

func TestSlotMapCapacity(t *testing.T) {
	var m SlotMap
	m.Initialize(MaxSlots)
	assert.True(t, m.AllClear(MaxSlots))
	for i := 0; i < MaxSlots; i++ {
		m.Set(i)
	}
	assert.True(t, m.AllSet(MaxSlots))
}
