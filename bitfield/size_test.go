package bitfield

import (
	"testing"
	"unsafe"
)

func TestSlotMapSize(t *testing.T) {
	var m SlotMap
	size := unsafe.Sizeof(m)

	t.Logf("SlotMap struct size: %d bytes (%d bits)", size, size*8)

	if size != Size {
		t.Errorf("SlotMap size %d does not match Size constant %d", size, Size)
	}
}
