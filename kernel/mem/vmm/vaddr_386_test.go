package vmm

import (
	"kestrel/kernel/mem"
	"reflect"
	"testing"
	"unsafe"
)

func installVaddrBuffer() {
	bitmapSliceFn = func(base uintptr, length uint32) []byte {
		return make([]byte, length)
	}
}

func restoreVaddrSeams() {
	bitmapSliceFn = func(base uintptr, length uint32) []byte {
		return *(*[]byte)(unsafe.Pointer(&reflect.SliceHeader{
			Len:  int(length),
			Cap:  int(length),
			Data: base,
		}))
	}
}

func TestReservePages(t *testing.T) {
	defer restoreVaddrSeams()
	installVaddrBuffer()
	Init(0, 4)

	specs := []struct {
		count uint32
		exp   uintptr
	}{
		{5, uintptr(heapBase)},
		{1, uintptr(heapBase) + 5*uintptr(mem.PageSize)},
		{26, uintptr(heapBase) + 6*uintptr(mem.PageSize)},
	}

	for specIndex, spec := range specs {
		got, err := kernelVaddr.reservePages(spec.count)
		if err != nil {
			t.Fatalf("[spec %d] unexpected error: %v", specIndex, err)
		}
		if got != spec.exp {
			t.Fatalf("[spec %d] expected reservation at 0x%x; got 0x%x", specIndex, spec.exp, got)
		}
	}

	// The window is now full.
	if _, err := kernelVaddr.reservePages(1); err != errVaddrSpaceExhausted {
		t.Fatalf("expected errVaddrSpaceExhausted; got %v", err)
	}

	if exp, got := uint32(32), kernelVaddr.ReservedPages(); got != exp {
		t.Fatalf("expected %d reserved pages; got %d", exp, got)
	}
}
