// +build 386

package vmm

import (
	"kestrel/kernel"
	"kestrel/kernel/bitmap"
	"kestrel/kernel/kfmt"
	"kestrel/kernel/mem"
	"reflect"
	"unsafe"
)

// PoolFlag selects the address pool an allocation is served from.
type PoolFlag uint8

// The available address pools. Only the kernel pool is implemented;
// the user pool arrives together with user address spaces.
const (
	PoolKernel PoolFlag = iota + 1
	PoolUser
)

// heapBase is the first virtual address of the kernel heap window. It
// skips the low megabyte inside the higher-half mapping so heap
// addresses stay logically contiguous with the mapped kernel image.
const heapBase = mem.KernelBase + 0x100000

// VirtualPool hands out runs of virtual pages from a bitmap-tracked
// window. Bit i set means virtual page virtStart + i*PageSize has been
// reserved. Virtual pages are never returned to the pool.
type VirtualPool struct {
	bitmap    bitmap.Bitmap
	virtStart uintptr
}

var (
	// kernelVaddr tracks the kernel heap virtual window.
	kernelVaddr VirtualPool

	errVaddrSpaceExhausted = &kernel.Error{Module: "vmm", Message: "virtual address pool exhausted"}

	// bitmapSliceFn overlays a byte slice on a fixed virtual region. It
	// is used by tests to redirect the bitmap storage to a Go buffer.
	bitmapSliceFn = func(base uintptr, length uint32) []byte {
		return *(*[]byte)(unsafe.Pointer(&reflect.SliceHeader{
			Len:  int(length),
			Cap:  int(length),
			Data: base,
		}))
	}
)

// Init places the kernel heap bitmap at the supplied address (right
// after the physical pool bitmaps) and clears it. Its length mirrors
// the kernel physical pool bitmap so every reservable virtual page can
// be backed by a kernel frame.
func Init(bitmapAddr uintptr, bitmapLen uint32) {
	kernelVaddr.virtStart = heapBase
	kernelVaddr.bitmap.Bits = bitmapSliceFn(bitmapAddr, bitmapLen)
	kernelVaddr.bitmap.Init()

	kfmt.Printf("[vmm] kernel heap window at 0x%x, %d pages\n", uint32(heapBase), bitmapLen*8)
}

// reservePages reserves count consecutive virtual pages and returns the
// address of the first one. The reserved pages are virtually contiguous
// even when their backing frames are not.
func (p *VirtualPool) reservePages(count uint32) (uintptr, *kernel.Error) {
	bitIndex := p.bitmap.Scan(count)
	if bitIndex == bitmap.ScanFailed {
		return 0, errVaddrSpaceExhausted
	}

	for offset := uint32(0); offset < count; offset++ {
		p.bitmap.Set(uint32(bitIndex)+offset, true)
	}

	return p.virtStart + uintptr(bitIndex)*uintptr(mem.PageSize), nil
}

// ReservedPages returns the number of virtual pages handed out from the
// pool.
func (p *VirtualPool) ReservedPages() uint32 {
	var count uint32
	totalBits := uint32(len(p.bitmap.Bits)) * 8
	for bitIndex := uint32(0); bitIndex < totalBits; bitIndex++ {
		if p.bitmap.Test(bitIndex) {
			count++
		}
	}
	return count
}
