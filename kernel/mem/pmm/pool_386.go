// +build 386

package pmm

import (
	"kestrel/kernel"
	"kestrel/kernel/bitmap"
	"kestrel/kernel/kfmt"
	"kestrel/kernel/mem"
	"reflect"
	"unsafe"
)

const (
	// bitmapBase is the fixed virtual address below the kernel stack
	// where the pool bitmaps are laid out contiguously: first the
	// kernel pool bitmap, then the user pool bitmap, then the kernel
	// virtual address pool bitmap consumed by the vmm package.
	bitmapBase = uintptr(0xc009a000)

	// The boot loader pre-reserves the page directory plus 255 page
	// tables (256 page-sized structures) right above the low megabyte.
	pageStructsSize = 256 * mem.PageSize
	lowMemSize      = 1 * mem.Mb
)

// Pool hands out page frames from a contiguous physical region tracked
// by a bitmap. Bit i of the bitmap is set exactly when frame
// physStart + i*PageSize has been handed out. Frames are never freed.
type Pool struct {
	bitmap    bitmap.Bitmap
	physStart uintptr
	size      mem.Size
}

var (
	// KernelPool serves frame allocations for kernel mappings while
	// UserPool is reserved for future user address spaces. Each covers
	// half of the frames that remain past the low megabyte and the
	// pre-reserved page structures.
	KernelPool Pool
	UserPool   Pool

	errPoolExhausted = &kernel.Error{Module: "pmm", Message: "physical pool exhausted"}

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

// Init partitions the physical memory reported by the boot probe into
// the kernel and user pools. The low megabyte and the page structures
// installed by the loader are treated as allocated; the remaining whole
// pages are split evenly between the two pools, dropping any remainder
// smaller than a page. Both pool bitmaps are placed contiguously at
// bitmapBase and cleared.
func Init(totalMem mem.Size) {
	usedMem := pageStructsSize + lowMemSize
	freePages := uint32((totalMem - usedMem) / mem.PageSize)

	kernelFreePages := freePages / 2
	userFreePages := freePages - kernelFreePages

	// One bitmap byte tracks 8 pages; trailing pages that do not fill a
	// byte are sacrificed so the bitmap can never name a frame outside
	// its pool.
	kernelBitmapLen := kernelFreePages / 8
	userBitmapLen := userFreePages / 8

	KernelPool.physStart = uintptr(usedMem)
	KernelPool.size = mem.Size(kernelFreePages) * mem.PageSize
	KernelPool.bitmap.Bits = bitmapSliceFn(bitmapBase, kernelBitmapLen)
	KernelPool.bitmap.Init()

	UserPool.physStart = KernelPool.physStart + uintptr(kernelFreePages)*uintptr(mem.PageSize)
	UserPool.size = mem.Size(userFreePages) * mem.PageSize
	UserPool.bitmap.Bits = bitmapSliceFn(bitmapBase+uintptr(kernelBitmapLen), userBitmapLen)
	UserPool.bitmap.Init()

	kfmt.Printf("[pmm] kernel pool: 0x%x - 0x%x\n", uint32(KernelPool.physStart), uint32(KernelPool.physStart)+uint32(KernelPool.size))
	kfmt.Printf("[pmm] user pool:   0x%x - 0x%x\n", uint32(UserPool.physStart), uint32(UserPool.physStart)+uint32(UserPool.size))
}

// AllocFrame reserves the lowest free frame in the pool and returns it.
// There is no way to return a frame to the pool.
func (p *Pool) AllocFrame() (Frame, *kernel.Error) {
	bitIndex := p.bitmap.Scan(1)
	if bitIndex == bitmap.ScanFailed {
		return InvalidFrame, errPoolExhausted
	}

	p.bitmap.Set(uint32(bitIndex), true)
	return FrameFromAddress(p.physStart) + Frame(bitIndex), nil
}

// AllocatedFrames returns the number of frames handed out by the pool.
func (p *Pool) AllocatedFrames() uint32 {
	var count uint32
	totalBits := uint32(len(p.bitmap.Bits)) * 8
	for bitIndex := uint32(0); bitIndex < totalBits; bitIndex++ {
		if p.bitmap.Test(bitIndex) {
			count++
		}
	}
	return count
}

// FreeFrames returns the number of frames still available in the pool.
func (p *Pool) FreeFrames() uint32 {
	return uint32(len(p.bitmap.Bits))*8 - p.AllocatedFrames()
}

// VaddrBitmapBase returns the virtual address right after the two pool
// bitmaps. The vmm package stores the kernel heap bitmap there.
func VaddrBitmapBase() uintptr {
	return bitmapBase + uintptr(len(KernelPool.bitmap.Bits)) + uintptr(len(UserPool.bitmap.Bits))
}

// KernelBitmapLen returns the kernel pool bitmap length in bytes. The
// kernel virtual address pool mirrors it so every virtual page in the
// heap window can be backed by a kernel pool frame.
func KernelBitmapLen() uint32 {
	return uint32(len(KernelPool.bitmap.Bits))
}
