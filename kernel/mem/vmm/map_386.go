// +build 386

package vmm

import (
	"kestrel/kernel"
	"kestrel/kernel/debug"
	"kestrel/kernel/mem"
	"kestrel/kernel/mem/pmm"
)

var (
	errFramesExhausted = &kernel.Error{Module: "vmm", Message: "not enough physical frames for the request"}

	// the following functions are mocked by tests and are automatically
	// inlined by the compiler.
	memsetFn         = kernel.Memset
	allocKernelFrame = func() (pmm.Frame, *kernel.Error) { return pmm.KernelPool.AllocFrame() }
	kernelFreeFrames = func() uint32 { return pmm.KernelPool.FreeFrames() }
)

// Map installs a mapping from the virtual page containing virtAddr to
// the physical frame. If the covering page table is missing, a fresh
// kernel frame is allocated for it, linked into the page directory and
// zeroed through the self-reference window so stale bits cannot leak
// into translations. Mapping an already-present page is a contract
// violation.
func Map(virtAddr uintptr, frame pmm.Frame) *kernel.Error {
	pde := pdeFor(virtAddr)
	if !pde.HasFlags(FlagPresent) {
		tableFrame, err := allocKernelFrame()
		if err != nil {
			return err
		}

		*pde = 0
		pde.SetFrame(tableFrame)
		pde.SetFlags(FlagPresent | FlagRW | FlagUser)

		memsetFn(pteTableAddrFor(virtAddr), 0, uintptr(mem.PageSize))
	}

	pte := pteFor(virtAddr)
	debug.Assert(!pte.HasFlags(FlagPresent), "vmm.Map: virtual page is already mapped")

	*pte = 0
	pte.SetFrame(frame)
	pte.SetFlags(FlagPresent | FlagRW | FlagUser)

	return nil
}

// AllocPages reserves count consecutive virtual pages from the pool
// identified by flag and backs each one with a physical frame. The
// backing frames need not be physically contiguous. The frame budget is
// checked before any state is touched so a mid-way allocation failure
// cannot leak reserved pages.
func AllocPages(flag PoolFlag, count uint32) (uintptr, *kernel.Error) {
	debug.Assert(flag == PoolKernel, "vmm.AllocPages: only the kernel pool is supported")

	// Besides one frame per page, Map takes a frame for every page table
	// it has to create; a run of count pages touches at most
	// count/1024+2 page tables.
	if kernelFreeFrames() < count+count/1024+2 {
		return 0, errFramesExhausted
	}

	virtStart, err := kernelVaddr.reservePages(count)
	if err != nil {
		return 0, err
	}

	virtAddr := virtStart
	for left := count; left > 0; left, virtAddr = left-1, virtAddr+uintptr(mem.PageSize) {
		frame, err := allocKernelFrame()
		if err != nil {
			// The budget check above makes this unreachable; the
			// allocator owns no other caller that could race it.
			return 0, err
		}

		if err = Map(virtAddr, frame); err != nil {
			return 0, err
		}
	}

	return virtStart, nil
}

// GetKernelPages reserves and maps count kernel heap pages and zeroes
// their contents.
func GetKernelPages(count uint32) (uintptr, *kernel.Error) {
	virtAddr, err := AllocPages(PoolKernel, count)
	if err != nil {
		return 0, err
	}

	memsetFn(virtAddr, 0, uintptr(count)*uintptr(mem.PageSize))
	return virtAddr, nil
}
