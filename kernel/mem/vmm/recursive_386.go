// +build 386

package vmm

import (
	"kestrel/kernel/mem"
	"unsafe"
)

// The boot loader installs a self-reference at page directory entry
// 1023. Through it, the directory itself appears at pdeWindowBase and
// every page table appears inside the 4Mb window at pteWindowBase. All
// page-structure accesses go through these two recipes; the kernel
// never dereferences page structures by their physical address.
const (
	pdeWindowBase = uintptr(0xfffff000)
	pteWindowBase = uintptr(0xffc00000)
)

var (
	// ptePtrFn returns a pointer to the supplied entry address. It is
	// used by tests to override the generated page table entry pointers
	// so mappings can be properly tested. When compiling the kernel this
	// function will be automatically inlined.
	ptePtrFn = func(entryAddr uintptr) unsafe.Pointer {
		return unsafe.Pointer(entryAddr)
	}
)

// pdeAddrFor returns the virtual address of the page directory entry
// that covers virtAddr.
func pdeAddrFor(virtAddr uintptr) uintptr {
	return pdeWindowBase + (virtAddr>>22)<<mem.PointerShift
}

// pteAddrFor returns the virtual address of the page table entry that
// covers virtAddr. The middle term re-routes the directory index
// through the self-reference window selecting the table page; the last
// term indexes the entry inside it.
func pteAddrFor(virtAddr uintptr) uintptr {
	return pteWindowBase + ((virtAddr&0xffc00000)>>10) + ((virtAddr>>12)&0x3ff)<<mem.PointerShift
}

// pteTableAddrFor returns the virtual address of the page table page
// that covers virtAddr, as seen through the self-reference window.
func pteTableAddrFor(virtAddr uintptr) uintptr {
	return pteWindowBase + (virtAddr>>22)<<mem.PageShift
}

// pdeFor returns a pointer to the page directory entry covering virtAddr.
func pdeFor(virtAddr uintptr) *pageTableEntry {
	return (*pageTableEntry)(ptePtrFn(pdeAddrFor(virtAddr)))
}

// pteFor returns a pointer to the page table entry covering virtAddr.
// It must only be used when the covering page table is present.
func pteFor(virtAddr uintptr) *pageTableEntry {
	return (*pageTableEntry)(ptePtrFn(pteAddrFor(virtAddr)))
}
