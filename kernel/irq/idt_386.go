package irq

import (
	"kestrel/kernel/cpu"
	"kestrel/kernel/kfmt"
	"unsafe"
)

const (
	// Entries is the number of gate descriptors in the IDT. It covers
	// the 32 architectural exception vectors plus the 16 remapped PIC
	// lines (0x20 - 0x2f).
	Entries = 0x30

	// selectorKernelCode is the GDT selector for the kernel code
	// segment installed by the boot loader.
	selectorKernelCode = 0x08

	// gateAttrDPL0 encodes a present, DPL0, 32-bit interrupt gate.
	gateAttrDPL0 = 0x8e

	// The PIC reports IRQ7/IRQ15 for interrupts with no real device
	// cause; both are discarded without dispatching a handler.
	spuriousMaster = 0x27
	spuriousSlave  = 0x2f

	pageFaultVector = 14
)

// gateDesc describes one 8-byte IDT entry. The handler offset is split
// across the two 16-bit halves mandated by the architecture.
type gateDesc struct {
	offsetLow  uint16
	selector   uint16
	dcount     uint8
	attr       uint8
	offsetHigh uint16
}

// HandlerFn is invoked by the common entry trampoline with the vector
// number that fired.
type HandlerFn func(vector uint8)

var (
	idt         [Entries]gateDesc
	handlers    [Entries]HandlerFn
	vectorNames [Entries]string

	// idtDescriptor is the 48-bit pseudo-descriptor loaded into IDTR,
	// packed as limit | base << 16.
	idtDescriptor uint64

	// the following functions are mocked by tests and are automatically
	// inlined by the compiler.
	readCR2Fn = cpu.ReadCR2
	loadIDTFn = cpu.LoadIDT
	haltFn    = cpu.Halt
)

// Init populates the IDT from the entry trampoline table assembled by
// the boot layer, points every vector at the default handler and loads
// the table into IDTR. Entry i of the trampoline table pushes vector i
// and a uniform register image before calling the registered handler
// through Dispatch.
func Init(entryTable *[Entries]uintptr) {
	for vector := 0; vector < Entries; vector++ {
		setGate(&idt[vector], gateAttrDPL0, entryTable[vector])
		handlers[vector] = defaultHandler
		vectorNames[vector] = "unknown"
	}
	nameExceptions()

	idtBase := uintptr(unsafe.Pointer(&idt[0]))
	idtDescriptor = uint64(unsafe.Sizeof(idt)-1) | uint64(idtBase)<<16
	loadIDTFn(uintptr(unsafe.Pointer(&idtDescriptor)))

	kfmt.Printf("[irq] idt loaded, %d vectors\n", Entries)
}

// setGate fills one gate descriptor with the supplied attributes and
// handler entry point.
func setGate(gate *gateDesc, attr uint8, entry uintptr) {
	gate.offsetLow = uint16(entry & 0xffff)
	gate.selector = selectorKernelCode
	gate.dcount = 0
	gate.attr = attr
	gate.offsetHigh = uint16(entry >> 16)
}

// HandleInterrupt registers handler for the supplied vector replacing
// any previous registration.
func HandleInterrupt(vector uint8, handler HandlerFn) {
	prev := Disable()
	handlers[vector] = handler
	Set(prev)
}

// Dispatch routes a vector pushed by an entry trampoline to its
// registered handler. It runs with interrupts disabled.
func Dispatch(vector uint8) {
	handlers[vector](vector)
}

// defaultHandler covers vectors with no specific registration. Spurious
// PIC interrupts are silently discarded; anything else is fatal: the
// symbolic vector name (and the faulting linear address for page
// faults) is printed and the CPU halts with interrupts disabled.
func defaultHandler(vector uint8) {
	if vector == spuriousMaster || vector == spuriousSlave {
		return
	}

	kfmt.Printf("\n!!!!!!!!     exception message begin     !!!!!!!!\n")
	kfmt.Printf("%s\n", vectorNames[vector])
	if vector == pageFaultVector {
		kfmt.Printf("page fault addr is 0x%x\n", uint32(readCR2Fn()))
	}
	kfmt.Printf("!!!!!!!!     exception message end     !!!!!!!!\n")

	haltFn()
}

// nameExceptions assigns the architectural names for vectors 0-19.
// Vector 15 is reserved by the manual and keeps the "unknown" tag.
func nameExceptions() {
	vectorNames[0] = "#DE Divide Error"
	vectorNames[1] = "#DB Debug Exception"
	vectorNames[2] = "NMI Interrupt"
	vectorNames[3] = "#BP Breakpoint Exception"
	vectorNames[4] = "#OF Overflow Exception"
	vectorNames[5] = "#BR BOUND Range Exceeded Exception"
	vectorNames[6] = "#UD Invalid Opcode Exception"
	vectorNames[7] = "#NM Device Not Available Exception"
	vectorNames[8] = "#DF Double Fault Exception"
	vectorNames[9] = "Coprocessor Segment Overrun"
	vectorNames[10] = "#TS Invalid TSS Exception"
	vectorNames[11] = "#NP Segment Not Present"
	vectorNames[12] = "#SS Stack Fault Exception"
	vectorNames[13] = "#GP General Protection Exception"
	vectorNames[14] = "#PF Page-Fault Exception"
	vectorNames[16] = "#MF x87 FPU Floating-Point Error"
	vectorNames[17] = "#AC Alignment Check Exception"
	vectorNames[18] = "#MC Machine-Check Exception"
	vectorNames[19] = "#XF SIMD Floating-Point Exception"
}
