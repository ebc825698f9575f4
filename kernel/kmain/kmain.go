// Package kmain contains the kernel entry point invoked by the boot
// gate once paging, the higher-half mapping and the initial stack are
// in place.
package kmain

import (
	"kestrel/device/ioqueue"
	"kestrel/device/kbd"
	"kestrel/kernel/hal"
	"kestrel/kernel/irq"
	"kestrel/kernel/kfmt"
	"kestrel/kernel/mem"
	"kestrel/kernel/mem/pmm"
	"kestrel/kernel/mem/vmm"
	"kestrel/kernel/task"

	_ "kestrel/device/intctl"
	_ "kestrel/device/timer"
	_ "kestrel/device/video/console"
)

// inputQueue couples the keyboard interrupt handler to foreground
// readers.
var inputQueue ioqueue.Queue

// Kmain brings up the kernel subsystems in dependency order: interrupt
// dispatch, the memory pools, the scheduler, then the device drivers.
// The timer driver unmasks its IRQ line during hardware detection, so
// preemption starts the moment interrupts are enabled below. Kmain
// never returns; the boot routine lives on as the "main" task.
//
// The vectorTable argument is the interrupt entry trampoline table
// assembled by the boot layer.
func Kmain(vectorTable *[irq.Entries]uintptr) {
	kfmt.Printf("kestrel: starting\n")

	irq.Init(vectorTable)
	pmm.Init(mem.DetectedSize())
	vmm.Init(pmm.VaddrBitmapBase(), pmm.KernelBitmapLen())
	task.Init()

	inputQueue.Init()
	kbd.AttachSink(&inputQueue)

	hal.DetectHardware()

	kfmt.Printf("kestrel: up, enabling interrupts\n")
	irq.Enable()

	for {
	}
}
