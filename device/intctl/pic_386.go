// +build 386

// Package intctl drives the cascaded 8259A programmable interrupt
// controller pair.
package intctl

import (
	"io"
	"kestrel/device"
	"kestrel/kernel"
	"kestrel/kernel/cpu"
	"kestrel/kernel/kfmt"
)

const (
	masterCtrlPort = 0x20
	masterDataPort = 0x21
	slaveCtrlPort  = 0xa0
	slaveDataPort  = 0xa1

	// ICW1: edge triggered, cascaded, ICW4 needed.
	icw1 = 0x11

	// ICW2: the vectors the remapped IRQ lines start at.
	masterVectorBase = 0x20
	slaveVectorBase  = 0x28

	// ICW3: the slave hangs off master IRQ2.
	masterCascade = 0x04
	slaveCascade  = 0x02

	// ICW4: x86 mode, normal EOI.
	icw4 = 0x01

	// Initial mask registers: every line masked except the keyboard
	// (IRQ1). The timer line is opened later, once the scheduler is
	// ready to be preempted.
	masterInitialMask = 0xfd
	slaveInitialMask  = 0xff
)

var (
	masterMask uint8 = masterInitialMask
	slaveMask  uint8 = slaveInitialMask

	// portWriteFn is mocked by tests and is automatically inlined by
	// the compiler.
	portWriteFn = cpu.PortWriteByte
)

// PIC8259 implements the device driver for the cascaded controller pair.
type PIC8259 struct{}

// DriverName returns the name of the driver.
func (drv *PIC8259) DriverName() string { return "8259A-pic" }

// DriverVersion returns the driver version.
func (drv *PIC8259) DriverVersion() (uint16, uint16, uint16) { return 0, 1, 0 }

// DriverInit programs both controllers with the initialization word
// quadruple and applies the initial line masks.
func (drv *PIC8259) DriverInit(w io.Writer) *kernel.Error {
	portWriteFn(masterCtrlPort, icw1)
	portWriteFn(masterDataPort, masterVectorBase)
	portWriteFn(masterDataPort, masterCascade)
	portWriteFn(masterDataPort, icw4)

	portWriteFn(slaveCtrlPort, icw1)
	portWriteFn(slaveDataPort, slaveVectorBase)
	portWriteFn(slaveDataPort, slaveCascade)
	portWriteFn(slaveDataPort, icw4)

	masterMask, slaveMask = masterInitialMask, slaveInitialMask
	portWriteFn(masterDataPort, masterMask)
	portWriteFn(slaveDataPort, slaveMask)

	kfmt.Fprintf(w, "remapped irq lines to vectors 0x%x-0x%x\n", masterVectorBase, slaveVectorBase+7)
	return nil
}

// EnableIRQ unmasks the supplied IRQ line (0-15).
func EnableIRQ(line uint8) {
	if line < 8 {
		masterMask &^= 1 << line
		portWriteFn(masterDataPort, masterMask)
		return
	}

	slaveMask &^= 1 << (line - 8)
	portWriteFn(slaveDataPort, slaveMask)
}

// DisableIRQ masks the supplied IRQ line (0-15).
func DisableIRQ(line uint8) {
	if line < 8 {
		masterMask |= 1 << line
		portWriteFn(masterDataPort, masterMask)
		return
	}

	slaveMask |= 1 << (line - 8)
	portWriteFn(slaveDataPort, slaveMask)
}

func probeForPIC() device.Driver {
	return &PIC8259{}
}

func init() {
	device.RegisterDriver(&device.DriverInfo{
		Order: device.DetectOrderInterrupts,
		Probe: probeForPIC,
	})
}
