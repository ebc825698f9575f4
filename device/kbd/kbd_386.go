// +build 386

// Package kbd forwards raw keyboard scancodes into an ioqueue for a
// foreground reader to decode.
package kbd

import (
	"io"
	"kestrel/device"
	"kestrel/device/ioqueue"
	"kestrel/kernel"
	"kestrel/kernel/cpu"
	"kestrel/kernel/irq"
	"kestrel/kernel/kfmt"
)

const (
	dataPort = 0x60

	keyboardVector = 0x21
)

var (
	// sink receives the raw scancode bytes. It is attached by the
	// foreground reader before the keyboard line is unmasked.
	sink *ioqueue.Queue

	// the following functions are mocked by tests and are automatically
	// inlined by the compiler.
	portReadFn        = cpu.PortReadByte
	registerHandlerFn = irq.HandleInterrupt
	sinkFullFn        = (*ioqueue.Queue).Full
	sinkPutFn         = (*ioqueue.Queue).PutByte
)

// AttachSink connects the queue that receives scancodes.
func AttachSink(q *ioqueue.Queue) {
	sink = q
}

// Keyboard implements the device driver for the keyboard controller.
type Keyboard struct{}

// DriverName returns the name of the driver.
func (drv *Keyboard) DriverName() string { return "ps2-kbd" }

// DriverVersion returns the driver version.
func (drv *Keyboard) DriverVersion() (uint16, uint16, uint16) { return 0, 1, 0 }

// DriverInit installs the scancode handler. The keyboard IRQ line is
// already unmasked by the interrupt controller's initial mask.
func (drv *Keyboard) DriverInit(w io.Writer) *kernel.Error {
	registerHandlerFn(keyboardVector, scancodeHandler)
	kfmt.Fprintf(w, "listening on vector 0x%x\n", keyboardVector)
	return nil
}

// scancodeHandler runs in interrupt context. The data port must be read
// on every interrupt or the controller stops raising new ones; the byte
// is dropped when no sink is attached or the sink is full, since a
// blocked producer slot belongs to a task, not to an interrupt handler.
func scancodeHandler(vector uint8) {
	scancode := portReadFn(dataPort)

	if sink == nil || sinkFullFn(sink) {
		return
	}

	sinkPutFn(sink, scancode)
}

func probeForKeyboard() device.Driver {
	return &Keyboard{}
}

func init() {
	device.RegisterDriver(&device.DriverInfo{
		Order: device.DetectOrderNormal,
		Probe: probeForKeyboard,
	})
}
