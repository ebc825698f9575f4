// +build 386

// Package timer drives the 8253 programmable interval timer and feeds
// the scheduler from its tick handler.
package timer

import (
	"io"
	"kestrel/device"
	"kestrel/device/intctl"
	"kestrel/kernel"
	"kestrel/kernel/cpu"
	"kestrel/kernel/debug"
	"kestrel/kernel/irq"
	"kestrel/kernel/kfmt"
	"kestrel/kernel/task"
)

const (
	counter0Port = 0x40
	controlPort  = 0x43

	// The rate generator runs at 100Hz: one tick every 10ms.
	tickFrequency  = 100
	inputFrequency = 1193180
	counter0Value  = inputFrequency / tickFrequency

	// Control word fields: counter select in bits 7:6, read/write latch
	// in bits 5:4, mode in bits 3:1, BCD in bit 0.
	counter0       = 0
	readWriteLatch = 3
	rateGenerator  = 2

	timerVector = 0x20
	timerIRQ    = 0
)

var (
	// ticks counts every timer interrupt since the scheduler went live.
	ticks uint32

	// the following functions are mocked by tests and are automatically
	// inlined by the compiler.
	portWriteFn       = cpu.PortWriteByte
	registerHandlerFn = irq.HandleInterrupt
	enableIRQFn       = intctl.EnableIRQ
	currentTaskFn     = task.Current
	scheduleFn        = task.Schedule
	guardOKFn         = (*task.Task).StackGuardOK
	guardFailFn       = debug.Panic
)

// Ticks returns the number of timer interrupts serviced so far.
func Ticks() uint32 {
	return ticks
}

// PIT8253 implements the device driver for the interval timer.
type PIT8253 struct{}

// DriverName returns the name of the driver.
func (drv *PIT8253) DriverName() string { return "8253-pit" }

// DriverVersion returns the driver version.
func (drv *PIT8253) DriverVersion() (uint16, uint16, uint16) { return 0, 1, 0 }

// DriverInit programs counter 0 as a rate generator, installs the tick
// handler and unmasks the timer IRQ line. The scheduler must be
// initialized before the driver: the first tick already walks the
// running task's control block.
func (drv *PIT8253) DriverInit(w io.Writer) *kernel.Error {
	frequencySet(counter0Port, counter0, readWriteLatch, rateGenerator, counter0Value)
	registerHandlerFn(timerVector, tickHandler)
	enableIRQFn(timerIRQ)

	kfmt.Fprintf(w, "rate generator at %dHz\n", tickFrequency)
	return nil
}

// frequencySet writes the control word for the selected counter and
// loads its 16-bit initial value low byte first.
func frequencySet(counterPort uint16, counter, rwl, mode uint8, value uint16) {
	portWriteFn(controlPort, counter<<6|rwl<<4|mode<<1)
	portWriteFn(counterPort, uint8(value))
	portWriteFn(counterPort, uint8(value>>8))
}

// tickHandler runs on every timer interrupt. It verifies the running
// task's stack guard, charges the tick and either burns quantum or, on
// exhaustion, hands the CPU to the scheduler.
func tickHandler(vector uint8) {
	cur := currentTaskFn()

	if !guardOKFn(cur) {
		guardFailFn("timer: stack guard smashed on the running task")
		return
	}

	cur.ElapsedTicks++
	ticks++

	if cur.TicksRemaining == 0 {
		scheduleFn()
	} else {
		cur.TicksRemaining--
	}
}

func probeForPIT() device.Driver {
	return &PIT8253{}
}

func init() {
	device.RegisterDriver(&device.DriverInfo{
		Order: device.DetectOrderNormal,
		Probe: probeForPIT,
	})
}
