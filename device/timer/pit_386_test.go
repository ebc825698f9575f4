package timer

import (
	"bytes"
	"kestrel/device/intctl"
	"kestrel/kernel/cpu"
	"kestrel/kernel/debug"
	"kestrel/kernel/irq"
	"kestrel/kernel/task"
	"testing"
)

func restoreTimerSeams() {
	portWriteFn = cpu.PortWriteByte
	registerHandlerFn = irq.HandleInterrupt
	enableIRQFn = intctl.EnableIRQ
	currentTaskFn = task.Current
	scheduleFn = task.Schedule
	guardOKFn = (*task.Task).StackGuardOK
	guardFailFn = debug.Panic
	ticks = 0
}

func TestDriverInitProgramsCounterZero(t *testing.T) {
	defer restoreTimerSeams()

	type portWrite struct {
		port  uint16
		value uint8
	}
	var writes []portWrite
	portWriteFn = func(port uint16, value uint8) {
		writes = append(writes, portWrite{port, value})
	}

	var registeredVector uint8
	registerHandlerFn = func(vector uint8, handler irq.HandlerFn) { registeredVector = vector }

	enabledLine := uint8(0xff)
	enableIRQFn = func(line uint8) { enabledLine = line }

	var (
		drv PIT8253
		buf bytes.Buffer
	)
	if err := drv.DriverInit(&buf); err != nil {
		t.Fatal(err)
	}

	// Control word: counter 0, low-then-high latch, mode 2, binary.
	exp := []portWrite{
		{controlPort, 0<<6 | 3<<4 | 2<<1},
		{counter0Port, uint8(counter0Value & 0xff)},
		{counter0Port, uint8(counter0Value >> 8)},
	}

	if len(writes) != len(exp) {
		t.Fatalf("expected %d port writes; got %d", len(exp), len(writes))
	}

	for i, expWrite := range exp {
		if writes[i] != expWrite {
			t.Errorf("[write %d] expected out(0x%x, 0x%x); got out(0x%x, 0x%x)",
				i, expWrite.port, expWrite.value, writes[i].port, writes[i].value)
		}
	}

	if registeredVector != timerVector {
		t.Errorf("expected the tick handler on vector 0x%x; got 0x%x", timerVector, registeredVector)
	}

	if enabledLine != timerIRQ {
		t.Errorf("expected IRQ line %d to be unmasked; got %d", timerIRQ, enabledLine)
	}
}

func TestTickHandlerBurnsQuantum(t *testing.T) {
	defer restoreTimerSeams()

	cur := new(task.Task)
	cur.Priority, cur.TicksRemaining = 3, 3
	currentTaskFn = func() *task.Task { return cur }
	guardOKFn = func(*task.Task) bool { return true }

	scheduleCalled := false
	scheduleFn = func() { scheduleCalled = true }
	guardFailFn = func(string) { t.Fatal("expected no guard failure") }

	tickHandler(timerVector)

	if scheduleCalled {
		t.Fatal("expected no scheduling while quantum remains")
	}

	if cur.TicksRemaining != 2 || cur.ElapsedTicks != 1 || Ticks() != 1 {
		t.Fatalf("unexpected tick accounting: remaining %d, elapsed %d, global %d",
			cur.TicksRemaining, cur.ElapsedTicks, Ticks())
	}
}

func TestTickHandlerSchedulesOnQuantumExhaustion(t *testing.T) {
	defer restoreTimerSeams()

	// A priority 1 task burns its single tick on the first interrupt
	// and yields on the second.
	cur := new(task.Task)
	cur.Priority, cur.TicksRemaining = 1, 1
	currentTaskFn = func() *task.Task { return cur }
	guardOKFn = func(*task.Task) bool { return true }

	scheduleCalled := false
	scheduleFn = func() { scheduleCalled = true }
	guardFailFn = func(string) { t.Fatal("expected no guard failure") }

	tickHandler(timerVector)
	if scheduleCalled {
		t.Fatal("expected the first tick to only burn the quantum")
	}

	tickHandler(timerVector)
	if !scheduleCalled {
		t.Fatal("expected the second tick to invoke the scheduler")
	}
}

func TestTickHandlerDetectsSmashedStackGuard(t *testing.T) {
	defer restoreTimerSeams()

	// A zero-valued control block is what a stack overflow that plowed
	// through the guard word leaves behind.
	cur := new(task.Task)
	cur.Priority, cur.TicksRemaining = 5, 5
	currentTaskFn = func() *task.Task { return cur }

	var guardMsg string
	guardFailFn = func(msg string) { guardMsg = msg }
	scheduleFn = func() { t.Fatal("expected no scheduling after a guard failure") }

	tickHandler(timerVector)

	if guardMsg == "" {
		t.Fatal("expected the guard failure to be reported")
	}

	if cur.ElapsedTicks != 0 || Ticks() != 0 {
		t.Fatal("expected no tick accounting after a guard failure")
	}
}
