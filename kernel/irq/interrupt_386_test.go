package irq

import (
	"bytes"
	"kestrel/kernel/cpu"
	"kestrel/kernel/kfmt"
	"strings"
	"testing"
)

type fakeFlag struct {
	enabled bool
}

func (f *fakeFlag) install() {
	enableIntFn = func() { f.enabled = true }
	disableIntFn = func() { f.enabled = false }
	intsEnabledFn = func() bool { return f.enabled }
}

func restoreCPUSeams() {
	enableIntFn = cpu.EnableInterrupts
	disableIntFn = cpu.DisableInterrupts
	intsEnabledFn = cpu.InterruptsEnabled
	readCR2Fn = cpu.ReadCR2
	loadIDTFn = cpu.LoadIDT
	haltFn = cpu.Halt
}

func TestInterruptFlagOps(t *testing.T) {
	defer restoreCPUSeams()

	var flag fakeFlag
	flag.install()

	if got := Get(); got != StatusOff {
		t.Fatalf("expected initial status to be off; got %d", got)
	}

	if prev := Enable(); prev != StatusOff || !flag.enabled {
		t.Fatalf("expected Enable to report the prior off state and set the flag; got prev %d, flag %t", prev, flag.enabled)
	}

	if prev := Enable(); prev != StatusOn {
		t.Fatalf("expected a second Enable to report the prior on state; got %d", prev)
	}

	if prev := Disable(); prev != StatusOn || flag.enabled {
		t.Fatalf("expected Disable to report the prior on state and clear the flag; got prev %d, flag %t", prev, flag.enabled)
	}

	if prev := Disable(); prev != StatusOff {
		t.Fatalf("expected a second Disable to report the prior off state; got %d", prev)
	}
}

func TestSetRestoresPriorState(t *testing.T) {
	defer restoreCPUSeams()

	var flag fakeFlag
	flag.install()

	for _, initiallyOn := range []bool{false, true} {
		flag.enabled = initiallyOn

		prev := Disable()
		if flag.enabled {
			t.Fatal("expected the flag to be clear inside the critical section")
		}

		Set(prev)
		if flag.enabled != initiallyOn {
			t.Fatalf("expected Set to restore the flag to %t; got %t", initiallyOn, flag.enabled)
		}
	}
}

func TestInitAndDispatch(t *testing.T) {
	defer restoreCPUSeams()

	var flag fakeFlag
	flag.install()

	var loadedDescriptor uintptr
	loadIDTFn = func(descriptor uintptr) { loadedDescriptor = descriptor }

	var entryTable [Entries]uintptr
	for vector := range entryTable {
		entryTable[vector] = uintptr(0x1000 + vector*16)
	}

	Init(&entryTable)

	if loadedDescriptor == 0 {
		t.Fatal("expected Init to load the IDT descriptor")
	}

	for vector, gate := range idt {
		exp := entryTable[vector]
		got := uintptr(gate.offsetLow) | uintptr(gate.offsetHigh)<<16
		if got != exp {
			t.Errorf("[vector %d] expected gate offset 0x%x; got 0x%x", vector, exp, got)
		}
		if gate.selector != selectorKernelCode || gate.attr != gateAttrDPL0 {
			t.Errorf("[vector %d] unexpected gate selector/attributes: 0x%x/0x%x", vector, gate.selector, gate.attr)
		}
	}

	var gotVector uint8
	HandleInterrupt(0x20, func(vector uint8) { gotVector = vector })
	Dispatch(0x20)

	if exp := uint8(0x20); gotVector != exp {
		t.Fatalf("expected the registered handler to receive vector 0x%x; got 0x%x", exp, gotVector)
	}
}

func TestDefaultHandler(t *testing.T) {
	defer func() {
		restoreCPUSeams()
		kfmt.SetOutputSink(nil)
	}()

	var flag fakeFlag
	flag.install()

	var haltCalled bool
	haltFn = func() { haltCalled = true }
	readCR2Fn = func() uintptr { return 0xdeadf000 }

	var entryTable [Entries]uintptr
	loadIDTFn = func(uintptr) {}
	Init(&entryTable)

	t.Run("spurious vectors are ignored", func(t *testing.T) {
		haltCalled = false
		Dispatch(spuriousMaster)
		Dispatch(spuriousSlave)
		if haltCalled {
			t.Fatal("expected spurious vectors not to halt the CPU")
		}
	})

	t.Run("unregistered vector is fatal", func(t *testing.T) {
		haltCalled = false
		var buf bytes.Buffer
		kfmt.SetOutputSink(&buf)

		Dispatch(13)

		if !haltCalled {
			t.Fatal("expected an unregistered vector to halt the CPU")
		}
		if got := buf.String(); !strings.Contains(got, "#GP General Protection Exception") {
			t.Fatalf("expected the vector name in the output; got:\n%q", got)
		}
	})

	t.Run("page fault reports the linear address", func(t *testing.T) {
		haltCalled = false
		var buf bytes.Buffer
		kfmt.SetOutputSink(&buf)

		Dispatch(pageFaultVector)

		if !haltCalled {
			t.Fatal("expected a page fault with no handler to halt the CPU")
		}
		got := buf.String()
		if !strings.Contains(got, "#PF Page-Fault Exception") || !strings.Contains(got, "deadf000") {
			t.Fatalf("expected the vector name and fault address in the output; got:\n%q", got)
		}
	})
}
