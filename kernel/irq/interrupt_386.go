// Package irq builds the interrupt descriptor table, routes vectors to
// registered handlers and exposes scoped manipulation of the CPU
// interrupt flag.
package irq

import "kestrel/kernel/cpu"

// Status describes the state of the CPU interrupt flag at the time it
// was sampled by Get, Enable, Disable or Set.
type Status uint8

// Interrupt flag states.
const (
	StatusOff Status = iota
	StatusOn
)

var (
	// the following functions are mocked by tests and are automatically
	// inlined by the compiler.
	enableIntFn   = cpu.EnableInterrupts
	disableIntFn  = cpu.DisableInterrupts
	intsEnabledFn = cpu.InterruptsEnabled
)

// Get samples the current state of the interrupt flag.
func Get() Status {
	if intsEnabledFn() {
		return StatusOn
	}
	return StatusOff
}

// Enable sets the interrupt flag and returns its prior state.
func Enable() Status {
	prev := Get()
	if prev == StatusOff {
		enableIntFn()
	}
	return prev
}

// Disable clears the interrupt flag and returns its prior state.
func Disable() Status {
	prev := Get()
	if prev == StatusOn {
		disableIntFn()
	}
	return prev
}

// Set forces the interrupt flag to the supplied state and returns the
// prior state. Callers typically pair it with Disable to scope-restore
// a critical section:
//
//	prev := irq.Disable()
//	...
//	irq.Set(prev)
func Set(status Status) Status {
	if status == StatusOn {
		return Enable()
	}
	return Disable()
}
