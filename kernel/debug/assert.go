// Package debug provides the kernel's fatal assertion support. A failed
// assertion disables interrupts, reports the violated condition on the
// active console and halts the CPU forever.
package debug

import (
	"kestrel/kernel/cpu"
	"kestrel/kernel/kfmt"
)

var (
	// the following functions are mocked by tests and are automatically
	// inlined by the compiler.
	disableInterruptsFn = cpu.DisableInterrupts
	haltFn              = cpu.Halt
)

// Assert checks a contract that must hold at the call site. If cond is
// false the kernel prints msg and halts. By convention msg carries the
// calling function and the violated condition text, e.g.
// "sched.Schedule: ready queue empty".
func Assert(cond bool, msg string) {
	if cond {
		return
	}
	Panic(msg)
}

// Panic reports an unrecoverable contract violation and halts the CPU
// with interrupts disabled. It never returns.
func Panic(msg string) {
	disableInterruptsFn()
	kfmt.Printf("\n!!!!!   kernel assertion failed   !!!!!\n")
	kfmt.Printf("%s\n", msg)
	kfmt.Printf("!!!!!   system halted   !!!!!\n")
	haltFn()
}
