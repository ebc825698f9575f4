// +build 386

package task

// switchTo saves the callee-saved registers of the outgoing task on its
// stack, records the resulting stack pointer in its control block,
// loads the incoming task's saved stack pointer and pops its registers.
// The ret at the end resumes the incoming task: either inside its own
// previous switchTo call or, for a first run, inside taskEntry.
func switchTo(cur, next *Task)

// taskEntry is the first-run trampoline. It is entered by the ret in
// switchTo with the thread function and its argument in the parameter
// slots of the constructed switchFrame. It enables interrupts and calls
// the thread function; this is the only place a new thread may start
// receiving interrupts.
func taskEntry()

// taskEntryAddr returns the entry address of taskEntry for use in the
// eip slot of a first-run switchFrame.
func taskEntryAddr() uintptr
