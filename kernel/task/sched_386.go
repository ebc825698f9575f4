// +build 386

package task

import (
	"kestrel/kernel/debug"
	"kestrel/kernel/irq"
	"kestrel/kernel/list"
)

var (
	// readyList is the FIFO queue of Ready tasks. allList tracks every
	// task in the system regardless of state.
	readyList list.List
	allList   list.List

	// the following functions are mocked by tests and are automatically
	// inlined by the compiler.
	switchToFn   = switchTo
	irqGetFn     = irq.Get
	irqDisableFn = irq.Disable
	irqSetFn     = irq.Set
)

// Schedule hands the CPU to the task at the head of the ready queue.
// It must be called with interrupts disabled, either from the timer
// handler on quantum exhaustion or from Block.
//
// A task that is still Running rotates to the tail of the queue with a
// refilled quantum; a task that blocked itself stays off the queue and
// is not re-linked.
func Schedule() {
	debug.Assert(irqGetFn() == irq.StatusOff, "task.Schedule: interrupts are enabled")

	cur := Current()
	if cur.Status == Running {
		debug.Assert(!readyList.Find(&cur.GeneralLink), "task.Schedule: running task is on the ready queue")
		readyList.Append(&cur.GeneralLink)
		cur.TicksRemaining = cur.Priority
		cur.Status = Ready
	}

	debug.Assert(!readyList.Empty(), "task.Schedule: ready queue is empty")

	next := FromGeneralLink(readyList.Pop())
	next.Status = Running
	switchToFn(cur, next)
}

// Block takes the current task off the CPU in the supplied state. The
// state must be one of the blocked flavors so Schedule will not re-link
// the task. Execution resumes here after a matching Unblock, at which
// point the prior interrupt state is restored.
func Block(newState State) {
	debug.Assert(newState == Blocked || newState == Waiting || newState == Hanging,
		"task.Block: state is not a blocked state")

	prev := irqDisableFn()
	cur := Current()
	cur.Status = newState
	Schedule()
	irqSetFn(prev)
}

// Unblock makes a blocked task runnable again. The task is pushed to
// the head of the ready queue so freshly woken work runs ahead of tasks
// that merely rotated out.
func Unblock(t *Task) {
	prev := irqDisableFn()

	debug.Assert(t.Status == Blocked || t.Status == Waiting || t.Status == Hanging,
		"task.Unblock: target task is not blocked")

	if t.Status != Ready {
		debug.Assert(!readyList.Find(&t.GeneralLink), "task.Unblock: blocked task is on the ready queue")
		readyList.Push(&t.GeneralLink)
		t.Status = Ready
	}

	irqSetFn(prev)
}
