// +build 386

// Package task implements kernel threads: page-colocated control
// blocks, the FIFO ready queue, the preemptive scheduler and the
// blocking primitives the synchronization layer is built on.
package task

import (
	"kestrel/kernel"
	"kestrel/kernel/cpu"
	"kestrel/kernel/debug"
	"kestrel/kernel/kfmt"
	"kestrel/kernel/list"
	"kestrel/kernel/mem"
	"kestrel/kernel/mem/vmm"
	"unsafe"
)

// State describes the scheduling state of a task.
type State uint8

// The task states. A Running task is never on the ready queue; a Ready
// task always is; the three blocked flavors are on a wait queue or
// parked by their owner.
const (
	Running State = iota
	Ready
	Blocked
	Waiting
	Hanging
	Dead
)

// EntryFn is the function a kernel thread executes. It receives the
// opaque argument supplied to Start.
type EntryFn func(arg uintptr)

const (
	nameLen = 16

	// stackGuardMagic is written to the low end of every task page. The
	// kernel stack grows down from the high end of the same page; the
	// guard must remain intact on every preemption.
	stackGuardMagic = 0x19870916

	// mainPriority is the quantum assigned to the bootstrap task.
	mainPriority = 31
)

// Task is the control block describing one schedulable entity. It
// occupies the low end of a page-aligned page whose high end serves as
// the task's kernel stack. The running task is recovered by masking the
// low bits off the current stack pointer, so the struct layout pins
// kernelStackTop at offset 0 (it is accessed from the context switch)
// and the stack guard right after the last field.
type Task struct {
	// kernelStackTop holds the saved stack pointer while the task is
	// not running. For a task that has never run it points at the
	// constructed switchFrame below the reserved interrupt frame.
	kernelStackTop uintptr

	// Status must only be mutated with interrupts disabled.
	Status State

	name [nameLen]byte

	// Priority doubles as the quantum refill value: a task runs for
	// Priority ticks before it rotates to the back of the ready queue.
	Priority       uint8
	TicksRemaining uint8

	// ElapsedTicks counts every tick this task spent on the CPU.
	ElapsedTicks uint32

	// PageDir holds the virtual address of a dedicated page directory
	// for tasks that own one; it is zero for kernel threads sharing the
	// kernel address space.
	PageDir uintptr

	// GeneralLink enqueues the task on the ready queue or on a wait
	// queue; AllLink enqueues it on the all-tasks list. Each link can
	// be on at most one list at a time.
	GeneralLink list.Elem
	AllLink     list.Elem

	stackGuard uint32
}

// interruptFrame mirrors the register image pushed by the interrupt
// entry trampolines. Space for one is reserved at the top of every new
// task stack so a future transition out of ring 0 has a place to build
// its return frame.
type interruptFrame struct {
	vector                                 uint32
	edi, esi, ebp, espDummy                uint32
	ebx, edx, ecx, eax                     uint32
	gs, fs, es, ds                         uint32
	errCode, eip, cs, eflags, espUser, ss  uint32
}

// switchFrame is the callee-saved register image consumed by switchTo.
// For a task that has never run, eip holds the first-run trampoline and
// the two parameter slots hold the thread function and its argument;
// the ret executed by switchTo enters the trampoline with both in the
// canonical parameter positions.
type switchFrame struct {
	ebp, ebx, edi, esi uintptr

	eip           uintptr
	unusedRetAddr uintptr
	entry         uintptr
	arg           uintptr
}

var (
	mainTask *Task

	generalLinkOffset = unsafe.Offsetof(Task{}.GeneralLink)
	allLinkOffset     = unsafe.Offsetof(Task{}.AllLink)

	// the following functions are mocked by tests and are automatically
	// inlined by the compiler.
	stackPointerFn   = cpu.StackPointer
	getKernelPagesFn = vmm.GetKernelPages
	taskEntryAddrFn  = taskEntryAddr
)

// Current returns the control block of the running task. Each task's
// kernel stack lives inside its own control-block page, so masking the
// low bits off the stack pointer yields the page base.
func Current() *Task {
	return (*Task)(unsafe.Pointer(stackPointerFn() &^ uintptr(mem.PageSize-1)))
}

// FromGeneralLink recovers the task embedding the supplied ready/wait
// queue link.
func FromGeneralLink(elem *list.Elem) *Task {
	return (*Task)(unsafe.Pointer(uintptr(unsafe.Pointer(elem)) - generalLinkOffset))
}

// FromAllLink recovers the task embedding the supplied all-tasks link.
func FromAllLink(elem *list.Elem) *Task {
	return (*Task)(unsafe.Pointer(uintptr(unsafe.Pointer(elem)) - allLinkOffset))
}

// Name returns the task name.
func (t *Task) Name() string {
	var end int
	for ; end < nameLen && t.name[end] != 0; end++ {
	}
	return string(t.name[:end])
}

// StackGuardOK reports whether the guard word at the low end of the
// task page is still intact.
func (t *Task) StackGuardOK() bool {
	return t.stackGuard == stackGuardMagic
}

// initTask clears the whole control block and fills in the initial
// scheduling state. The bootstrap task is already executing so it
// starts out Running; everything else starts Ready.
func initTask(t *Task, name string, priority uint8) {
	kernel.Memset(uintptr(unsafe.Pointer(t)), 0, unsafe.Sizeof(Task{}))

	for i := 0; i < len(name) && i < nameLen-1; i++ {
		t.name[i] = name[i]
	}

	if t == mainTask {
		t.Status = Running
	} else {
		t.Status = Ready
	}

	t.kernelStackTop = uintptr(unsafe.Pointer(t)) + uintptr(mem.PageSize)
	t.Priority = priority
	t.TicksRemaining = priority
	t.stackGuard = stackGuardMagic
}

// buildStack reserves room for an interrupt frame at the top of the
// task page and constructs the first-run switchFrame below it.
func buildStack(t *Task, fn EntryFn, arg uintptr) {
	t.kernelStackTop -= unsafe.Sizeof(interruptFrame{})
	t.kernelStackTop -= unsafe.Sizeof(switchFrame{})

	frame := (*switchFrame)(unsafe.Pointer(t.kernelStackTop))
	frame.ebp, frame.ebx, frame.edi, frame.esi = 0, 0, 0, 0
	frame.eip = taskEntryAddrFn()
	frame.entry = *(*uintptr)(unsafe.Pointer(&fn))
	frame.arg = arg
}

// Start allocates a control-block page for a new kernel thread, builds
// its first-run stack and appends it to the ready queue and the
// all-tasks list. The thread begins executing fn(arg) with interrupts
// enabled the first time the scheduler picks it.
func Start(name string, priority uint8, fn EntryFn, arg uintptr) (*Task, *kernel.Error) {
	pageAddr, err := getKernelPagesFn(1)
	if err != nil {
		return nil, err
	}

	t := (*Task)(unsafe.Pointer(pageAddr))
	initTask(t, name, priority)
	buildStack(t, fn, arg)

	debug.Assert(!readyList.Find(&t.GeneralLink), "task.Start: new task already on the ready queue")
	readyList.Append(&t.GeneralLink)
	debug.Assert(!allList.Find(&t.AllLink), "task.Start: new task already on the all-tasks list")
	allList.Append(&t.AllLink)

	return t, nil
}

// Init retrofits the boot routine as the first task: its control block
// lives in the page the boot loader placed the initial stack in, so it
// is located by masking the stack pointer and initialized in place. The
// bootstrap task is already running and therefore only joins the
// all-tasks list.
func Init() {
	readyList.Init()
	allList.Init()

	mainTask = Current()
	initTask(mainTask, "main", mainPriority)

	debug.Assert(!allList.Find(&mainTask.AllLink), "task.Init: main task already on the all-tasks list")
	allList.Append(&mainTask.AllLink)

	kfmt.Printf("[task] scheduler ready, main task at 0x%x\n", uint32(uintptr(unsafe.Pointer(mainTask))))
}
