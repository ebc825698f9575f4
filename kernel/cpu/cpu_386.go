package cpu

// EnableInterrupts sets the interrupt flag allowing maskable interrupts
// to be delivered. The flag is toggled through EFLAGS; outside ring 0
// the CPU silently ignores the toggle, which keeps this function safe
// to reach from user-mode tests.
func EnableInterrupts()

// DisableInterrupts clears the interrupt flag. See EnableInterrupts for
// the behavior outside ring 0.
func DisableInterrupts()

// InterruptsEnabled returns true if the interrupt flag in EFLAGS is set.
func InterruptsEnabled() bool

// Halt stops instruction execution with interrupts disabled. It is used
// as the final resting place for unrecoverable errors and never returns.
// Calling it in user-mode will cause a fault.
func Halt()

// StackPointer returns the current value of the ESP register.
func StackPointer() uintptr

// ReadCR2 returns the value stored in the CR2 register. When a page
// fault occurs, CR2 holds the linear address that triggered it. Calling
// it in user-mode will cause a fault.
func ReadCR2() uintptr

// LoadIDT loads the 6-byte IDT pseudo-descriptor at the supplied
// address into the IDTR register. Calling it in user-mode will cause a
// fault.
func LoadIDT(descriptor uintptr)

// PortWriteByte writes value to the supplied I/O port. Calling it in
// user-mode will cause a fault.
func PortWriteByte(port uint16, value uint8)

// PortReadByte reads a byte from the supplied I/O port. Calling it in
// user-mode will cause a fault.
func PortReadByte(port uint16) uint8
