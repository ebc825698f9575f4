// +build 386

// Package console implements an EGA-compatible 80x25 text-mode console
// on the VGA framebuffer.
package console

import (
	"io"
	"kestrel/device"
	"kestrel/kernel"
	"kestrel/kernel/cpu"
	"reflect"
	"unsafe"
)

const (
	consoleWidth  = 80
	consoleHeight = 25

	// fbVirtAddr is the text-mode framebuffer as seen through the
	// higher-half kernel window.
	fbVirtAddr = uintptr(0xc00b8000)

	// Each cell holds the character in the low byte and the color
	// attribute in the high byte. Light gray on black is the classic
	// default.
	defaultAttr = uint16(0x07) << 8
	clearChar   = defaultAttr | uint16(' ')

	// The CRT controller register pair driving the hardware cursor.
	crtcAddrPort = 0x3d4
	crtcDataPort = 0x3d5

	cursorHighReg = 0x0e
	cursorLowReg  = 0x0f
)

var (
	// the following functions are mocked by tests and are automatically
	// inlined by the compiler.
	portWriteFn = cpu.PortWriteByte
	fbSliceFn   = func() []uint16 {
		return *(*[]uint16)(unsafe.Pointer(&reflect.SliceHeader{
			Len:  consoleWidth * consoleHeight,
			Cap:  consoleWidth * consoleHeight,
			Data: fbVirtAddr,
		}))
	}
)

// VgaTextConsole renders characters into the VGA mode-3 framebuffer and
// tracks an implicit cursor that is mirrored to the CRT controller. It
// implements io.Writer so it can serve as the kfmt output sink.
type VgaTextConsole struct {
	fb []uint16

	cursorX, cursorY uint32
}

// DriverName returns the name of the driver.
func (cons *VgaTextConsole) DriverName() string { return "vga-text" }

// DriverVersion returns the driver version.
func (cons *VgaTextConsole) DriverVersion() (uint16, uint16, uint16) { return 0, 1, 0 }

// DriverInit attaches the framebuffer and clears the screen.
func (cons *VgaTextConsole) DriverInit(w io.Writer) *kernel.Error {
	cons.fb = fbSliceFn()
	cons.Clear()
	return nil
}

// Dimensions returns the console width and height in characters.
func (cons *VgaTextConsole) Dimensions() (uint32, uint32) {
	return consoleWidth, consoleHeight
}

// Clear fills the framebuffer with the clear character and homes the
// cursor.
func (cons *VgaTextConsole) Clear() {
	for i := range cons.fb {
		cons.fb[i] = clearChar
	}
	cons.SetCursor(0, 0)
}

// SetCursor moves the implicit cursor and syncs the blinking hardware
// cursor to the same cell.
func (cons *VgaTextConsole) SetCursor(x, y uint32) {
	cons.cursorX, cons.cursorY = x, y

	offset := uint16(y*consoleWidth + x)
	portWriteFn(crtcAddrPort, cursorHighReg)
	portWriteFn(crtcDataPort, uint8(offset>>8))
	portWriteFn(crtcAddrPort, cursorLowReg)
	portWriteFn(crtcDataPort, uint8(offset))
}

// Write renders p at the cursor position scrolling as needed. It never
// fails; the returned count always equals len(p).
func (cons *VgaTextConsole) Write(p []byte) (int, error) {
	for _, b := range p {
		cons.writeByte(b)
	}
	cons.SetCursor(cons.cursorX, cons.cursorY)
	return len(p), nil
}

func (cons *VgaTextConsole) writeByte(b byte) {
	switch b {
	case '\n':
		cons.cursorX = 0
		cons.cursorY++
	case '\r':
		cons.cursorX = 0
	case '\b':
		if cons.cursorX > 0 {
			cons.cursorX--
			cons.fb[cons.cursorY*consoleWidth+cons.cursorX] = clearChar
		}
	default:
		cons.fb[cons.cursorY*consoleWidth+cons.cursorX] = defaultAttr | uint16(b)
		cons.cursorX++
		if cons.cursorX == consoleWidth {
			cons.cursorX = 0
			cons.cursorY++
		}
	}

	if cons.cursorY == consoleHeight {
		cons.scrollUp()
		cons.cursorY = consoleHeight - 1
	}
}

// scrollUp shifts every row one line up and clears the bottom row.
func (cons *VgaTextConsole) scrollUp() {
	copy(cons.fb, cons.fb[consoleWidth:])
	for i := (consoleHeight - 1) * consoleWidth; i < consoleHeight*consoleWidth; i++ {
		cons.fb[i] = clearChar
	}
}

func probeForVgaText() device.Driver {
	return &VgaTextConsole{}
}

func init() {
	device.RegisterDriver(&device.DriverInfo{
		Order: device.DetectOrderEarly,
		Probe: probeForVgaText,
	})
}
