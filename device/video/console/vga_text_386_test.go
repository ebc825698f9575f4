package console

import (
	"bytes"
	"kestrel/kernel/cpu"
	"testing"
)

func newTestConsole(t *testing.T) (*VgaTextConsole, []uint16) {
	origFbSliceFn := fbSliceFn

	fb := make([]uint16, consoleWidth*consoleHeight)
	fbSliceFn = func() []uint16 { return fb }
	portWriteFn = func(uint16, uint8) {}

	t.Cleanup(func() {
		portWriteFn = cpu.PortWriteByte
		fbSliceFn = origFbSliceFn
	})

	var (
		cons VgaTextConsole
		buf  bytes.Buffer
	)
	if err := cons.DriverInit(&buf); err != nil {
		t.Fatal(err)
	}

	return &cons, fb
}

func readRow(fb []uint16, row int) string {
	var out []byte
	for col := 0; col < consoleWidth; col++ {
		ch := byte(fb[row*consoleWidth+col])
		if ch == ' ' {
			break
		}
		out = append(out, ch)
	}
	return string(out)
}

func TestDriverInitClearsScreen(t *testing.T) {
	_, fb := newTestConsole(t)

	for i, cell := range fb {
		if cell != clearChar {
			t.Fatalf("expected cell %d to hold the clear character; got 0x%x", i, cell)
		}
	}
}

func TestWriteRendersCharacters(t *testing.T) {
	cons, fb := newTestConsole(t)

	n, err := cons.Write([]byte("hello\nworld"))
	if err != nil || n != 11 {
		t.Fatalf("expected Write to report 11 bytes; got %d, %v", n, err)
	}

	if got := readRow(fb, 0); got != "hello" {
		t.Fatalf(`expected row 0 to read "hello"; got %q`, got)
	}

	if got := readRow(fb, 1); got != "world" {
		t.Fatalf(`expected row 1 to read "world"; got %q`, got)
	}

	if cons.cursorX != 5 || cons.cursorY != 1 {
		t.Fatalf("expected the cursor at (5,1); got (%d,%d)", cons.cursorX, cons.cursorY)
	}
}

func TestWriteScrollsAtBottom(t *testing.T) {
	cons, fb := newTestConsole(t)

	for row := 0; row < consoleHeight; row++ {
		cons.Write([]byte{'a' + byte(row%26), '\n'})
	}

	// The first row has scrolled off; the last write ended on a fresh
	// bottom row.
	if got := readRow(fb, 0); got != "b" {
		t.Fatalf(`expected row 0 to read "b" after scrolling; got %q`, got)
	}

	if got := readRow(fb, consoleHeight-1); got != "" {
		t.Fatalf("expected the bottom row to be clear; got %q", got)
	}

	if cons.cursorY != consoleHeight-1 {
		t.Fatalf("expected the cursor on the bottom row; got %d", cons.cursorY)
	}
}

func TestSetCursorProgramsCRTC(t *testing.T) {
	cons, _ := newTestConsole(t)

	type portWrite struct {
		port  uint16
		value uint8
	}
	var writes []portWrite
	portWriteFn = func(port uint16, value uint8) {
		writes = append(writes, portWrite{port, value})
	}

	cons.SetCursor(8, 2) // offset 168

	exp := []portWrite{
		{crtcAddrPort, cursorHighReg},
		{crtcDataPort, 0},
		{crtcAddrPort, cursorLowReg},
		{crtcDataPort, 168},
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
}
