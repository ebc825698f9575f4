// Package device defines the driver interface implemented by all device
// drivers and the registry the HAL probes at boot.
package device

import (
	"io"
	"kestrel/kernel"
)

// DetectOrder specifies when each driver's probe function is invoked
// relative to the other drivers. Lower values probe first.
type DetectOrder int

// The supported detection orders. The console must come up before
// anything that logs; the interrupt controller must be programmed
// before any driver that registers an IRQ handler.
const (
	DetectOrderEarly      DetectOrder = -100
	DetectOrderInterrupts DetectOrder = -50
	DetectOrderNormal     DetectOrder = 0
	DetectOrderLast       DetectOrder = 100
)

// ProbeFn checks for the presence of a particular piece of hardware and
// returns a driver for it or nil if the hardware is not present.
type ProbeFn func() Driver

// Driver is an interface implemented by all drivers.
type Driver interface {
	// DriverName returns the name of the driver.
	DriverName() string

	// DriverVersion returns the driver version.
	DriverVersion() (major uint16, minor uint16, patch uint16)

	// DriverInit initializes the device driver. Boot progress messages
	// go to w.
	DriverInit(w io.Writer) *kernel.Error
}

// DriverInfo describes a driver and the point during hardware detection
// where its probe function runs.
type DriverInfo struct {
	Order DetectOrder
	Probe ProbeFn
}

// DriverInfoList is a list of registered drivers that can be sorted by
// detection order.
type DriverInfoList []*DriverInfo

// Len returns the number of entries in the list.
func (l DriverInfoList) Len() int { return len(l) }

// Swap exchanges 2 elements in the list.
func (l DriverInfoList) Swap(i, j int) { l[i], l[j] = l[j], l[i] }

// Less compares 2 elements of the list by their detection order.
func (l DriverInfoList) Less(i, j int) bool { return l[i].Order < l[j].Order }

var registeredDrivers DriverInfoList

// RegisterDriver adds the supplied driver info to the list of drivers
// probed by the HAL. Drivers register themselves via an init block.
func RegisterDriver(info *DriverInfo) {
	registeredDrivers = append(registeredDrivers, info)
}

// DriverList returns the list of registered drivers.
func DriverList() DriverInfoList {
	return registeredDrivers
}
