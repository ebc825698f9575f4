// Package hal probes the registered device drivers in detection order
// and wires the active console to the kernel's formatted output.
package hal

import (
	"bytes"
	"kestrel/device"
	"kestrel/device/video/console"
	"kestrel/kernel/kfmt"
	"sort"
)

// managedDevices contains the devices discovered by the HAL.
type managedDevices struct {
	activeConsole *console.VgaTextConsole

	// activeDrivers tracks all initialized device drivers.
	activeDrivers []device.Driver
}

var (
	devices managedDevices
	strBuf  bytes.Buffer

	// driverListFn is mocked by tests and is automatically inlined by
	// the compiler.
	driverListFn = device.DriverList
)

// ActiveConsole returns the currently active console device.
func ActiveConsole() *console.VgaTextConsole {
	return devices.activeConsole
}

// DetectHardware initializes the registered device drivers in
// detection order.
func DetectHardware() {
	drivers := driverListFn()
	sort.Sort(drivers)

	probe(drivers)
}

// probe executes the probe function for each driver and invokes
// onDriverInit for each successfully initialized driver.
func probe(driverInfoList device.DriverInfoList) {
	var w = kfmt.PrefixWriter{Sink: kfmt.ActiveSink()}

	for _, info := range driverInfoList {
		drv := info.Probe()
		if drv == nil {
			continue
		}

		strBuf.Reset()
		major, minor, patch := drv.DriverVersion()
		kfmt.Fprintf(&strBuf, "[hal] %s(%d.%d.%d): ", drv.DriverName(), major, minor, patch)
		w.Prefix = strBuf.Bytes()

		if err := drv.DriverInit(&w); err != nil {
			kfmt.Fprintf(&w, "init failed: %s\n", err.Message)
			continue
		}

		onDriverInit(drv)
		devices.activeDrivers = append(devices.activeDrivers, drv)
	}
}

// onDriverInit is invoked by probe() whenever a piece of hardware is
// detected and successfully initialized. The first console found
// becomes the kfmt output sink, which also flushes any buffered early
// boot output onto the screen.
func onDriverInit(drv device.Driver) {
	cons, isConsole := drv.(*console.VgaTextConsole)
	if !isConsole || devices.activeConsole != nil {
		return
	}

	devices.activeConsole = cons
	kfmt.SetOutputSink(cons)
}
