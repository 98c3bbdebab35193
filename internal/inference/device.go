package inference

import (
	"fmt"
	"strings"
)

// Device is the hardware the classifier runs on. It is resolved once at
// startup and never changes afterwards.
type Device int

const (
	DeviceCPU Device = iota
	DeviceCUDA
	DeviceCoreML
)

func (d Device) String() string {
	switch d {
	case DeviceCUDA:
		return "cuda"
	case DeviceCoreML:
		return "coreml"
	default:
		return "cpu"
	}
}

// probeOrder is the preference order for automatic selection.
var probeOrder = []Device{DeviceCUDA, DeviceCoreML, DeviceCPU}

// DeviceProbe reports whether d can be used, returning nil if it can.
type DeviceProbe func(d Device) error

// ResolveDevice picks the device named by preference. "auto" (or empty)
// takes the first available entry of CUDA, CoreML, CPU. An explicit
// accelerator that is unavailable is an error. CPU is always available.
func ResolveDevice(preference string, probe DeviceProbe) (Device, error) {
	pref := strings.ToLower(strings.TrimSpace(preference))

	switch pref {
	case "", "auto":
		for _, d := range probeOrder {
			if d == DeviceCPU || probe(d) == nil {
				return d, nil
			}
		}
		return DeviceCPU, nil
	case "cpu":
		return DeviceCPU, nil
	case "cuda", "coreml":
		d := DeviceCUDA
		if pref == "coreml" {
			d = DeviceCoreML
		}
		if err := probe(d); err != nil {
			return DeviceCPU, fmt.Errorf("device %s unavailable: %w", d, err)
		}
		return d, nil
	default:
		return DeviceCPU, fmt.Errorf("unknown device %q", preference)
	}
}
