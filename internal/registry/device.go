package registry

import (
	"os"
	"os/exec"
	"strings"
)

// Device selects where a model runs.
type Device string

const (
	DeviceAuto Device = "auto"
	DeviceCPU  Device = "cpu"
	DeviceGPU  Device = "gpu"
)

// ParseDevice normalizes a configured device string. "cuda" is accepted
// as an alias for gpu.
func ParseDevice(s string) (Device, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return DeviceAuto, true
	case "cpu":
		return DeviceCPU, true
	case "gpu", "cuda":
		return DeviceGPU, true
	default:
		return "", false
	}
}

// DeviceProber resolves the auto device choice. The registry calls it at
// most once per process and memoizes the result.
type DeviceProber func() Device

// DefaultProber reports gpu when an NVIDIA accelerator is visible,
// otherwise cpu.
func DefaultProber() Device {
	if _, err := os.Stat("/dev/nvidia0"); err == nil {
		return DeviceGPU
	}
	if _, err := exec.LookPath("nvidia-smi"); err == nil {
		return DeviceGPU
	}
	return DeviceCPU
}
