package registry

// loadError wraps a failed model load so callers can map it to a
// service-unavailable outcome.
type loadError struct {
	key ModelKey
	err error
}

func (e loadError) Error() string {
	return "load model " + e.key.Name + " on " + string(e.key.Device) + ": " + e.err.Error()
}

func (e loadError) Unwrap() error { return e.err }

// IsLoadError reports whether err originated in a model load.
func IsLoadError(err error) bool {
	_, ok := err.(loadError)
	return ok
}

// unknownDeviceError signals an unparseable device in a ModelKey.
type unknownDeviceError struct{ device string }

func (e unknownDeviceError) Error() string { return "unknown device: " + e.device }

// IsUnknownDevice reports whether err indicates a bad device value.
func IsUnknownDevice(err error) bool {
	_, ok := err.(unknownDeviceError)
	return ok
}
