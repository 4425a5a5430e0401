package engine

// inputError marks an inference failure traced to the uploaded audio
// (malformed or undecodable after intake) rather than the runtime.
type inputError struct{ msg string }

func (e inputError) Error() string { return e.msg }

// ErrBadInput constructs an input-attributed inference error.
func ErrBadInput(msg string) error { return inputError{msg: msg} }

// IsBadInput reports whether err is traced to the uploaded audio.
func IsBadInput(err error) bool {
	_, ok := err.(inputError)
	return ok
}

// assetMissingError signals that the model asset is not present on disk,
// so the load cannot succeed until the asset is installed.
type assetMissingError struct{ path string }

func (e assetMissingError) Error() string { return "model asset not found: " + e.path }

// ErrAssetMissing constructs an assetMissingError.
func ErrAssetMissing(path string) error { return assetMissingError{path: path} }

// IsAssetMissing reports whether err indicates a missing model asset.
func IsAssetMissing(err error) bool {
	_, ok := err.(assetMissingError)
	return ok
}
