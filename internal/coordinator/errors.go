package coordinator

import (
	"fmt"
	"time"
)

// validationError marks input rejected before any resource was consumed.
type validationError struct{ msg string }

func (e validationError) Error() string { return e.msg }

// ErrValidation constructs a validation error.
func ErrValidation(msg string) error { return validationError{msg: msg} }

// IsValidation reports whether err is a pre-admission input rejection.
func IsValidation(err error) bool {
	_, ok := err.(validationError)
	return ok
}

// capacityError marks a retryable service-busy rejection (queue full or
// pool shutting down).
type capacityError struct{ err error }

func (e capacityError) Error() string { return "service busy: " + e.err.Error() }
func (e capacityError) Unwrap() error { return e.err }

// ErrCapacity wraps err as a backpressure rejection.
func ErrCapacity(err error) error { return capacityError{err: err} }

// IsCapacity reports whether err indicates backpressure.
func IsCapacity(err error) bool {
	_, ok := err.(capacityError)
	return ok
}

// modelLoadError marks a failed model load, surfaced after the internal
// retry is exhausted.
type modelLoadError struct{ err error }

func (e modelLoadError) Error() string { return "model load failed: " + e.err.Error() }
func (e modelLoadError) Unwrap() error { return e.err }

// ErrModelLoad wraps err as a load failure.
func ErrModelLoad(err error) error { return modelLoadError{err: err} }

// IsModelLoad reports whether err originated in a model load.
func IsModelLoad(err error) bool {
	_, ok := err.(modelLoadError)
	return ok
}

// inferenceError marks a failure during model execution. Client is true
// when the cause traces to the uploaded input.
type inferenceError struct {
	err    error
	client bool
}

func (e inferenceError) Error() string { return "inference failed: " + e.err.Error() }
func (e inferenceError) Unwrap() error { return e.err }

// ErrInference wraps err as an execution failure; client attributes the
// cause to the uploaded input.
func ErrInference(err error, client bool) error { return inferenceError{err: err, client: client} }

// IsInference reports whether err occurred during model execution;
// client reports whether the cause is input-attributed.
func IsInference(err error) (ok, client bool) {
	ie, ok := err.(inferenceError)
	return ok, ok && ie.client
}

// timeoutError marks a job that exceeded its configured ceiling.
type timeoutError struct{ after time.Duration }

func (e timeoutError) Error() string {
	return fmt.Sprintf("job exceeded %s ceiling", e.after)
}

// ErrTimeout marks a job as having exceeded the given ceiling.
func ErrTimeout(after time.Duration) error { return timeoutError{after: after} }

// IsTimeout reports whether err indicates the per-job ceiling expired.
func IsTimeout(err error) bool {
	_, ok := err.(timeoutError)
	return ok
}
