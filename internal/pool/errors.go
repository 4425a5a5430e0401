package pool

import "fmt"

// queueFullError signals backpressure: every worker busy and the queue
// at capacity. Retryable by the client.
type queueFullError struct{ depth int }

func (e queueFullError) Error() string {
	return fmt.Sprintf("worker queue full (depth %d)", e.depth)
}

// IsQueueFull reports whether err indicates queue overflow.
func IsQueueFull(err error) bool {
	_, ok := err.(queueFullError)
	return ok
}

// poolClosedError signals a submit after Close, i.e. during shutdown.
type poolClosedError struct{}

func (poolClosedError) Error() string { return "worker pool closed" }

// IsClosed reports whether err indicates the pool has shut down.
func IsClosed(err error) bool {
	_, ok := err.(poolClosedError)
	return ok
}
