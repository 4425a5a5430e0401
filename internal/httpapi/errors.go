package httpapi

import (
	"context"
	"errors"
	"net/http"

	"voxscribed/internal/coordinator"
	"voxscribed/pkg/types"
)

// classify maps coordinator errors to an HTTP status and error kind.
func classify(err error) (int, string) {
	switch {
	case coordinator.IsValidation(err):
		return http.StatusBadRequest, "validation"
	case coordinator.IsCapacity(err):
		return http.StatusTooManyRequests, "capacity"
	case coordinator.IsModelLoad(err):
		return http.StatusServiceUnavailable, "model_load"
	case coordinator.IsTimeout(err):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	}
	if ok, client := coordinator.IsInference(err); ok {
		if client {
			return http.StatusBadRequest, "inference"
		}
		return http.StatusInternalServerError, "inference"
	}
	return http.StatusInternalServerError, "internal"
}

// writeError writes the consistent JSON error payload.
func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, types.ErrorResponse{Kind: kind, Message: msg})
}
