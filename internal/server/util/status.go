package util

import (
	"context"
	"errors"
	"net/http"

	"github.com/OFFIS-RIT/nafstore/pkg/layer"
	"github.com/OFFIS-RIT/nafstore/pkg/scopelock"
)

// StatusFor maps a store or assembler error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, layer.ErrUnknownLayer):
		return http.StatusBadRequest
	case errors.Is(err, layer.ErrPrerequisiteMissing):
		return http.StatusUnprocessableEntity
	case errors.Is(err, layer.ErrWriteFailed):
		return http.StatusConflict
	case errors.Is(err, layer.ErrStoreUnavailable), errors.Is(err, scopelock.ErrBusy):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// Message returns the client facing text for err. Internal errors are not
// exposed.
func Message(err error) string {
	if StatusFor(err) == http.StatusInternalServerError {
		return "Internal server error"
	}
	return err.Error()
}
