package errors

import (
	"context"
	stderrors "errors"
	"net/http"
	"sync"

	"gorm.io/gorm"
)

type mapping struct {
	target     error
	statusCode int
	code       string
}

var (
	mappingsMu sync.RWMutex
	mappings   = []mapping{
		{gorm.ErrRecordNotFound, http.StatusNotFound, "NOT_FOUND"},
		{context.DeadlineExceeded, http.StatusGatewayTimeout, "TIMEOUT"},
		{context.Canceled, 499, "CANCELED"},
	}
)

// Register maps a sentinel error to a status and code for FromError.
// Later registrations win over earlier ones.
func Register(target error, statusCode int, code string) {
	mappingsMu.Lock()
	defer mappingsMu.Unlock()
	mappings = append([]mapping{{target, statusCode, code}}, mappings...)
}

// FromError converts err to an AppError. AppErrors anywhere in the chain are
// returned as-is, registered sentinels get their status, anything else is a
// 500 that hides the cause.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	mappingsMu.RLock()
	defer mappingsMu.RUnlock()
	for _, m := range mappings {
		if stderrors.Is(err, m.target) {
			return NewError(m.statusCode, m.code, m.target.Error()).Wrap(err)
		}
	}
	return NewInternalServerError("INTERNAL_ERROR", "an unexpected error occurred").Wrap(err)
}

// GetStatusCode returns the HTTP status for err
func GetStatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return FromError(err).StatusCode
}

// GetErrorCode returns the machine code for err
func GetErrorCode(err error) string {
	if err == nil {
		return ""
	}
	return FromError(err).Code
}
