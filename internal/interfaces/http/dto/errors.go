package dto

import (
	"net/http"

	"github.com/partscatalog/backend/internal/domain/shared"
)

// Transport error codes. Domain errors keep their own code in the response.
const (
	ErrCodeInternal        = "ERR_INTERNAL"
	ErrCodeValidation      = "ERR_VALIDATION"
	ErrCodeBadRequest      = "ERR_BAD_REQUEST"
	ErrCodeInvalidJSON     = "ERR_INVALID_JSON"
	ErrCodeNotFound        = "ERR_NOT_FOUND"
	ErrCodeRateLimited     = "ERR_RATE_LIMITED"
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
	ErrCodeNotConfigured   = "ERR_NOT_CONFIGURED"
	// ErrCodeUpstream reports a failed call to the external catalog
	ErrCodeUpstream = "ERR_UPSTREAM"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:        http.StatusInternalServerError,
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeNotFound:        http.StatusNotFound,
	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeNotConfigured:   http.StatusConflict,
	ErrCodeUpstream:        http.StatusBadGateway,

	// Validation -> 400
	shared.CodeInvalidInput:      http.StatusBadRequest,
	shared.CodeInvalidParent:     http.StatusBadRequest,
	shared.CodeInvalidParentType: http.StatusBadRequest,
	shared.CodeParentRequired:    http.StatusBadRequest,
	shared.CodeSelfParent:        http.StatusBadRequest,
	shared.CodeCircularReference: http.StatusBadRequest,
	shared.CodeInvalidSlug:       http.StatusBadRequest,
	shared.CodeInvalidProductGID: http.StatusBadRequest,

	// Integrity guards -> 422
	shared.CodeHasChildren: http.StatusUnprocessableEntity,

	shared.CodeNotFound:      http.StatusNotFound,
	shared.CodeAlreadyExists: http.StatusConflict,

	shared.CodeCorruptHierarchy: http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
