package shared

import "fmt"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError with the same code.
// This lets callers match on errors.Is(err, shared.ErrNotFound) even when
// the message differs.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewDomainErrorf creates a new domain error with a formatted message
func NewDomainErrorf(code, format string, args ...any) *DomainError {
	return NewDomainError(code, fmt.Sprintf(format, args...))
}

// Error codes shared across the taxonomy and linkage contexts
const (
	CodeNotFound          = "NOT_FOUND"
	CodeAlreadyExists     = "ALREADY_EXISTS"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeInvalidParent     = "INVALID_PARENT"
	CodeInvalidParentType = "INVALID_PARENT_TYPE"
	CodeParentRequired    = "PARENT_REQUIRED"
	CodeSelfParent        = "SELF_PARENT"
	CodeCircularReference = "CIRCULAR_REFERENCE"
	CodeHasChildren       = "HAS_CHILDREN"
	CodeCorruptHierarchy  = "CORRUPT_HIERARCHY"
	CodeInvalidSlug       = "INVALID_SLUG"
	CodeInvalidProductGID = "INVALID_PRODUCT_GID"
)

// Common domain errors
var (
	ErrNotFound      = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInvalidInput  = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrHasChildren   = NewDomainError(CodeHasChildren, "Node has children and cannot be deleted")
)

// CorruptHierarchyError reports a parent chain that never reaches a root:
// either a cycle or a chain deeper than the allowed maximum.
type CorruptHierarchyError struct {
	Hierarchy string
	StartID   string
	Depth     int
}

// Error implements the error interface
func (e *CorruptHierarchyError) Error() string {
	return fmt.Sprintf("%s hierarchy is corrupt: walk from %s did not reach a root within %d steps",
		e.Hierarchy, e.StartID, e.Depth)
}

// Code returns the error code used by the HTTP layer
func (e *CorruptHierarchyError) Code() string {
	return CodeCorruptHierarchy
}
