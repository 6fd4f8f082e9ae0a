package dto

import (
	"net/http"
	"testing"

	"github.com/partscatalog/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{shared.CodeInvalidParentType, http.StatusBadRequest},
		{shared.CodeCircularReference, http.StatusBadRequest},
		{shared.CodeInvalidProductGID, http.StatusBadRequest},
		{shared.CodeHasChildren, http.StatusUnprocessableEntity},
		{shared.CodeAlreadyExists, http.StatusConflict},
		{shared.CodeNotFound, http.StatusNotFound},
		{shared.CodeCorruptHierarchy, http.StatusInternalServerError},
		{ErrCodeUpstream, http.StatusBadGateway},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, GetHTTPStatus(tt.code))
		})
	}
}

func TestNewValidationErrorResponse(t *testing.T) {
	resp := NewValidationErrorResponse("Request validation failed", "req-9", []ValidationDetail{{Field: "make", Message: "This field is required"}})
	assert.False(t, resp.Success)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-9", resp.Error.RequestID)
	assert.Len(t, resp.Error.Details, 1)
}
