package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/partscatalog/backend/internal/interfaces/http/dto"
)

// RequestIDKey is the gin context key holding the request id
const RequestIDKey = "X-Request-ID"

// SetupValidator makes binding errors report json (or form) field names
func SetupValidator() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			}
			return name
		})
	}
}

// IsValidationError reports whether err came from the struct validator
func IsValidationError(err error) bool {
	var verrs validator.ValidationErrors
	return errors.As(err, &verrs)
}

// FormatValidationErrors turns validator errors into the standard error body
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, e := range verrs {
			details = append(details, dto.ValidationDetail{
				Field:   e.Field(),
				Message: getValidationMessage(e),
			})
		}
	}
	return dto.NewValidationErrorResponse("Request validation failed", requestID, details)
}

// HandleValidationError answers 400 with per-field details
func HandleValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, FormatValidationErrors(err, GetRequestID(c)))
}

// GetRequestID returns the request id set by the logging middleware or sent by the client
func GetRequestID(c *gin.Context) string {
	if id := c.GetString(RequestIDKey); id != "" {
		return id
	}
	return c.GetHeader(RequestIDKey)
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "required_with":
		return "Required when " + strings.ToLower(e.Param()) + " is set"
	case "min":
		if e.Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		return "Must contain at least " + e.Param() + " items"
	case "max":
		if e.Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		if e.Kind() == reflect.Slice {
			return "Must contain at most " + e.Param() + " items"
		}
		return "Must be at most " + e.Param()
	case "uuid":
		return "Invalid UUID format"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "gte":
		return "Must be greater than or equal to " + e.Param()
	case "lte":
		return "Must be less than or equal to " + e.Param()
	case "url":
		return "Invalid URL format"
	case "dive":
		return "Invalid item"
	default:
		return "Invalid value"
	}
}
