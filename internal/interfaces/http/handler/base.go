// Package handler holds the gin handlers of the admin API. Handlers bind and
// validate requests, call one application service and wrap the result in
// the standard envelope.
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/partscatalog/backend/internal/domain/projection"
	"github.com/partscatalog/backend/internal/domain/shared"
	"github.com/partscatalog/backend/internal/infrastructure/logger"
	"github.com/partscatalog/backend/internal/interfaces/http/dto"
	"github.com/partscatalog/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a 200 response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessList sends a 200 response with list meta
func (h *BaseHandler) SuccessList(c *gin.Context, data any, total, limit int) {
	c.JSON(http.StatusOK, dto.NewListResponse(data, total, limit))
}

// Created sends a 201 response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with an explicit status
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// InternalError sends a 500 response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// HandleError maps an error returned by a service to a response. Domain
// errors keep their code; a corrupt hierarchy is a 500 with its own code;
// a failed catalog call is a 502. Anything else is logged and hidden.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		h.Error(c, dto.GetHTTPStatus(domainErr.Code), domainErr.Code, domainErr.Message)
		return
	}

	var corrupt *shared.CorruptHierarchyError
	if errors.As(err, &corrupt) {
		logger.L(c.Request.Context()).Error("Hierarchy walk aborted", zap.Error(err))
		h.Error(c, http.StatusInternalServerError, corrupt.Code(), corrupt.Error())
		return
	}

	var writeErr *projection.ExternalWriteError
	if errors.As(err, &writeErr) {
		h.Error(c, http.StatusBadGateway, dto.ErrCodeUpstream, writeErr.Error())
		return
	}

	if errors.Is(err, context.DeadlineExceeded) {
		h.Error(c, http.StatusGatewayTimeout, dto.ErrCodeInternal, "Request timed out")
		return
	}

	logger.L(c.Request.Context()).Error("Unhandled error", zap.Error(err))
	h.InternalError(c, "An unexpected error occurred")
}

// BindJSON binds the body into req. On failure it has already written a
// 400 and returns false.
func (h *BaseHandler) BindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		if middleware.IsValidationError(err) {
			middleware.HandleValidationError(c, err)
			return false
		}
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// BindQuery binds query parameters into req, answering 400 on failure
func (h *BaseHandler) BindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		if middleware.IsValidationError(err) {
			middleware.HandleValidationError(c, err)
			return false
		}
		h.BadRequest(c, err.Error())
		return false
	}
	return true
}

// ParamUUID parses a uuid path parameter, answering 400 on failure
func (h *BaseHandler) ParamUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.BadRequest(c, "Invalid "+name+" format")
		return uuid.Nil, false
	}
	return id, true
}
