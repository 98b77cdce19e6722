// Package httpkit provides shared HTTP request and response helpers.
// This is part of the platform layer and contains no business logic.
package httpkit

import (
	"net/http"

	"bharatcrm_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the wire format for every error the API returns.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

// Error writes an error body with the given status code.
func Error(c *gin.Context, status int, message string, details interface{}) {
	c.JSON(status, ErrorResponse{Error: message, Details: details})
}

// OK writes a 200 response with the payload.
func OK(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusOK, payload)
}

// Created writes a 201 response with the payload.
func Created(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusCreated, payload)
}

// HandleError translates a domain error into an HTTP response. Typed
// *apperr.Error values map through their Kind; anything else becomes a
// 400. It reports whether an error was written.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	if domainErr, ok := err.(*apperr.Error); ok {
		c.JSON(domainErr.HTTPStatus(), ErrorResponse{
			Error:   domainErr.Message,
			Details: domainErr.Details,
		})
		return true
	}

	c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	return true
}
