package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/railzwaylabs/plansync/internal/plan/domain"
	"github.com/railzwaylabs/plansync/internal/stripe"
)

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func respondData(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"data": data})
}

func respondList(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"data": data})
}

// AbortWithError maps domain errors to status codes.
func AbortWithError(c *gin.Context, err error) {
	status, kind := http.StatusInternalServerError, "internal_error"
	switch {
	case errors.Is(err, domain.ErrPlanNotFound):
		status, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, stripe.ErrInvalidSignature), errors.Is(err, stripe.ErrExpiredSignature):
		status, kind = http.StatusBadRequest, "invalid_signature"
	case errors.Is(err, stripe.ErrInvalidPayload), errors.Is(err, stripe.ErrInvalidEvent):
		status, kind = http.StatusBadRequest, "invalid_request"
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: ErrorBody{Type: kind, Message: err.Error()}})
}
