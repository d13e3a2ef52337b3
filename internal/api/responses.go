package api

import (
	"errors"
	"net/http"

	"becard/internal/apperr"
	"becard/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type ErrorResponse struct {
	Error string `json:"error" example:"something went wrong"`
	Code  string `json:"code,omitempty" example:"ALREADY_ASSIGNED"`
}

type MessageResponse struct {
	Message string `json:"message" example:"ok"`
}

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

// StatusFor maps an error kind to the HTTP status used for it.
func StatusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict, apperr.KindInvalidState:
		return http.StatusConflict
	case apperr.KindInsufficientFunds:
		return http.StatusPaymentRequired
	case apperr.KindValidation, apperr.KindUserRequired:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func RespondError(c *gin.Context, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err.Error(),
		)
		c.JSON(status, ErrorResponse{Error: "internal error"})
		return
	}

	resp := ErrorResponse{Error: err.Error(), Code: apperr.CodeOf(err)}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		resp.Error = ae.Msg
	}
	c.JSON(status, resp)
}

func RespondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid field " + fe.Field() + ": " + fe.Tag(),
			Code:  "VALIDATION_ERROR",
		})
		return
	}
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "VALIDATION_ERROR"})
}
