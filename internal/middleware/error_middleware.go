package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yigit/substitutions/internal/app/models/dto"
	"github.com/yigit/substitutions/internal/pkg/apperrors"
)

// HandleAPIError maps application errors to HTTP responses
func HandleAPIError(c *gin.Context, err error) {
	_ = c.Error(err)

	switch {
	case apperrors.Is(err, apperrors.ErrRelationNotFound, apperrors.ErrResourceNotFound):
		c.JSON(http.StatusNotFound, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, apperrors.StatusMessage(err, "Substitution not found")),
		))
	case apperrors.Is(err, apperrors.ErrValidationFailed, apperrors.ErrBadRequest):
		var details interface{} = err.Error()
		if d := apperrors.DetailsOf(err); d != nil {
			details = d
		}
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeValidationFailed, apperrors.StatusMessage(err, "Validation failed")).
				WithDetails(details),
		))
	case errors.Is(err, apperrors.ErrSourceUnavailable):
		c.JSON(http.StatusBadGateway, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeSourceUnavailable, "Substitution data could not be loaded"),
		))
	case errors.Is(err, apperrors.ErrInvalidPayload):
		c.JSON(http.StatusUnprocessableEntity, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeInvalidPayload, "Substitution data is malformed"),
		))
	case errors.Is(err, apperrors.ErrServiceClosed):
		c.JSON(http.StatusServiceUnavailable, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeServiceUnavailable, "Service is shutting down"),
		))
	default:
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error"),
		))
	}
}
