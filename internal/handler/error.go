package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/aya-berrouan/glowora/internal/domain"
)

// ErrorCodeToHTTPStatus maps domain error codes to HTTP status codes.
func ErrorCodeToHTTPStatus(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest
	case domain.EUNAUTHORIZED:
		return http.StatusUnauthorized
	case domain.EPAYMENT:
		return http.StatusPaymentRequired
	case domain.EFORBIDDEN:
		return http.StatusForbidden
	case domain.ENOTFOUND:
		return http.StatusNotFound
	case domain.ECONFLICT:
		return http.StatusConflict
	case domain.ERATELIMIT:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// RespondError writes err as a JSON error envelope. Validation errors get a
// 422 with per-field messages; everything else maps through the domain code.
// Internal errors are logged with their wrapped cause, which is never exposed
// to the client.
func RespondError(c echo.Context, logger zerolog.Logger, err error) error {
	if domain.IsValidationError(err) {
		return c.JSON(http.StatusUnprocessableEntity, errorResponse{
			Success: false,
			Message: "The given data was invalid.",
			Errors:  domain.GetValidationFields(err),
		})
	}

	code := domain.ErrorCode(err)
	if code == domain.EINTERNAL {
		logger.Error().
			Err(err).
			Str("op", domain.ErrorOp(err)).
			Str("path", c.Request().URL.Path).
			Msg("request failed")
	}

	return c.JSON(ErrorCodeToHTTPStatus(code), errorResponse{
		Success: false,
		Message: domain.ErrorMessage(err),
	})
}
