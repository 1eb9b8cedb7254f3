package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/grepto/dash-macrodata/internal/chart"
	"github.com/grepto/dash-macrodata/internal/state"
)

// APIError is the JSON body of every failed request.
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string { return e.Message }

func newAPIError(status int, code, message string) *APIError {
	return &APIError{StatusCode: status, ErrorCode: code, Message: message}
}

// FieldError describes one failed validation rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// toAPIError maps domain and transport errors to their HTTP form. It is
// the only place that knows about status codes.
func toAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, FieldError{
				Field:   fe.Namespace(),
				Message: fmt.Sprintf("failed on %q", fe.Tag()),
			})
		}
		e := newAPIError(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed")
		e.Details = details
		return e
	}

	switch {
	case errors.Is(err, state.ErrUnknownCountry):
		return newAPIError(http.StatusBadRequest, "UNKNOWN_COUNTRY", err.Error())
	case errors.Is(err, state.ErrUnknownIndicator):
		return newAPIError(http.StatusBadRequest, "UNKNOWN_INDICATOR", err.Error())
	case errors.Is(err, state.ErrInvalidInteraction):
		return newAPIError(http.StatusBadRequest, "INVALID_INTERACTION", err.Error())
	case errors.Is(err, chart.ErrUnknownChart):
		return newAPIError(http.StatusNotFound, "UNKNOWN_CHART", err.Error())
	case errors.Is(err, chart.ErrUnsupportedFormat):
		return newAPIError(http.StatusBadRequest, "UNSUPPORTED_FORMAT", err.Error())
	case errors.Is(err, chart.ErrFrameOutOfRange):
		return newAPIError(http.StatusBadRequest, "FRAME_OUT_OF_RANGE", err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return newAPIError(http.StatusServiceUnavailable, "REQUEST_CANCELLED", "Request was cancelled")
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return newAPIError(he.Code, httpErrorCode(he.Code), fmt.Sprint(he.Message))
	}

	return newAPIError(http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
}

func httpErrorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "INVALID_REQUEST"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	default:
		return "HTTP_ERROR"
	}
}

// errorHandler replaces echo's default so every error shares one shape.
func errorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		apiErr := toAPIError(err)
		if apiErr.StatusCode >= http.StatusInternalServerError {
			logger.Error("request failed",
				"error", err,
				"path", c.Path(),
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			)
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(apiErr.StatusCode)
		} else {
			werr = c.JSON(apiErr.StatusCode, apiErr)
		}
		if werr != nil {
			logger.Error("failed to write error response", "error", werr)
		}
	}
}
