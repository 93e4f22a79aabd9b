package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ops/internal/inventory"
	"github.com/iliyamo/cinema-ops/internal/ledger"
	"github.com/iliyamo/cinema-ops/internal/logger"
	"github.com/iliyamo/cinema-ops/internal/pricing"
	"github.com/iliyamo/cinema-ops/internal/service"
)

type envelope struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message,omitempty"`
	Data      any       `json:"data"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details"`
}

type errorEnvelope struct {
	Success   bool      `json:"success"`
	Error     errorBody `json:"error"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func requestID(c echo.Context) string {
	return c.Response().Header().Get(echo.HeaderXRequestID)
}

func ok(c echo.Context, status int, message string, data any) error {
	return c.JSON(status, envelope{
		Success:   true,
		Message:   message,
		Data:      data,
		RequestID: requestID(c),
		Timestamp: time.Now().UTC(),
	})
}

func fail(c echo.Context, status int, code, message string, details any) error {
	return c.JSON(status, errorEnvelope{
		Error:     errorBody{Code: code, Message: message, Details: details},
		RequestID: requestID(c),
		Timestamp: time.Now().UTC(),
	})
}

// respondError maps domain errors to status codes. Anything unknown is a
// 500 with a generic message.
func respondError(c echo.Context, err error) error {
	var ve *pricing.ValidationError
	var he *echo.HTTPError
	switch {
	case errors.As(err, &ve):
		return fail(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", ve.Error(), echo.Map{"field": ve.Field, "reason": ve.Reason})
	case errors.Is(err, ledger.ErrNotEnoughSeats):
		return fail(c, http.StatusConflict, "CAPACITY_EXCEEDED", err.Error(), nil)
	case errors.Is(err, service.ErrSessionExists):
		return fail(c, http.StatusConflict, "SESSION_EXISTS", err.Error(), nil)
	case errors.Is(err, inventory.ErrItemExists):
		return fail(c, http.StatusConflict, "ITEM_EXISTS", err.Error(), nil)
	case errors.Is(err, inventory.ErrInsufficientStock):
		return fail(c, http.StatusConflict, "INSUFFICIENT_STOCK", err.Error(), nil)
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrSaleNotFound), errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, inventory.ErrItemNotFound):
		return fail(c, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrInvalidRefresh):
		return fail(c, http.StatusUnauthorized, "UNAUTHORIZED", err.Error(), nil)
	case errors.Is(err, service.ErrAccountLocked):
		return fail(c, http.StatusLocked, "ACCOUNT_LOCKED", err.Error(), nil)
	case errors.As(err, &he):
		return httpError(c, he)
	default:
		return fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error", nil)
	}
}

func httpError(c echo.Context, he *echo.HTTPError) error {
	msg := http.StatusText(he.Code)
	if s, ok := he.Message.(string); ok && s != "" {
		msg = s
	}
	code := "HTTP_ERROR"
	switch he.Code {
	case http.StatusBadRequest:
		code = "INVALID_JSON"
	case http.StatusUnauthorized:
		code = "UNAUTHORIZED"
	case http.StatusForbidden:
		code = "FORBIDDEN"
	case http.StatusNotFound:
		code, msg = "ROUTE_NOT_FOUND", "route not found"
	case http.StatusMethodNotAllowed:
		code = "METHOD_NOT_ALLOWED"
	case http.StatusConflict:
		code = "REQUEST_IN_PROGRESS"
	case http.StatusRequestEntityTooLarge:
		code = "PAYLOAD_TOO_LARGE"
	case http.StatusTooManyRequests:
		code = "RATE_LIMITED"
	case http.StatusServiceUnavailable:
		code = "SERVICE_UNAVAILABLE"
	}
	return fail(c, he.Code, code, msg, nil)
}

// bindError answers a body that could not be decoded. The decoder error is
// kept out of the response and logged at debug level.
func bindError(c echo.Context, err error) error {
	slog.DebugContext(c.Request().Context(), "request body rejected",
		slog.String("method", c.Request().Method),
		slog.String("path", c.Path()),
		slog.String("error", err.Error()),
	)
	return fail(c, http.StatusBadRequest, "INVALID_JSON", "invalid JSON body", nil)
}

// ErrorHandler renders errors that escape handlers (router 404s, middleware
// rejections, panics recovered by echo) in the error envelope and logs
// server errors.
func ErrorHandler(log *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status := http.StatusInternalServerError
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
		}
		if status >= http.StatusInternalServerError {
			log.LogHTTPError(c.Request().Context(), c.Request().Method, c.Request().URL.Path, status, err)
		}
		var werr error
		if he != nil && he.Code < http.StatusInternalServerError {
			werr = httpError(c, he)
		} else {
			werr = respondError(c, err)
		}
		if werr != nil {
			log.Error("write error response", slog.String("error", werr.Error()))
		}
	}
}

// Validator adapts the shared validator to echo's Validator interface.
// Failures come back as *pricing.ValidationError.
type Validator struct{}

func (Validator) Validate(i interface{}) error {
	return service.ValidateStruct(i)
}
