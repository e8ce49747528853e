package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Body is the JSON envelope every error response uses.
type Body struct {
	Error Detail `json:"error"`
}

type Detail struct {
	Kind      Kind   `json:"kind"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// HTTPErrorHandler renders handler errors as {"error": {...}}. Domain errors
// keep their kind and message; echo errors are classified by status; anything
// else becomes an InternalError with a generic message and is logged.
func HTTPErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, detail := Classify(err)
		if rid, ok := c.Get("request_id").(string); ok {
			detail.RequestID = rid
		}

		if status >= http.StatusInternalServerError {
			logger.Error().Err(err).
				Str("request_id", detail.RequestID).
				Str("kind", string(detail.Kind)).
				Str("path", c.Request().URL.Path).
				Msg("request failed")
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, Body{Error: detail})
		}
		if writeErr != nil {
			logger.Error().Err(writeErr).Msg("write error response")
		}
	}
}

// Classify maps err to a status code and client-safe detail.
func Classify(err error) (int, Detail) {
	var ae *Error
	if errors.As(err, &ae) {
		msg := ae.Message
		if ae.Kind == KindInternal {
			msg = "internal server error"
		}
		return ae.Kind.Status(), Detail{Kind: ae.Kind, Message: msg}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		kind := kindForStatus(he.Code)
		msg := fmt.Sprintf("%v", he.Message)
		if kind == KindInternal {
			msg = "internal server error"
		}
		return he.Code, Detail{Kind: kind, Message: msg}
	}

	return http.StatusInternalServerError, Detail{Kind: KindInternal, Message: "internal server error"}
}
