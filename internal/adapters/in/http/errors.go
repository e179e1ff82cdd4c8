package http

import (
	"errors"
	"log/slog"
	"net/http"

	"orderflow/internal/core/application/usecases/commands"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"
	"orderflow/internal/generated/servers"
	"orderflow/internal/pkg/errs"

	"github.com/labstack/echo/v4"
)

// ErrorHandler renders every error returned by a handler as a servers.Error body.
//
//	NotFound                     404
//	invalid transition           422, with the rule and the reason
//	lost concurrency race        409
//	malformed or invalid input   400
//	collaborator failure         502
func ErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		body := errorBody(err)
		if body.Code >= http.StatusInternalServerError {
			logger.ErrorContext(c.Request().Context(), "request failed",
				"method", c.Request().Method, "uri", c.Request().RequestURI, "error", err)
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(body.Code)
		} else {
			writeErr = c.JSON(body.Code, body)
		}
		if writeErr != nil {
			logger.WarnContext(c.Request().Context(), "writing error response", "error", writeErr)
		}
	}
}

func errorBody(err error) servers.Error {
	var (
		httpErr       *echo.HTTPError
		transitionErr *order.InvalidTransitionError
	)
	switch {
	case errors.As(err, &httpErr):
		msg, ok := httpErr.Message.(string)
		if !ok {
			msg = http.StatusText(httpErr.Code)
		}
		return servers.Error{Code: httpErr.Code, Message: msg}
	case errors.As(err, &transitionErr):
		rule := string(transitionErr.Rule)
		reason := transitionErr.Reason
		return servers.Error{
			Code:    http.StatusUnprocessableEntity,
			Message: transitionErr.Error(),
			Rule:    &rule,
			Reason:  &reason,
		}
	case errors.Is(err, ports.ErrCollaboratorFailure):
		return servers.Error{Code: http.StatusBadGateway, Message: err.Error()}
	case errors.Is(err, errs.ErrObjectNotFound):
		return servers.Error{Code: http.StatusNotFound, Message: err.Error()}
	case errors.Is(err, commands.ErrConflict),
		errors.Is(err, errs.ErrVersionIsInvalid),
		errors.Is(err, ports.ErrOrderNumberTaken):
		return servers.Error{Code: http.StatusConflict, Message: err.Error()}
	case errors.Is(err, errs.ErrValueIsInvalid),
		errors.Is(err, errs.ErrValueIsOutOfRange),
		errors.Is(err, errs.ErrValueIsRequired):
		return servers.Error{Code: http.StatusBadRequest, Message: err.Error()}
	default:
		return servers.Error{Code: http.StatusInternalServerError, Message: http.StatusText(http.StatusInternalServerError)}
	}
}
