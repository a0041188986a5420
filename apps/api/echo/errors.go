package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/coordinator"
	"github.com/trezcool/academia/core/sweep"
	"github.com/trezcool/academia/core/user"
)

var (
	errUnauthorized  = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errHttpForbidden = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound  = echo.NewHTTPError(http.StatusNotFound, "not found")

	// domain errors handlers may return as is
	domainHTTPErrors = map[error]*echo.HTTPError{
		user.ErrNotFound:              errHttpNotFound,
		sweep.ErrUnknownJob:           errHttpNotFound,
		coordinator.ErrNotCoordinator: echo.NewHTTPError(http.StatusBadRequest, coordinator.ErrNotCoordinator.Error()),
	}
)

// httpError maps err to a status code and a response body. report is true for server errors.
func httpError(err error, translator ut.Translator) (code int, message interface{}, report bool) {
	if fields, ok := core.FieldErrors(err, translator); ok {
		return http.StatusBadRequest, fields, false
	}
	if core.IsValidationError(err) { // without fields
		return http.StatusBadRequest, err.Error(), false
	}

	origErr := errors.Cause(err)
	if herr, ok := domainHTTPErrors[origErr]; ok {
		return herr.Code, herr.Message, false
	}
	if herr, ok := origErr.(*echo.HTTPError); ok {
		if herr == middleware.ErrJWTMissing {
			return http.StatusUnauthorized, herr.Message, false
		}
		if internal, ok := herr.Internal.(*echo.HTTPError); ok {
			herr = internal
		}
		return herr.Code, herr.Message, false
	}
	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), true
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code, message, report := httpError(err, translator)

		if report {
			msg := http.StatusText(code)
			var usr user.User
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				usr = user.User{ID: claims.Subject, Name: claims.Name, Email: claims.Email}
			}
			logger.Error(msg, errors.Wrap(err, msg), usr)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
