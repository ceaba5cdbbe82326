package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/lanes-app/lanes/core"
	"github.com/lanes-app/lanes/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "authentication credentials were not provided")
	errInvalidToken         = echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired jwt")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, user.ErrAuthenticationFailed.Error())
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, core.ErrForbidden.Error())
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// newAppHTTPErrorHandler renders every error returned by the handlers as JSON.
// Unexpected errors are logged with the caller and answered with a 500;
// a core shutdown error also triggers signalShutdown.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code, body, known := errorResponse(errors.Cause(err), translator)
		if !known {
			msg := http.StatusText(code)
			logger.Error(msg, errors.Wrap(err, msg), principalOf(ctx))
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}
		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			body = err.Error()
		}
		if m, ok := body.(string); ok {
			body = echo.Map{"error": m}
		}

		if ctx.Response().Committed {
			return
		}
		if ctx.Request().Method == http.MethodHead {
			err = ctx.NoContent(code)
		} else {
			err = ctx.JSON(code, body)
		}
		if err != nil {
			ctx.Echo().Logger.Error(err)
		}
	}
}

// errorResponse returns the status and body of a handler error.
// known is false for the errors the API does not expect.
func errorResponse(err error, translator ut.Translator) (code int, body interface{}, known bool) {
	switch e := err.(type) {
	case *echo.HTTPError:
		if inner, ok := e.Internal.(*echo.HTTPError); ok {
			e = inner
		}
		return e.Code, e.Message, true
	case validator.ValidationErrors:
		fields := make(map[string]string, len(e))
		for _, fe := range e {
			fields[fe.Field()] = fe.Translate(translator)
		}
		return http.StatusBadRequest, fields, true
	case *core.ValidationError:
		if e.Fields == nil {
			return http.StatusBadRequest, e.Error(), true
		}
		fields := make(map[string]string, len(e.Fields))
		for _, fe := range e.Fields {
			fields[fe.Field] = fe.Error
		}
		return http.StatusBadRequest, fields, true
	case *core.NotFoundError:
		return http.StatusNotFound, e.Error(), true
	case *core.PermissionError:
		return http.StatusForbidden, e.Error(), true
	case *core.ConflictError:
		return http.StatusConflict, e.Error(), true
	}
	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), false
}
