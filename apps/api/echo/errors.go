package echoapi

import (
	"fmt"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tributes/core"
)

var (
	errUnauthorized    = echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	errTributeNotFound = echo.NewHTTPError(http.StatusNotFound, "Tribute not found")
	errImageNotFound   = echo.NewHTTPError(http.StatusNotFound, "Image not found")

	errInvalidRequestData = "Invalid request data"
)

// serverError hides err behind a generic 500 message. err is logged by the error handler.
func serverError(err error, msg string) error {
	return &echo.HTTPError{Code: http.StatusInternalServerError, Message: msg, Internal: err}
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	logServerError := func(ctx echo.Context, msg string, err error) {
		args := []interface{}{errors.Wrap(err, msg)}
		if s, ok := contextSession(ctx); ok {
			args = append(args, s)
		}
		logger.Error(msg, args...)

		// shutting down...
		if core.IsShutdown(err) {
			signalShutdown()
		}
	}

	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
			if code >= http.StatusInternalServerError {
				internal := origErr.Internal
				if internal == nil {
					internal = origErr
				}
				logServerError(ctx, fmt.Sprint(origErr.Message), internal)
			}
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = echo.Map{"error": origErr[0].Translate(translator), "fields": fldErrs}
		case *core.ValidationError:
			if len(origErr.Fields) > 0 {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = echo.Map{"error": origErr.Error(), "fields": fldErrs}
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg
			logServerError(ctx, msg, err)
		}

		if ctx.Echo().Debug {
			message = echo.Map{"error": err.Error()}
		} else if m, ok := message.(string); ok {
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
