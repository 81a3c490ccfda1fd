package echoapi

import (
	"errors"

	"github.com/labstack/echo/v4"
	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/tributes/core/session"
)

// adminMiddleware lets a request through only if it carries a live admin session.
func adminMiddleware(svc *session.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			s, err := svc.Get(ctx.Request().Context(), sessionToken(ctx))
			if err != nil {
				if errors.Is(pkgerrors.Cause(err), session.ErrNotFound) {
					return errUnauthorized
				}
				return pkgerrors.Wrap(err, "getting admin session")
			}
			ctx.Set(contextSessionKey, s)
			return next(ctx)
		}
	}
}
