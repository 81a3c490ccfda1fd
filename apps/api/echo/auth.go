package echoapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/tributes/core"
	"github.com/trezcool/tributes/core/session"
)

const (
	SessionCookieName = "admin_session"
	contextSessionKey = "session"
	bearerPrefix      = "Bearer "
)

type authApi struct {
	svc          *session.Service
	cookieSecure bool
}

func registerAuthAPI(g *echo.Group, svc *session.Service, conf *core.Config) {
	api := authApi{
		svc:          svc,
		cookieSecure: conf.Admin.CookieSecure,
	}

	ag := g.Group("/auth")
	ag.POST("/login", api.login)
	ag.POST("/logout", api.logout)
}

// Handlers

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return core.NewValidationMessage(errInvalidRequestData)
	}

	s, err := api.svc.Login(ctx.Request().Context(), data.Password)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrInvalidPassword):
			return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
		case errors.Is(err, session.ErrNotConfigured):
			return serverError(err, err.Error())
		}
		if _, ok := core.AsValidationError(err); ok {
			return err
		}
		return pkgerrors.Wrap(err, "logging in")
	}

	ctx.SetCookie(api.sessionCookie(s.ID, s.ExpiresAt))
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: true, Message: "Logged in successfully"})
}

func (api *authApi) logout(ctx echo.Context) error {
	if err := api.svc.Logout(ctx.Request().Context(), sessionToken(ctx)); err != nil {
		return pkgerrors.Wrap(err, "logging out")
	}
	ctx.SetCookie(api.sessionCookie("", time.Unix(0, 0)))
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: true, Message: "Logged out successfully"})
}

func (api *authApi) sessionCookie(value string, expires time.Time) *http.Cookie {
	cookie := &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   api.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	}
	if value == "" {
		cookie.MaxAge = -1
	} else {
		cookie.MaxAge = int(api.svc.TTL().Seconds())
	}
	return cookie
}

// sessionToken reads the session id from the session cookie, or from a bearer token (API clients).
func sessionToken(ctx echo.Context) string {
	if cookie, err := ctx.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if auth := ctx.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(auth, bearerPrefix) {
		return strings.TrimSpace(auth[len(bearerPrefix):])
	}
	return ""
}

func contextSession(ctx echo.Context) (session.Session, bool) {
	s, ok := ctx.Get(contextSessionKey).(session.Session)
	return s, ok
}

// Requests & Responses

type (
	LoginRequest struct {
		Password string `json:"password"`
	}

	SuccessResponse struct {
		Success bool   `json:"success"`
		Message string `json:"message,omitempty"`
	}
)
