package tests

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/tributes/apps/api/echo"
	"github.com/trezcool/tributes/core/session"
	"github.com/trezcool/tributes/tests"
)

func Test_authApi_login(t *testing.T) {
	db.Reset()

	tests := []httpTest{
		{
			name: "Invalid JSON", body: []byte(`{"password":`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "Invalid request data"}),
		},
		{
			name: "Password required", body: []byte(`{}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "Password is required"}),
		},
		{
			name: "Invalid password", body: []byte(`{"password":"nope"}`),
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "Invalid password"}),
		},
		{
			name: "Logged in", body: []byte(`{"password":"` + adminPassword + `"}`),
			wantCode: http.StatusOK, wantData: marchallObj(t, echoapi.SuccessResponse{Success: true, Message: "Logged in successfully"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/auth/login"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			cookies := rec.Result().Cookies()
			if tt.wantCode != http.StatusOK {
				assert.Empty(t, cookies)
				return
			}
			require.Len(t, cookies, 1)
			cookie := cookies[0]
			assert.Equal(t, echoapi.SessionCookieName, cookie.Name)
			assert.NotEmpty(t, cookie.Value)
			assert.True(t, cookie.HttpOnly)
			assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
			assert.Equal(t, int(conf.Admin.SessionTTL.Seconds()), cookie.MaxAge)

			ok, err := sessionSvc.Validate(context.Background(), cookie.Value)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func Test_authApi_loginNotConfigured(t *testing.T) {
	unconfigured, err := newApp("")
	require.NoError(t, err)

	req, rec := newRequest(http.MethodPost, "/api/auth/login", []byte(`{"password":"`+adminPassword+`"}`))
	unconfigured.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusInternalServerError,
		wantData: marchallObj(t, httpErr{Error: "Admin password not configured"}),
	}, rec)
}

func Test_authApi_logout(t *testing.T) {
	db.Reset()
	token := getToken(t)
	require.Equal(t, 1, db.CountSessions())

	t.Run("with cookie", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/api/auth/logout")
		req.AddCookie(&http.Cookie{Name: echoapi.SessionCookieName, Value: token})
		app.ServeHTTP(rec, req)

		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, echoapi.SuccessResponse{Success: true, Message: "Logged out successfully"}),
		}, rec)
		assert.Equal(t, 0, db.CountSessions())

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Empty(t, cookies[0].Value)
		assert.True(t, cookies[0].MaxAge < 0)
	})

	t.Run("without session", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/api/auth/logout")
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func Test_adminMiddleware(t *testing.T) {
	db.Reset()
	ctx := context.Background()

	pending := testutil.CreateTribute(t, tributeRepo, "Ann", "Rest well")

	expired := session.Session{
		ID:        "expired-session",
		CreatedAt: time.Now().Add(-48 * time.Hour),
		ExpiresAt: time.Now().Add(-24 * time.Hour),
	}
	require.NoError(t, sessionRepo.CreateSession(ctx, expired))

	patch := marchallObj(t, map[string]interface{}{"id": pending.ID, "approved": true, "admin_notes": "lovely"})
	routes := []httpTest{
		{method: http.MethodGet, path: "/api/admin/tributes"},
		{method: http.MethodPatch, path: "/api/admin/tributes", body: patch},
		{method: http.MethodGet, path: "/api/admin/tributes/export?mode=linked"},
		{method: http.MethodGet, path: "/api/admin/secrets"},
	}
	tokens := map[string]string{
		"no session":      "",
		"unknown session": "not-a-session",
		"expired session": expired.ID,
	}

	for tokenName, token := range tokens {
		for _, tt := range routes {
			tt.name = tokenName + " " + tt.method + " " + tt.path
			tt.token = token
			tt.wantCode = http.StatusUnauthorized
			tt.wantData = marchallObj(t, errUnauthorized)

			t.Run(tt.name, func(t *testing.T) {
				req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
				app.ServeHTTP(rec, req)
				checkCodeAndData(t, tt, rec)
			})
		}
	}

	// the refused moderation left the tribute alone
	got, err := tributeRepo.GetTribute(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, pending, got)

	// expired sessions are destroyed on sight
	_, err = sessionRepo.GetSession(ctx, expired.ID)
	assert.ErrorIs(t, err, session.ErrNotFound)

	t.Run("cookie session accepted", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/api/admin/tributes")
		req.AddCookie(&http.Cookie{Name: echoapi.SessionCookieName, Value: getToken(t)})
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
