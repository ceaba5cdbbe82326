package echoapi

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanes-app/lanes/core/instructor"
	"github.com/lanes-app/lanes/core/user"
	"github.com/lanes-app/lanes/testutil"
)

func loginBody(t *testing.T, email, pwd string) []byte {
	return marshalObj(t, LoginRequest{Email: email, Password: pwd})
}

func Test_authApi_login(t *testing.T) {
	app := setup(t)
	_, admin := app.CreateOrganization(t, "Blue Dolphins", "anna@dolphins.test")

	tests := []httpTest{
		{
			name: "missing fields", method: http.MethodPost, path: "/api/auth/login", body: []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"email": "this field is required", "password": "this field is required"}`),
		},
		{
			name: "wrong password", method: http.MethodPost, path: "/api/auth/login",
			body: loginBody(t, admin.Email, "nope"), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Error: user.ErrAuthenticationFailed.Error()}),
		},
		{
			name: "unknown email", method: http.MethodPost, path: "/api/auth/login",
			body: loginBody(t, "ghost@dolphins.test", testutil.Password), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Error: user.ErrAuthenticationFailed.Error()}),
		},
	}
	app.run(t, tests)

	t.Run("session cookie", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/api/auth/login", "", loginBody(t, " ANNA@dolphins.test ", testutil.Password))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var cookie *http.Cookie
		for _, c := range rec.Result().Cookies() {
			if c.Name == app.Conf.Server.SessionCookieName {
				cookie = c
			}
		}
		require.NotNil(t, cookie)
		assert.True(t, cookie.HttpOnly)
		assert.NotEmpty(t, cookie.Value)

		req, meRec := newRequest(http.MethodGet, "/api/me")
		req.AddCookie(cookie)
		app.srv.ServeHTTP(meRec, req)
		require.Equal(t, http.StatusOK, meRec.Code)
		var me struct {
			User user.User `json:"user"`
		}
		unmarshal(t, meRec, &me)
		assert.Equal(t, admin.ID, me.User.ID)
		assert.False(t, me.User.LastLogin.IsZero())

		// logout drops the session
		req, outRec := newRequest(http.MethodPost, "/api/auth/logout")
		req.AddCookie(cookie)
		app.srv.ServeHTTP(outRec, req)
		assert.Equal(t, http.StatusNoContent, outRec.Code)

		req, meRec = newRequest(http.MethodGet, "/api/me")
		req.AddCookie(cookie)
		app.srv.ServeHTTP(meRec, req)
		assert.Equal(t, http.StatusUnauthorized, meRec.Code)
	})
}

func Test_authApi_mobileLogin(t *testing.T) {
	app := setup(t)
	org, _ := app.CreateOrganization(t, "Blue Dolphins", "anna@dolphins.test")
	prt := app.CreateParent(t, org, "Mona Otieno", "mona@dolphins.test")

	rec := app.do(http.MethodPost, "/api/mobile/login", "", loginBody(t, prt.Email, testutil.Password))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res LoginResponse
	unmarshal(t, rec, &res)
	require.NotEmpty(t, res.Token)

	rec = app.do(http.MethodGet, "/api/me", res.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	var me struct {
		User     user.User `json:"user"`
		ParentID string    `json:"parent_id"`
	}
	unmarshal(t, rec, &me)
	assert.Equal(t, prt.UserID, me.User.ID)
	assert.Equal(t, user.RoleParent, me.User.Role)
	assert.Equal(t, prt.ID, me.ParentID)
}

func Test_authApi_tokens(t *testing.T) {
	app := setup(t)
	org, admin := app.CreateOrganization(t, "Blue Dolphins", "anna@dolphins.test")
	ins := app.CreateInstructor(t, org, "Kofi Mensah", "kofi@dolphins.test")

	deactivated := false
	_, err := app.Instructors.Update(context.Background(), org.ID, ins.ID, instructor.UpdateInstructor{IsActive: &deactivated})
	require.NoError(t, err)

	now := time.Now()
	expired := app.srv.tokens.NewClaims(admin)
	expired.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Minute))
	expiredToken, err := app.srv.tokens.GenerateToken(expired)
	require.NoError(t, err)

	unrefreshable := app.srv.tokens.NewClaims(admin, now.Add(-2*app.Conf.Server.JWTRefreshExpirationDelta).Unix())
	unrefreshableToken, err := app.srv.tokens.GenerateToken(unrefreshable)
	require.NoError(t, err)

	adminToken := app.tokenOf(t, admin)
	tests := []httpTest{
		{name: "auth required", path: "/api/me", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingAuth)},
		{
			name: "malformed token", path: "/api/me", token: "lol", wantCode: http.StatusUnauthorized,
			wantData: marshalObj(t, httpErr{Error: "invalid or expired jwt"}),
		},
		{
			name: "expired token", path: "/api/me", token: expiredToken, wantCode: http.StatusUnauthorized,
			wantData: marshalObj(t, httpErr{Error: "invalid or expired jwt"}),
		},
		{
			name: "inactive user not allowed", path: "/api/me", token: app.getToken(t, ins.UserID),
			wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "refresh period expired", method: http.MethodPost, path: "/api/mobile/token-refresh",
			token: unrefreshableToken, wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: "refresh has expired"}),
		},
		{
			name: "refresh: auth required", method: http.MethodPost, path: "/api/mobile/token-refresh",
			wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingAuth),
		},
		{name: "token refreshed", method: http.MethodPost, path: "/api/mobile/token-refresh", token: adminToken},
	}
	app.run(t, tests)

	t.Run("refreshed token keeps the original issue time", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/api/mobile/token-refresh", adminToken)
		require.Equal(t, http.StatusOK, rec.Code)
		var res LoginResponse
		unmarshal(t, rec, &res)

		orig, err := app.srv.tokens.parse(adminToken)
		require.NoError(t, err)
		refreshed, err := app.srv.tokens.parse(res.Token)
		require.NoError(t, err)
		assert.Equal(t, orig.OrigIssuedAt, refreshed.OrigIssuedAt)
		assert.Equal(t, admin.ID, refreshed.Subject)
		assert.Equal(t, user.RoleAdmin, refreshed.Role)
		assert.Equal(t, org.ID, refreshed.OrganizationID)
	})
}

func Test_authApi_passwordReset(t *testing.T) {
	app := setup(t)
	_, admin := app.CreateOrganization(t, "Blue Dolphins", "anna@dolphins.test")
	app.Mail.Reset()

	for _, email := range []string{"ghost@dolphins.test", admin.Email} {
		rec := app.do(http.MethodPost, "/api/auth/password-reset", "", marshalObj(t, PasswordResetRequest{Email: email}))
		assert.Equal(t, http.StatusOK, rec.Code, "email: %s", email)
	}

	sent := app.Mail.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, admin.Email, sent[0].To[0].Address)
	assert.True(t, strings.Contains(sent[0].TextContent, "/password-reset"), sent[0].TextContent)
}

func Test_authApi_updateMe(t *testing.T) {
	app := setup(t)
	_, admin := app.CreateOrganization(t, "Blue Dolphins", "anna@dolphins.test")
	token := app.tokenOf(t, admin)

	tests := []httpTest{
		{
			name: "weak password", method: http.MethodPut, path: "/api/me", token: token,
			body:     marshalObj(t, UpdateMeRequest{Password: "password", PasswordConfirm: "password"}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "passwords mismatch", method: http.MethodPut, path: "/api/me", token: token,
			body:     marshalObj(t, UpdateMeRequest{Password: "N3w!Pool#2024", PasswordConfirm: "N3w!Pool#2025"}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "rename", method: http.MethodPut, path: "/api/me", token: token,
			body: marshalObj(t, UpdateMeRequest{Name: "Anna K."}),
		},
	}
	app.run(t, tests)

	usr, err := app.Users.GetByID(context.Background(), admin.ID)
	require.NoError(t, err)
	assert.Equal(t, "Anna K.", usr.Name)
	assert.Equal(t, admin.PasswordHash, usr.PasswordHash)
}
