package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os/signal"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanes-app/lanes/core/user"
	"github.com/lanes-app/lanes/testutil"
)

var errMissingAuth = httpErr{Error: "authentication credentials were not provided"}

type testApp struct {
	*testutil.Env
	srv *Server
}

func setup(t *testing.T) *testApp {
	env := testutil.NewEnv(t)
	srv := NewServer(&Deps{
		Conf:            env.Conf,
		Logger:          env.Logger,
		DB:              env.DB,
		Validate:        env.Validate,
		Translator:      env.Translator,
		Sessions:        env.Sessions,
		UserSvc:         env.Users,
		OrgSvc:          env.Orgs,
		InstructorSvc:   env.Instructors,
		ParentSvc:       env.Parents,
		ChildSvc:        env.Children,
		ClassLevelSvc:   env.ClassLevels,
		LessonSvc:       env.Lessons,
		EnrollmentSvc:   env.Enrollments,
		NotificationSvc: env.Notifications,
		ReportSvc:       env.Reports,
	})
	t.Cleanup(func() { signal.Stop(srv.shutdown) })
	return &testApp{Env: env, srv: srv}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// do serves the request and returns the recorder.
func (app *testApp) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	app.srv.ServeHTTP(rec, req)
	return rec
}

// run serves each test, checking its code and, when set, its data.
func (app *testApp) run(t *testing.T, tests []httpTest) {
	for _, tt := range tests {
		if tt.method == "" {
			tt.method = http.MethodGet
		}
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(tt.method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func (app *testApp) getToken(t *testing.T, userID string) string {
	t.Helper()
	usr, err := app.Users.GetByID(context.Background(), userID)
	require.NoError(t, err)
	return app.tokenOf(t, usr)
}

func (app *testApp) tokenOf(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := app.srv.tokens.GenerateToken(app.srv.tokens.NewClaims(usr))
	require.NoError(t, err)
	return token
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	require.NoError(t, err, "marshalObj()")
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), "body: %s", rec.Body.String())
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	assert.Equal(t, tt.wantCode, rec.Code, "body: %s", rec.Body.String())
	if tt.wantData != nil {
		assert.JSONEq(t, string(tt.wantData), rec.Body.String())
	}
}
