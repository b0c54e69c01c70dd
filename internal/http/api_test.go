package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ems-desk/internal/auth"
	"ems-desk/internal/domain"
	"ems-desk/internal/service"
	"ems-desk/internal/storage"
)

const goodToken = "good-token"

type fakeSessions struct {
	signUpErr error
	logInErr  error
	signedUp  []string
}

func (f *fakeSessions) SignUp(_ context.Context, username, _ string) error {
	if f.signUpErr != nil {
		return f.signUpErr
	}
	f.signedUp = append(f.signedUp, username)
	return nil
}

func (f *fakeSessions) LogIn(_ context.Context, username, _ string) (*domain.Session, error) {
	if f.logInErr != nil {
		return nil, f.logInErr
	}
	return &domain.Session{Username: username, Token: goodToken, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (f *fakeSessions) Authenticate(token string) (*domain.Session, error) {
	if token != goodToken {
		return nil, auth.ErrInvalidToken
	}
	return &domain.Session{Username: "bob", Token: token}, nil
}

func newRouter(t *testing.T, sessions service.SessionService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	local, err := storage.NewLocalService(t.TempDir())
	require.NoError(t, err)

	router := gin.New()
	NewHandler(sessions, service.NewDatasetService(local, "datasets", 1<<20, logger), logger).RegisterRoutes(router)
	return router
}

func do(t *testing.T, router *gin.Engine, method, target string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func authed(extra map[string]string) map[string]string {
	h := map[string]string{"Authorization": "Bearer " + goodToken}
	for k, v := range extra {
		h[k] = v
	}
	return h
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func upload(t *testing.T, router *gin.Engine, name, content string) string {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rec := do(t, router, http.MethodPost, "/api/datasets", &buf, authed(map[string]string{"Content-Type": mw.FormDataContentType()}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	ds := decode(t, rec)["dataset"].(map[string]any)
	return ds["id"].(string)
}

func TestHealth(t *testing.T) {
	rec := do(t, newRouter(t, &fakeSessions{}), http.MethodGet, "/api/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSignUp(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		sessions *fakeSessions
		wantCode int
		wantText string
	}{
		{
			name:     "invalid JSON",
			body:     `nope`,
			sessions: &fakeSessions{},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "passwords differ",
			body:     `{"username":"bob","password":"x","confirm_password":"y"}`,
			sessions: &fakeSessions{},
			wantCode: http.StatusBadRequest,
			wantText: "passwords do not match",
		},
		{
			name:     "username taken",
			body:     `{"username":"bob","password":"x","confirm_password":"x"}`,
			sessions: &fakeSessions{signUpErr: service.ErrUsernameTaken},
			wantCode: http.StatusConflict,
			wantText: "username already exists",
		},
		{
			name:     "created",
			body:     `{"username":"bob","password":"x","confirm_password":"x"}`,
			sessions: &fakeSessions{},
			wantCode: http.StatusCreated,
			wantText: "bob",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRouter(t, tt.sessions)
			rec := do(t, router, http.MethodPost, "/api/auth/signup", strings.NewReader(tt.body), map[string]string{"Content-Type": "application/json"})
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantText)
		})
	}
}

func TestLogIn(t *testing.T) {
	router := newRouter(t, &fakeSessions{})
	rec := do(t, router, http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"bob","password":"x"}`), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, goodToken, body["token"])
	assert.Equal(t, true, body["authenticated"])

	router = newRouter(t, &fakeSessions{logInErr: service.ErrInvalidCredentials})
	rec = do(t, router, http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"bob","password":"bad"}`), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionRequiresToken(t *testing.T) {
	router := newRouter(t, &fakeSessions{})

	rec := do(t, router, http.MethodGet, "/api/session", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/datasets", nil, map[string]string{"Authorization": "Bearer wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/session", nil, authed(nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bob", decode(t, rec)["username"])
}

func TestCleanAndSave(t *testing.T) {
	router := newRouter(t, &fakeSessions{})
	id := upload(t, router, "dups.csv", "a,b\n1,x\n1,x\n2,\n")

	rec := do(t, router, http.MethodPost, "/api/datasets/"+id+"/clean/duplicates", nil, authed(nil))
	require.Equal(t, http.StatusOK, rec.Code)
	rows := decode(t, rec)["table"].(map[string]any)["rows"].([]any)
	assert.Len(t, rows, 1)

	rec = do(t, router, http.MethodPost, "/api/datasets/"+id+"/clean/duplicates?save=true", nil, authed(nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/datasets/"+id+"/clean/drop-duplicates?save=true", nil, authed(nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decode(t, rec)["dataset"].(map[string]any)["rows"])

	rec = do(t, router, http.MethodPost, "/api/datasets/"+id+"/clean/coerce", nil, authed(nil))
	require.Equal(t, http.StatusOK, rec.Code)
	coercions := decode(t, rec)["coercions"].([]any)
	assert.Equal(t, "coerced", coercions[0].(map[string]any)["outcome"])

	rec = do(t, router, http.MethodPost, "/api/datasets/"+id+"/clean/shuffle", nil, authed(nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchAndChart(t *testing.T) {
	router := newRouter(t, &fakeSessions{})
	id := upload(t, router, "people.csv", "name,age\nJohn,30\nAmy,25\nJones,40\n")

	rec := do(t, router, http.MethodGet, "/api/datasets/"+id+"/search?column=name&q=jo", nil, authed(nil))
	require.Equal(t, http.StatusOK, rec.Code)
	rows := decode(t, rec)["table"].(map[string]any)["rows"].([]any)
	assert.Len(t, rows, 2)

	rec = do(t, router, http.MethodGet, "/api/datasets/"+id+"/search?column=email&q=jo", nil, authed(nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/datasets/"+id+"/chart?kind=bar&x=name&y=age", nil, authed(nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"John", "Amy", "Jones"}, decode(t, rec)["labels"])

	rec = do(t, router, http.MethodGet, "/api/datasets/"+id+"/describe", nil, authed(nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAttendanceRoutes(t *testing.T) {
	router := newRouter(t, &fakeSessions{})
	id := upload(t, router, "attendance.csv", "ID,name,d1,d2\n1,A,P,A\n2,B,P,P\n")

	rec := do(t, router, http.MethodGet, "/api/datasets/"+id+"/attendance/percentages", nil, authed(nil))
	require.Equal(t, http.StatusOK, rec.Code)
	present := decode(t, rec)["present"].(map[string]any)
	assert.Equal(t, 100.0, present["d1"])
	assert.Equal(t, 50.0, present["d2"])

	rec = do(t, router, http.MethodGet, "/api/datasets/"+id+"/attendance/staff/2", nil, authed(nil))
	require.Equal(t, http.StatusOK, rec.Code)
	rows := decode(t, rec)["table"].(map[string]any)["rows"].([]any)
	assert.Len(t, rows, 1)

	rec = do(t, router, http.MethodGet, "/api/datasets/"+id+"/attendance/staff/abc", nil, authed(nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/datasets/"+id+"/attendance/totals", nil, authed(nil))
	require.Equal(t, http.StatusOK, rec.Code)

	empty := upload(t, router, "empty.csv", "ID,name,d1\n")
	rec = do(t, router, http.MethodGet, "/api/datasets/"+empty+"/attendance/percentages", nil, authed(nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestUnknownDataset(t *testing.T) {
	router := newRouter(t, &fakeSessions{})

	rec := do(t, router, http.MethodGet, "/api/datasets/00000000-0000-0000-0000-000000000000", nil, authed(nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodDelete, "/api/datasets/not-an-id", nil, authed(nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
