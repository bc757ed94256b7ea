package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civicportal/internal/auth"
	"civicportal/internal/portal"
	"civicportal/internal/remote"
)

type stack struct {
	handler  http.Handler
	sessions *auth.Service
	store    *auth.MemoryStore
}

func newStack(t *testing.T, upstream http.Handler) *stack {
	t.Helper()
	up := httptest.NewServer(upstream)
	t.Cleanup(up.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := remote.New(up.URL, 5*time.Second, logger)
	store := auth.NewMemoryStore()
	sessions, err := auth.NewService(store, auth.Options{Secret: "router-secret", TTL: time.Hour})
	require.NoError(t, err)
	guard := auth.NewGuard(sessions, client, logger)
	pages, err := portal.New(logger, sessions, client, 16)
	require.NoError(t, err)
	guard.OnRevoke(pages.Forget)

	return &stack{
		handler:  NewRouter(logger, []string{"http://localhost:5173"}, sessions, guard, pages),
		sessions: sessions,
		store:    store,
	}
}

func (s *stack) signIn(t *testing.T, role auth.Role, creds auth.Credentials) (*auth.Session, []*http.Cookie) {
	t.Helper()
	rec := httptest.NewRecorder()
	sess, err := s.sessions.Begin(context.Background(), rec, auth.Flags{
		auth.FlagUserType:        string(role),
		auth.FlagIsAuthenticated: "true",
	}, creds)
	require.NoError(t, err)
	return sess, rec.Result().Cookies()
}

func (s *stack) do(r *http.Request, cookies []*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		r.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, r)
	return rec
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestHealthz(t *testing.T) {
	s := newStack(t, http.NotFoundHandler())
	rec := s.do(httptest.NewRequest(http.MethodGet, "/healthz", nil), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestUnknownPathRedirectsHome(t *testing.T) {
	s := newStack(t, http.NotFoundHandler())
	rec := s.do(httptest.NewRequest(http.MethodGet, "/no/such/page", nil), nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestGuardRedirectsWithoutCallingUpstream(t *testing.T) {
	var calls atomic.Int32
	s := newStack(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, map[string]string{})
	}))

	rec := s.do(httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil), nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	_, cookies := s.signIn(t, auth.RoleCitizen, "token=c")
	rec = s.do(httptest.NewRequest(http.MethodGet, "/officer/dashboard", nil), cookies)
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	assert.Zero(t, calls.Load())
}

func TestGuardEndsSessionWhenUpstreamRejects(t *testing.T) {
	s := newStack(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/checkOfficerSession", r.URL.Path)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Session expired"})
	}))
	sess, cookies := s.signIn(t, auth.RoleOfficer, "officerToken=stale")

	rec := s.do(httptest.NewRequest(http.MethodGet, "/officer/dashboard", nil), cookies)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	flags, err := s.store.Load(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Empty(t, flags)
}

func TestOfficerDashboardForwardsCredentials(t *testing.T) {
	s := newStack(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "officerToken=live", r.Header.Get("Cookie"))
		switch r.URL.Path {
		case "/api/checkOfficerSession":
			writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
		case "/api/officer/dashboard":
			writeJSON(w, http.StatusOK, map[string]any{"grievances": []map[string]string{
				{"grievanceId": "GRV-5", "title": "Broken drain", "status": "Assigned"},
			}})
		default:
			http.NotFound(w, r)
		}
	}))
	_, cookies := s.signIn(t, auth.RoleOfficer, "officerToken=live")

	rec := s.do(httptest.NewRequest(http.MethodGet, "/officer/dashboard", nil), cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"grievanceId":"GRV-5"`)
	assert.Contains(t, rec.Body.String(), `"status":"assigned"`)
}

func TestSubmitNeedsCachedCitizenRole(t *testing.T) {
	var calls atomic.Int32
	s := newStack(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, map[string]string{})
	}))

	rec := s.do(httptest.NewRequest(http.MethodPost, "/submit", nil), nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/citizen/login", rec.Header().Get("Location"))
	assert.Zero(t, calls.Load())
}

func TestOTPLoginFlow(t *testing.T) {
	s := newStack(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/verify-otp":
			http.SetCookie(w, &http.Cookie{Name: "token", Value: "citizen-jwt"})
			writeJSON(w, http.StatusOK, map[string]string{"message": "Login successful"})
		case "/api/checkUserSession":
			assert.Equal(t, "token=citizen-jwt", r.Header.Get("Cookie"))
			writeJSON(w, http.StatusOK, map[string]string{})
		case "/api/complaints/userComplaints":
			writeJSON(w, http.StatusOK, map[string]any{"email": "asha@example.in", "complaints": []any{}})
		default:
			http.NotFound(w, r)
		}
	}))

	body, _ := json.Marshal(map[string]string{"email": "asha@example.in", "otp": "123456"})
	req := httptest.NewRequest(http.MethodPost, "/citizen/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := s.do(req, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var cookies []*http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookieName && c.Value != "" {
			cookies = append(cookies, c)
		}
	}
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].HttpOnly)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/citizen/dashboard", nil), cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"asha@example.in"`)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/session?path=/submit", nil), cookies)
	assert.Contains(t, rec.Body.String(), `"role":"citizen"`)
	assert.Contains(t, rec.Body.String(), `{"label":"Submit Grievance","path":"/submit","active":true}`)
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	s := newStack(t, http.NotFoundHandler())

	req := httptest.NewRequest(http.MethodOptions, "/citizen/login", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := s.do(req, nil)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestSubmitPageForCitizenAndVisitor(t *testing.T) {
	var checks atomic.Int32
	s := newStack(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/checkUserSession", r.URL.Path)
		checks.Add(1)
		writeJSON(w, http.StatusOK, map[string]string{})
	}))

	_, cookies := s.signIn(t, auth.RoleCitizen, "token=c")
	rec := s.do(httptest.NewRequest(http.MethodGet, "/submit", nil), cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"page":"grievance_submission"`)
	assert.Contains(t, rec.Body.String(), `"postalCode","attachments"`)
	assert.Equal(t, int32(1), checks.Load())

	rec = s.do(httptest.NewRequest(http.MethodGet, "/submit", nil), nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/citizen/login", rec.Header().Get("Location"))
	assert.Equal(t, int32(1), checks.Load(), "visitors are not checked")
}

func TestOpenPagesDropExpiredSession(t *testing.T) {
	var checks atomic.Int32
	s := newStack(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checks.Add(1)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Session expired"})
	}))
	sess, cookies := s.signIn(t, auth.RoleCitizen, "token=stale")

	rec := s.do(httptest.NewRequest(http.MethodGet, "/", nil), cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"authenticated":false`)
	assert.NotContains(t, rec.Body.String(), `"nav"`)
	assert.NotContains(t, rec.Body.String(), `"/logout"`)
	assert.Equal(t, int32(1), checks.Load())

	flags, err := s.store.Load(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Empty(t, flags)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/session", nil), cookies)
	assert.Contains(t, rec.Body.String(), `"authenticated":false`)
	assert.NotContains(t, rec.Body.String(), `"role"`)

	_, cookies = s.signIn(t, auth.RoleCitizen, "token=stale")
	rec = s.do(httptest.NewRequest(http.MethodGet, "/submit", nil), cookies)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/citizen/login", rec.Header().Get("Location"))
}

func TestLogoutNeedsPost(t *testing.T) {
	var calls atomic.Int32
	s := newStack(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, map[string]string{})
	}))
	sess, cookies := s.signIn(t, auth.RoleCitizen, "token=c")

	rec := s.do(httptest.NewRequest(http.MethodGet, "/logout", nil), cookies)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	flags, err := s.store.Load(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "citizen", flags[auth.FlagUserType], "a GET leaves the session alone")

	rec = s.do(httptest.NewRequest(http.MethodPost, "/logout", nil), cookies)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	flags, err = s.store.Load(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Empty(t, flags)
	assert.Equal(t, int32(1), calls.Load())
}
