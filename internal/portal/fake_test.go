package portal

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"civicportal/internal/api"
	"civicportal/internal/auth"
	"civicportal/internal/grievance"
	"civicportal/internal/remote"
)

var errUnreachable = errors.New("dial tcp: connection refused")

// fakeUpstream records calls and answers from its fields. A nil func field
// answers with zero values.
type fakeUpstream struct {
	mu    sync.Mutex
	calls []string

	sendOTP     func(email string) error
	verifyOTP   func(email, otp string) (auth.Credentials, error)
	staffLogin  func(email, password string) (remote.StaffLogin, auth.Credentials, error)
	logout      func(creds auth.Credentials) error
	submit      func(s grievance.Submission) (string, error)
	complaints  func() (remote.UserComplaints, error)
	officerList func() ([]grievance.Grievance, error)
	detail      func(id string) (*grievance.Detail, error)
	update      func(id string, u grievance.Update) (*grievance.Detail, error)
	pending     func() ([]grievance.Grievance, error)
	all         func() ([]grievance.Grievance, error)
	officers    func() ([]grievance.Officer, error)
	assign      func(id, officer string) error
	stats       func() (grievance.DashboardStats, error)
	perf        func() ([]grievance.OfficerPerformance, error)
	extended    func() (grievance.ExtendedAnalytics, error)
}

func (f *fakeUpstream) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeUpstream) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeUpstream) SendOTP(_ context.Context, email string) error {
	f.record("SendOTP")
	if f.sendOTP == nil {
		return nil
	}
	return f.sendOTP(email)
}

func (f *fakeUpstream) VerifyOTP(_ context.Context, email, otp string) (auth.Credentials, error) {
	f.record("VerifyOTP")
	if f.verifyOTP == nil {
		return "", nil
	}
	return f.verifyOTP(email, otp)
}

func (f *fakeUpstream) StaffLogin(_ context.Context, email, password string) (remote.StaffLogin, auth.Credentials, error) {
	f.record("StaffLogin")
	if f.staffLogin == nil {
		return remote.StaffLogin{}, "", nil
	}
	return f.staffLogin(email, password)
}

func (f *fakeUpstream) Logout(_ context.Context, creds auth.Credentials) error {
	f.record("Logout")
	if f.logout == nil {
		return nil
	}
	return f.logout(creds)
}

func (f *fakeUpstream) SubmitComplaint(_ context.Context, _ auth.Credentials, s grievance.Submission) (string, error) {
	f.record("SubmitComplaint")
	if f.submit == nil {
		return "", nil
	}
	return f.submit(s)
}

func (f *fakeUpstream) UserComplaints(context.Context, auth.Credentials) (remote.UserComplaints, error) {
	f.record("UserComplaints")
	if f.complaints == nil {
		return remote.UserComplaints{}, nil
	}
	return f.complaints()
}

func (f *fakeUpstream) OfficerDashboard(context.Context, auth.Credentials) ([]grievance.Grievance, error) {
	f.record("OfficerDashboard")
	if f.officerList == nil {
		return []grievance.Grievance{}, nil
	}
	return f.officerList()
}

func (f *fakeUpstream) OfficerGrievance(_ context.Context, _ auth.Credentials, id string) (*grievance.Detail, error) {
	f.record("OfficerGrievance")
	if f.detail == nil {
		return &grievance.Detail{GrievanceID: id}, nil
	}
	return f.detail(id)
}

func (f *fakeUpstream) SubmitUpdate(_ context.Context, _ auth.Credentials, id string, u grievance.Update) (*grievance.Detail, error) {
	f.record("SubmitUpdate")
	if f.update == nil {
		return nil, nil
	}
	return f.update(id, u)
}

func (f *fakeUpstream) PendingComplaints(context.Context, auth.Credentials) ([]grievance.Grievance, error) {
	f.record("PendingComplaints")
	if f.pending == nil {
		return []grievance.Grievance{}, nil
	}
	return f.pending()
}

func (f *fakeUpstream) AllComplaints(context.Context, auth.Credentials) ([]grievance.Grievance, error) {
	f.record("AllComplaints")
	if f.all == nil {
		return []grievance.Grievance{}, nil
	}
	return f.all()
}

func (f *fakeUpstream) Officers(context.Context, auth.Credentials) ([]grievance.Officer, error) {
	f.record("Officers")
	if f.officers == nil {
		return []grievance.Officer{}, nil
	}
	return f.officers()
}

func (f *fakeUpstream) Assign(_ context.Context, _ auth.Credentials, id, officer string) error {
	f.record("Assign")
	if f.assign == nil {
		return nil
	}
	return f.assign(id, officer)
}

func (f *fakeUpstream) DashboardStats(context.Context, auth.Credentials) (grievance.DashboardStats, error) {
	f.record("DashboardStats")
	if f.stats == nil {
		return grievance.DashboardStats{}, nil
	}
	return f.stats()
}

func (f *fakeUpstream) OfficerPerformance(context.Context, auth.Credentials) ([]grievance.OfficerPerformance, error) {
	f.record("OfficerPerformance")
	if f.perf == nil {
		return nil, nil
	}
	return f.perf()
}

func (f *fakeUpstream) ExtendedAnalytics(context.Context, auth.Credentials) (grievance.ExtendedAnalytics, error) {
	f.record("ExtendedAnalytics")
	if f.extended == nil {
		return grievance.ExtendedAnalytics{}, nil
	}
	return f.extended()
}

type testEnv struct {
	server   *Server
	sessions *auth.Service
	store    *auth.MemoryStore
	upstream *fakeUpstream
}

func newTestEnv(t *testing.T, up *fakeUpstream) *testEnv {
	t.Helper()
	store := auth.NewMemoryStore()
	sessions, err := auth.NewService(store, auth.Options{Secret: "test-secret", TTL: time.Hour})
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := New(logger, sessions, up, 8)
	require.NoError(t, err)
	return &testEnv{server: srv, sessions: sessions, store: store, upstream: up}
}

func (e *testEnv) signIn(t *testing.T, role auth.Role) *auth.Session {
	t.Helper()
	sess, err := e.sessions.Begin(context.Background(), httptest.NewRecorder(), auth.Flags{
		auth.FlagUserType:        string(role),
		auth.FlagIsAuthenticated: "true",
		auth.FlagUserName:        "Test User",
		auth.FlagUserEmail:       "user@example.in",
		auth.FlagCitizenEmail:    "user@example.in",
	}, "sid=upstream")
	require.NoError(t, err)
	return sess
}

func withSession(r *http.Request, sess *auth.Session) *http.Request {
	return r.WithContext(auth.WithSession(r.Context(), sess))
}

type reply struct {
	Code     int             `json:"-"`
	Message  string          `json:"message"`
	Data     json.RawMessage `json:"data"`
	Redirect string          `json:"redirect"`
	Cookies  []*http.Cookie  `json:"-"`
}

func serve(t *testing.T, h api.HTTPHandler, r *http.Request) reply {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	var out reply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	out.Code = rec.Code
	out.Cookies = rec.Result().Cookies()
	return out
}
