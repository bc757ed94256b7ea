// Package portal holds the page and action handlers of the grievance portal.
// Handlers fetch what their page needs from the grievance API and answer
// with an api.Response view model.
package portal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"civicportal/internal/api"
	"civicportal/internal/auth"
	"civicportal/internal/grievance"
	"civicportal/internal/remote"
)

// Upstream is the part of the grievance API the portal uses.
type Upstream interface {
	SendOTP(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, otp string) (auth.Credentials, error)
	StaffLogin(ctx context.Context, email, password string) (remote.StaffLogin, auth.Credentials, error)
	Logout(ctx context.Context, creds auth.Credentials) error

	SubmitComplaint(ctx context.Context, creds auth.Credentials, s grievance.Submission) (string, error)
	UserComplaints(ctx context.Context, creds auth.Credentials) (remote.UserComplaints, error)

	OfficerDashboard(ctx context.Context, creds auth.Credentials) ([]grievance.Grievance, error)
	OfficerGrievance(ctx context.Context, creds auth.Credentials, id string) (*grievance.Detail, error)
	SubmitUpdate(ctx context.Context, creds auth.Credentials, id string, u grievance.Update) (*grievance.Detail, error)

	PendingComplaints(ctx context.Context, creds auth.Credentials) ([]grievance.Grievance, error)
	AllComplaints(ctx context.Context, creds auth.Credentials) ([]grievance.Grievance, error)
	Officers(ctx context.Context, creds auth.Credentials) ([]grievance.Officer, error)
	Assign(ctx context.Context, creds auth.Credentials, grievanceID, officerName string) error

	DashboardStats(ctx context.Context, creds auth.Credentials) (grievance.DashboardStats, error)
	OfficerPerformance(ctx context.Context, creds auth.Credentials) ([]grievance.OfficerPerformance, error)
	ExtendedAnalytics(ctx context.Context, creds auth.Credentials) (grievance.ExtendedAnalytics, error)
}

type Server struct {
	logger   *slog.Logger
	sessions *auth.Service
	upstream Upstream
	boards   *lru.Cache[string, *grievance.Board]
}

func New(logger *slog.Logger, sessions *auth.Service, upstream Upstream, boardCacheSize int) (*Server, error) {
	boards, err := lru.New[string, *grievance.Board](boardCacheSize)
	if err != nil {
		return nil, fmt.Errorf("board cache: %w", err)
	}
	return &Server{
		logger:   logger,
		sessions: sessions,
		upstream: upstream,
		boards:   boards,
	}, nil
}

// Forget drops what the portal cached for a session that has ended.
func (s *Server) Forget(sessionID string) {
	s.boards.Remove(sessionID)
}

func currentSession(r *http.Request) *auth.Session {
	if sess, ok := auth.SessionFromContext(r.Context()); ok {
		return sess
	}
	return &auth.Session{Flags: auth.Flags{}}
}

// startSession replaces whatever session the browser had with a new one.
func (s *Server) startSession(w http.ResponseWriter, r *http.Request, flags auth.Flags, creds auth.Credentials) (*auth.Session, error) {
	if old := currentSession(r); old.ID != "" {
		s.Forget(old.ID)
		if err := s.sessions.End(r.Context(), w, old); err != nil {
			return nil, err
		}
	}
	return s.sessions.Begin(r.Context(), w, flags, creds)
}

// upstreamFailure turns a failed API call into the response the user sees:
// the API's own message when it rejected the call, otherwise unreachable.
func upstreamFailure(op string, err error, rejected, unreachable string) api.Response {
	var apiErr *remote.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.Status
		if code < http.StatusBadRequest {
			code = http.StatusBadGateway
		}
		return api.Response{
			Error:   fmt.Errorf("%s: %w", op, err),
			Code:    code,
			Message: remote.MessageOr(err, rejected),
		}
	}
	return api.Response{
		Error:   fmt.Errorf("%s: %w", op, err),
		Code:    http.StatusBadGateway,
		Message: unreachable,
	}
}

func invalid(message string, data any) api.Response {
	return api.Response{Code: http.StatusBadRequest, Message: message, Data: data}
}

const maxUploadSize = 10 << 20

var errInvalidFileType = errors.New("invalid file type")

// parseForm reads a multipart or url-encoded body capped at maxUploadSize.
func parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	err := r.ParseMultipartForm(maxUploadSize)
	if errors.Is(err, http.ErrNotMultipart) {
		return r.ParseForm()
	}
	return err
}

func allowedUpload(contentType string) bool {
	return strings.HasPrefix(contentType, "image/") || contentType == "application/pdf"
}

// formAttachment returns the uploaded file in field, or nil when none was
// sent. The caller closes the file through the returned func.
func formAttachment(r *http.Request, field string) (*grievance.Attachment, func(), error) {
	noop := func() {}
	if r.MultipartForm == nil {
		return nil, noop, nil
	}
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, noop, nil
	}
	if err != nil {
		return nil, noop, err
	}

	buffer := make([]byte, 512)
	n, err := io.ReadFull(file, buffer)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		file.Close()
		return nil, noop, err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, noop, err
	}

	fileType := http.DetectContentType(buffer[:n])
	if n == 0 || !allowedUpload(fileType) {
		file.Close()
		return nil, noop, errInvalidFileType
	}
	return &grievance.Attachment{
		Filename:    header.Filename,
		ContentType: fileType,
		Content:     file,
	}, func() { file.Close() }, nil
}
