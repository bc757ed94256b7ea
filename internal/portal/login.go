package portal

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"

	"civicportal/internal/api"
	"civicportal/internal/auth"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func validEmail(email string) bool {
	return emailPattern.MatchString(email)
}

type sessionView struct {
	Authenticated bool      `json:"authenticated"`
	Role          auth.Role `json:"role,omitempty"`
	UserName      string    `json:"userName,omitempty"`
	UserEmail     string    `json:"userEmail,omitempty"`
	Nav           *Nav      `json:"nav,omitempty"`
}

func newSessionView(sess *auth.Session, path string) sessionView {
	return sessionView{
		Authenticated: sess.Authenticated(),
		Role:          sess.Role(),
		UserName:      sess.Get(auth.FlagUserName),
		UserEmail:     sess.Get(auth.FlagUserEmail),
		Nav:           NavFor(sess.Role(), path),
	}
}

type landingView struct {
	sessionView
	Actions []Action `json:"actions"`
}

// Landing describes the home page for the current visitor. The session it
// sees has already been confirmed with the API.
func (s *Server) Landing(w http.ResponseWriter, r *http.Request) api.Response {
	sess := currentSession(r)
	return api.Response{Data: landingView{
		sessionView: newSessionView(sess, r.URL.Path),
		Actions:     landingActions(sess.Authenticated()),
	}}
}

// SessionInfo reports the confirmed session flags. The optional path query
// parameter selects the active navigation entry.
func (s *Server) SessionInfo(w http.ResponseWriter, r *http.Request) api.Response {
	return api.Response{Data: newSessionView(currentSession(r), r.URL.Query().Get("path"))}
}

type formPage struct {
	Page   string   `json:"page"`
	Fields []string `json:"fields"`
	Nav    *Nav     `json:"nav,omitempty"`
}

func (s *Server) CitizenLoginPage(w http.ResponseWriter, r *http.Request) api.Response {
	return api.Response{Data: formPage{Page: "citizen_login", Fields: []string{"email", "otp"}}}
}

func (s *Server) OfficerLoginPage(w http.ResponseWriter, r *http.Request) api.Response {
	return api.Response{Data: formPage{Page: "officer_login", Fields: []string{"email", "password"}}}
}

type otpRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// SendOTP asks the API to mail a one-time password.
func (s *Server) SendOTP(w http.ResponseWriter, r *http.Request) api.Response {
	var in otpRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		return invalid("Invalid request.", nil)
	}
	email := strings.TrimSpace(in.Email)
	if !validEmail(email) {
		return invalid("Please enter a valid email address.", nil)
	}

	if err := s.upstream.SendOTP(r.Context(), email); err != nil {
		return upstreamFailure("send otp", err, "Failed to send OTP.", "Failed to generate OTP. Please try again.")
	}
	return api.Response{
		Message: "An OTP has been sent to your email.",
		Data:    map[string]bool{"otpSent": true},
	}
}

// CitizenLogin verifies the OTP and starts a citizen session.
func (s *Server) CitizenLogin(w http.ResponseWriter, r *http.Request) api.Response {
	var in otpRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		return invalid("Invalid request.", nil)
	}
	email := strings.TrimSpace(in.Email)
	otp := strings.TrimSpace(in.OTP)
	if !validEmail(email) {
		return invalid("Please enter a valid email address.", nil)
	}
	if otp == "" {
		return invalid("Please enter the OTP.", nil)
	}

	creds, err := s.upstream.VerifyOTP(r.Context(), email, otp)
	if err != nil {
		return upstreamFailure("verify otp", err, "Invalid OTP or email.", "Login failed. Please try again.")
	}

	sess, err := s.startSession(w, r, auth.Flags{
		auth.FlagUserType:        string(auth.RoleCitizen),
		auth.FlagIsAuthenticated: "true",
		auth.FlagUserName:        email,
		auth.FlagUserEmail:       email,
		auth.FlagCitizenEmail:    email,
	}, creds)
	if err != nil {
		return api.Response{Error: err, Code: http.StatusInternalServerError, Message: "Login failed. Please try again."}
	}

	s.logger.Info("citizen signed in", "session", sess.ID)
	return api.Response{
		Message:  "Login successful",
		Data:     newSessionView(sess, "/citizen/dashboard"),
		Redirect: "/citizen/dashboard",
	}
}

type staffLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// OfficerLogin signs in an officer or administrator.
func (s *Server) OfficerLogin(w http.ResponseWriter, r *http.Request) api.Response {
	var in staffLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		return invalid("Invalid request.", nil)
	}
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return invalid("Please fill in all fields", nil)
	}

	login, creds, err := s.upstream.StaffLogin(r.Context(), email, in.Password)
	if err != nil {
		return upstreamFailure("staff login", err, "Login failed. Please try again.", "Login failed. Please try again.")
	}

	sess, err := s.startSession(w, r, auth.Flags{
		auth.FlagUserType:        string(login.UserType),
		auth.FlagIsAuthenticated: "true",
		auth.FlagUserName:        login.User.Name,
		auth.FlagUserEmail:       login.User.Email,
	}, creds)
	if err != nil {
		return api.Response{Error: err, Code: http.StatusInternalServerError, Message: "Login failed. Please try again."}
	}

	dest := "/officer/dashboard"
	if login.UserType == auth.RoleAdmin {
		dest = "/admin/dashboard"
	}
	s.logger.Info("staff signed in", "session", sess.ID, "role", login.UserType)
	return api.Response{
		Message:  "Login successful",
		Data:     newSessionView(sess, dest),
		Redirect: dest,
	}
}

// Logout ends the session here and upstream. An upstream failure does not
// keep the local session alive.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	if sess.ID != "" {
		if err := s.upstream.Logout(r.Context(), sess.Credentials); err != nil {
			s.logger.Warn("upstream logout failed", "err", err)
		}
		s.Forget(sess.ID)
	}
	if err := s.sessions.End(r.Context(), w, sess); err != nil {
		s.logger.Error("end session", "err", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
