package auth

import (
	"context"
	"log/slog"
	"net/http"
)

// SessionChecker asks the grievance API whether the stored credentials still
// hold a live session for role.
type SessionChecker interface {
	CheckSession(ctx context.Context, role Role, creds Credentials) error
}

// Guard gates role-restricted pages. It is fail-closed: a single failed
// server-side check ends the session.
type Guard struct {
	sessions *Service
	checker  SessionChecker
	logger   *slog.Logger
	landing  string
	onRevoke []func(sessionID string)
}

func NewGuard(sessions *Service, checker SessionChecker, logger *slog.Logger) *Guard {
	return &Guard{
		sessions: sessions,
		checker:  checker,
		logger:   logger,
		landing:  "/",
	}
}

// OnRevoke registers fn to run with the id of every session the guard ends.
// Register hooks before serving.
func (g *Guard) OnRevoke(fn func(sessionID string)) {
	g.onRevoke = append(g.onRevoke, fn)
}

func (g *Guard) session(r *http.Request) (*Session, error) {
	if sess, ok := SessionFromContext(r.Context()); ok {
		return sess, nil
	}
	return g.sessions.Load(r)
}

// revoke ends sess and notifies the revoke hooks.
func (g *Guard) revoke(w http.ResponseWriter, r *http.Request, sess *Session) {
	id := sess.ID
	if err := g.sessions.End(r.Context(), w, sess); err != nil {
		g.logger.Error("end session", "err", err)
	}
	if id == "" {
		return
	}
	for _, fn := range g.onRevoke {
		fn(id)
	}
}

// confirm asks the API whether sess still holds role, ending it if not.
func (g *Guard) confirm(w http.ResponseWriter, r *http.Request, sess *Session, role Role) bool {
	if err := g.checker.CheckSession(r.Context(), role, sess.Credentials); err != nil {
		g.logger.Info("session check failed", "role", role, "err", err)
		g.revoke(w, r, sess)
		return false
	}
	return true
}

// Revalidate checks an authenticated session against the API for its cached
// role. A session without a known role, or one the API rejects, is ended and
// an empty session is returned. Sessions that were never authenticated pass
// through without a network call.
func (g *Guard) Revalidate(w http.ResponseWriter, r *http.Request) *Session {
	sess, err := g.session(r)
	if err != nil {
		g.logger.Error("load session", "err", err)
		return &Session{Flags: Flags{}}
	}
	if !sess.Authenticated() {
		return sess
	}
	role := sess.Role()
	if role == RoleNone {
		g.logger.Info("authenticated session without role", "session", sess.ID)
		g.revoke(w, r, sess)
		return &Session{Flags: Flags{}}
	}
	if !g.confirm(w, r, sess, role) {
		return &Session{Flags: Flags{}}
	}
	return sess
}

// Revalidated runs Revalidate before next and hands it the resulting
// session. Pages open to everyone use it so they never show a stale login.
func (g *Guard) Revalidated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := g.Revalidate(w, r)
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
	})
}

// Require admits the request only when the cached role equals role and the
// API confirms the session.
func (g *Guard) Require(role Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := g.session(r)
			if err != nil {
				g.logger.Error("load session", "err", err)
				http.Redirect(w, r, g.landing, http.StatusSeeOther)
				return
			}
			if sess.ID == "" || sess.Role() != role {
				http.Redirect(w, r, g.landing, http.StatusSeeOther)
				return
			}
			if !g.confirm(w, r, sess, role) {
				http.Redirect(w, r, g.landing, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

// RequireCached checks only the cached flags, without asking the API.
func (g *Guard) RequireCached(role Role, redirectTo string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := g.session(r)
			if err != nil || !sess.Authenticated() || sess.Role() != role {
				http.Redirect(w, r, redirectTo, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}
