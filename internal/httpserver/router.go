package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"civicportal/internal/api"
	"civicportal/internal/auth"
	"civicportal/internal/portal"
)

func NewRouter(
	logger *slog.Logger,
	allowedOrigins []string,
	sessions *auth.Service,
	guard *auth.Guard,
	pages *portal.Server,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(logger.Handler(), slog.LevelInfo),
		NoColor: true,
	}))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(sessions.Middleware)

		// Open pages confirm an authenticated session with the API before
		// showing it, and fall back to the visitor view when it has expired.
		r.Group(func(r chi.Router) {
			r.Use(guard.Revalidated)
			r.Method(http.MethodGet, "/", api.HTTPHandler(pages.Landing))
			r.Method(http.MethodGet, "/api/session", api.HTTPHandler(pages.SessionInfo))
			r.With(guard.RequireCached(auth.RoleCitizen, "/citizen/login")).
				Method(http.MethodGet, "/submit", api.HTTPHandler(pages.SubmissionPage))
		})

		r.Method(http.MethodGet, "/citizen/login", api.HTTPHandler(pages.CitizenLoginPage))
		r.Method(http.MethodPost, "/citizen/login", api.HTTPHandler(pages.CitizenLogin))
		r.Method(http.MethodPost, "/citizen/login/otp", api.HTTPHandler(pages.SendOTP))
		r.Method(http.MethodGet, "/officer/login", api.HTTPHandler(pages.OfficerLoginPage))
		r.Method(http.MethodPost, "/officer/login", api.HTTPHandler(pages.OfficerLogin))
		r.Post("/logout", pages.Logout)

		// Submission only checks the cached role; the API rejects stale
		// credentials on its own.
		r.With(guard.RequireCached(auth.RoleCitizen, "/citizen/login")).
			Method(http.MethodPost, "/submit", api.HTTPHandler(pages.SubmitGrievance))

		r.Group(func(r chi.Router) {
			r.Use(guard.Require(auth.RoleCitizen))
			r.Method(http.MethodGet, "/citizen/dashboard", api.HTTPHandler(pages.CitizenDashboard))
		})

		r.Group(func(r chi.Router) {
			r.Use(guard.Require(auth.RoleOfficer))
			r.Method(http.MethodGet, "/officer/dashboard", api.HTTPHandler(pages.OfficerDashboard))
			r.Method(http.MethodGet, "/officer/grievance/{grievanceId}", api.HTTPHandler(pages.OfficerGrievance))
			r.Method(http.MethodPost, "/officer/grievance/{grievanceId}/update", api.HTTPHandler(pages.SubmitUpdate))
		})

		r.Group(func(r chi.Router) {
			r.Use(guard.Require(auth.RoleAdmin))
			r.Method(http.MethodGet, "/admin/dashboard", api.HTTPHandler(pages.AdminDashboard))
			r.Method(http.MethodPost, "/admin/assign", api.HTTPHandler(pages.Assign))
			r.Method(http.MethodGet, "/admin/analytics", api.HTTPHandler(pages.AdminAnalytics))
		})
	})

	// Unknown paths land on the home page.
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
	})

	return r
}
