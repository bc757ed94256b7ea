package portal

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"civicportal/internal/api"
	"civicportal/internal/grievance"
)

type officerDashboard struct {
	Grievances []grievance.Grievance `json:"grievances"`
	Nav        *Nav                  `json:"nav,omitempty"`
}

func (s *Server) OfficerDashboard(w http.ResponseWriter, r *http.Request) api.Response {
	sess := currentSession(r)
	items, err := s.upstream.OfficerDashboard(r.Context(), sess.Credentials)
	if err != nil {
		return upstreamFailure("officer dashboard", err, "Failed to load grievances", "Server error while fetching grievances.")
	}
	return api.Response{Data: officerDashboard{
		Grievances: items,
		Nav:        NavFor(sess.Role(), "/officer/dashboard"),
	}}
}

type grievanceDetail struct {
	Grievance *grievance.Detail `json:"grievance"`
	Nav       *Nav              `json:"nav,omitempty"`
}

func (s *Server) OfficerGrievance(w http.ResponseWriter, r *http.Request) api.Response {
	sess := currentSession(r)
	id := chi.URLParam(r, "grievanceId")
	detail, err := s.upstream.OfficerGrievance(r.Context(), sess.Credentials, id)
	if err != nil {
		return upstreamFailure("officer grievance", err, "Failed to fetch details", "Server error fetching details.")
	}
	return api.Response{Data: grievanceDetail{
		Grievance: detail,
		Nav:       NavFor(sess.Role(), "/officer/dashboard"),
	}}
}

// SubmitUpdate records a status change on one grievance. Resolving requires
// an evidence file.
func (s *Server) SubmitUpdate(w http.ResponseWriter, r *http.Request) api.Response {
	if err := parseForm(w, r); err != nil {
		return invalid("Failed to parse update form data.", nil)
	}
	id := chi.URLParam(r, "grievanceId")

	status := r.FormValue("status")
	if status == "" {
		status = r.FormValue("nstatus")
	}
	evidence, release, err := formAttachment(r, "file")
	if err != nil {
		return invalid("Evidence must be an image or PDF file.", fieldFailure{Field: "file"})
	}
	defer release()

	upd := grievance.Update{
		Notes:    strings.TrimSpace(r.FormValue("notes")),
		Evidence: evidence,
	}
	if strings.TrimSpace(status) != "" {
		upd.Status = grievance.ParseStatus(status)
	}
	if err := upd.Validate(); err != nil {
		var fe *grievance.FieldError
		if errors.As(err, &fe) {
			return invalid(fe.Message, fieldFailure{Field: fe.Field})
		}
		return invalid(err.Error(), nil)
	}

	detail, err := s.upstream.SubmitUpdate(r.Context(), currentSession(r).Credentials, id, upd)
	if err != nil {
		return upstreamFailure("submit update", err, "Failed to submit update", "Server error during update.")
	}
	return api.Response{
		Message:  "Update submitted successfully",
		Data:     grievanceDetail{Grievance: detail},
		Redirect: "/officer/dashboard",
	}
}
