package portal

import (
	"errors"
	"net/http"

	"civicportal/internal/api"
	"civicportal/internal/auth"
	"civicportal/internal/grievance"
)

type citizenDashboard struct {
	Email      string                `json:"email"`
	Grievances []grievance.Grievance `json:"grievances"`
	Nav        *Nav                  `json:"nav,omitempty"`
}

func (s *Server) CitizenDashboard(w http.ResponseWriter, r *http.Request) api.Response {
	sess := currentSession(r)
	out, err := s.upstream.UserComplaints(r.Context(), sess.Credentials)
	if err != nil {
		return upstreamFailure("citizen dashboard", err, "Failed to fetch complaints", "Error fetching complaints")
	}

	items := make([]grievance.Grievance, 0, len(out.Complaints))
	for _, g := range out.Complaints {
		items = append(items, g.WithDefaults())
	}
	email := out.Email
	if email == "" {
		email = sess.Get(auth.FlagCitizenEmail)
	}
	return api.Response{Data: citizenDashboard{
		Email:      email,
		Grievances: items,
		Nav:        NavFor(sess.Role(), "/citizen/dashboard"),
	}}
}

var submissionFields = []string{
	"category", "title", "description",
	"street", "city", "district", "state", "postalCode",
	"attachments",
}

// SubmissionPage describes the grievance form.
func (s *Server) SubmissionPage(w http.ResponseWriter, r *http.Request) api.Response {
	return api.Response{Data: formPage{
		Page:   "grievance_submission",
		Fields: submissionFields,
		Nav:    NavFor(currentSession(r).Role(), "/submit"),
	}}
}

type fieldFailure struct {
	Field string `json:"field"`
}

// SubmitGrievance validates the form locally and forwards it to the API.
// Nothing reaches the network until every field passes.
func (s *Server) SubmitGrievance(w http.ResponseWriter, r *http.Request) api.Response {
	if err := parseForm(w, r); err != nil {
		return invalid("Failed to parse grievance form data.", nil)
	}

	sub := grievance.Submission{
		Category:    r.FormValue("category"),
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Street:      r.FormValue("street"),
		City:        r.FormValue("city"),
		District:    r.FormValue("district"),
		State:       r.FormValue("state"),
		PostalCode:  r.FormValue("postalCode"),
	}
	if err := sub.Validate(); err != nil {
		var fe *grievance.FieldError
		if errors.As(err, &fe) {
			return invalid(fe.Message, fieldFailure{Field: fe.Field})
		}
		return invalid(err.Error(), nil)
	}

	attachment, release, err := formAttachment(r, "attachments")
	if err != nil {
		return invalid("Attachments must be images or PDF files.", fieldFailure{Field: "attachments"})
	}
	defer release()
	sub.Attachment = attachment

	id, err := s.upstream.SubmitComplaint(r.Context(), currentSession(r).Credentials, sub)
	if err != nil {
		return upstreamFailure("submit grievance", err, "Something went wrong. Please try again.", "Server error. Please try again later.")
	}
	return api.Response{
		Code:    http.StatusCreated,
		Message: "Grievance submitted successfully.",
		Data:    map[string]string{"grievanceId": id},
	}
}
