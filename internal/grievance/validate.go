package grievance

import (
	"io"
	"regexp"
	"strings"
)

// FieldError names the first input that failed validation. Message is shown
// to the user as is.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string { return e.Message }

type Attachment struct {
	Filename    string
	ContentType string
	Content     io.Reader
}

type Submission struct {
	Category    string
	Title       string
	Description string
	Street      string
	City        string
	District    string
	State       string
	PostalCode  string
	Attachment  *Attachment
}

var postalCodePattern = regexp.MustCompile(`^[0-9]{6}$`)

// Validate checks fields in form order and reports the first failure.
func (s Submission) Validate() error {
	required := []struct {
		field, value, message string
	}{
		{"category", s.Category, "Please select a category."},
		{"title", s.Title, "A clear title is required."},
		{"description", s.Description, "A detailed description is necessary."},
		{"street", s.Street, "Street address is required for location."},
		{"city", s.City, "City is required for jurisdiction."},
		{"district", s.District, "District helps in coordinating with authorities."},
		{"state", s.State, "State is required for proper routing."},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &FieldError{Field: r.field, Message: r.message}
		}
	}
	if !postalCodePattern.MatchString(strings.TrimSpace(s.PostalCode)) {
		return &FieldError{Field: "postalCode", Message: "A valid 6-digit postal code is required."}
	}
	return nil
}

func (s Submission) Location() Location {
	return Location{
		State:       strings.TrimSpace(s.State),
		District:    strings.TrimSpace(s.District),
		City:        strings.TrimSpace(s.City),
		AddressLine: strings.TrimSpace(s.Street),
		Pincode:     strings.TrimSpace(s.PostalCode),
	}
}

// Update is an officer's status change request.
type Update struct {
	Status   Status
	Notes    string
	Evidence *Attachment
}

func (u Update) Validate() error {
	switch u.Status {
	case StatusInProgress, StatusResolved:
	default:
		return &FieldError{Field: "status", Message: "Please select a status."}
	}
	if u.Status == StatusResolved && u.Evidence == nil {
		return &FieldError{Field: "file", Message: "Please upload evidence when status is set to Resolved."}
	}
	return nil
}
