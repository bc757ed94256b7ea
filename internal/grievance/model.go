package grievance

import (
	"encoding/json"
	"strings"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusReverted   Status = "reverted"
)

// ParseStatus normalises the spellings the API uses ("In Progress",
// "in_progress", "Pending"). An empty status reads as pending; unknown
// values are kept as given, lower-cased.
func ParseStatus(s string) Status {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	if s == "" {
		return StatusPending
	}
	return Status(s)
}

func (s *Status) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = ParseStatus(raw)
	return nil
}

func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusAssigned:
		return "Assigned"
	case StatusInProgress:
		return "In Progress"
	case StatusResolved:
		return "Resolved"
	case StatusReverted:
		return "Reverted"
	default:
		return string(s)
	}
}

type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Timestamp accepts RFC 3339 and plain dates. Anything else decodes to the
// zero time rather than failing the whole payload.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed
			return nil
		}
	}
	t.Time = time.Time{}
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.UTC().Format(time.RFC3339))
}

type Party struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Officer = Party

type Location struct {
	AddressLine string `json:"addressLine,omitempty"`
	City        string `json:"city,omitempty"`
	District    string `json:"district,omitempty"`
	State       string `json:"state,omitempty"`
	Pincode     string `json:"pincode,omitempty"`
	Address     string `json:"address,omitempty"`
}

// Grievance is the list form returned by the complaint listings.
type Grievance struct {
	GrievanceID         string    `json:"grievanceId"`
	TrackingID          string    `json:"trackingId,omitempty"`
	Title               string    `json:"title"`
	Description         string    `json:"description,omitempty"`
	Category            string    `json:"category"`
	Status              Status    `json:"status"`
	Priority            Priority  `json:"priority,omitempty"`
	SubmittedAt         Timestamp `json:"submittedAt"`
	AssignedAt          Timestamp `json:"assignedDate"`
	Citizen             *Party    `json:"citizenId,omitempty"`
	Officer             *Party    `json:"officerId,omitempty"`
	AssignedOfficerName string    `json:"assignedOfficerName,omitempty"`
}

// WithDefaults fills what the citizen view shows even when the API leaves
// it out.
func (g Grievance) WithDefaults() Grievance {
	if g.Status == "" {
		g.Status = StatusPending
	}
	if g.Priority == "" {
		g.Priority = PriorityMedium
	}
	if g.TrackingID == "" {
		g.TrackingID = g.GrievanceID
	}
	return g
}

type Evidence struct {
	FileURL     string    `json:"fileUrl,omitempty"`
	URL         string    `json:"url,omitempty"`
	Description string    `json:"description,omitempty"`
	FileType    string    `json:"fileType,omitempty"`
	UploadedBy  string    `json:"uploadedBy,omitempty"`
	UploadedAt  Timestamp `json:"uploadedAt"`
}

type LogAttachment struct {
	FileURL  string `json:"fileUrl"`
	FileType string `json:"fileType"`
}

// LogEntry is one status change. The log is append-only on the server.
type LogEntry struct {
	OfficerName string          `json:"officerName"`
	Timestamp   Timestamp       `json:"timestamp"`
	Status      Status          `json:"status,omitempty"`
	Message     string          `json:"message,omitempty"`
	Attachments []LogAttachment `json:"attachments,omitempty"`
}

// Detail is the officer's full view of one grievance.
type Detail struct {
	GrievanceID string     `json:"grievanceId,omitempty"`
	Status      Status     `json:"status"`
	Title       string     `json:"title"`
	Category    string     `json:"category"`
	Priority    Priority   `json:"priority"`
	SubmittedAt Timestamp  `json:"submittedDate"`
	AssignedAt  Timestamp  `json:"assignedDate"`
	Location    Location   `json:"location"`
	Description string     `json:"description"`
	Citizen     string     `json:"citizen"`
	Evidence    []Evidence `json:"evidence"`
	Logs        []LogEntry `json:"logs"`
}
