package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"civicportal/internal/auth"
	"civicportal/internal/grievance"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func writeFilePart(w *multipart.Writer, field string, a *grievance.Attachment) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field), quoteEscaper.Replace(a.Filename)))
	ct := a.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)
	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, a.Content)
	return err
}

type submitReply struct {
	GrievanceID string `json:"grievanceId"`
}

// SubmitComplaint files a validated submission and returns its tracking id.
func (c *Client) SubmitComplaint(ctx context.Context, creds auth.Credentials, s grievance.Submission) (string, error) {
	location, err := json.Marshal(s.Location())
	if err != nil {
		return "", fmt.Errorf("submit complaint: encode location: %w", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := []struct{ name, value string }{
		{"category", s.Category},
		{"title", s.Title},
		{"description", s.Description},
		{"location", string(location)},
	}
	for _, f := range fields {
		if err := mw.WriteField(f.name, f.value); err != nil {
			return "", fmt.Errorf("submit complaint: %w", err)
		}
	}
	if s.Attachment != nil {
		if err := writeFilePart(mw, "attachments", s.Attachment); err != nil {
			return "", fmt.Errorf("submit complaint: attach file: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("submit complaint: %w", err)
	}

	var out submitReply
	_, _, err = c.do(ctx, request{
		op:          "submit complaint",
		method:      http.MethodPost,
		path:        "/api/complaints/submit",
		creds:       creds,
		body:        &buf,
		contentType: mw.FormDataContentType(),
	}, &out)
	if err != nil {
		return "", err
	}
	return out.GrievanceID, nil
}

type UserComplaints struct {
	Email      string                `json:"email"`
	Complaints []grievance.Grievance `json:"complaints"`
}

func (c *Client) UserComplaints(ctx context.Context, creds auth.Credentials) (UserComplaints, error) {
	var out UserComplaints
	if err := c.getJSON(ctx, "user complaints", "/api/complaints/userComplaints", creds, &out); err != nil {
		return UserComplaints{}, err
	}
	return out, nil
}
