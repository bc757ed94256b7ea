package remote

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"

	"civicportal/internal/auth"
	"civicportal/internal/grievance"
)

func (c *Client) OfficerDashboard(ctx context.Context, creds auth.Credentials) ([]grievance.Grievance, error) {
	var out struct {
		Grievances []grievance.Grievance `json:"grievances"`
	}
	if err := c.getJSON(ctx, "officer dashboard", "/api/officer/dashboard", creds, &out); err != nil {
		return nil, err
	}
	if out.Grievances == nil {
		out.Grievances = []grievance.Grievance{}
	}
	return out.Grievances, nil
}

func (c *Client) OfficerGrievance(ctx context.Context, creds auth.Credentials, id string) (*grievance.Detail, error) {
	var out struct {
		Grievance *grievance.Detail `json:"grievance"`
	}
	path := "/api/officer/grievance/" + url.PathEscape(id)
	if err := c.getJSON(ctx, "officer grievance", path, creds, &out); err != nil {
		return nil, err
	}
	if out.Grievance == nil {
		return nil, &APIError{Op: "officer grievance", Status: http.StatusNotFound}
	}
	if out.Grievance.GrievanceID == "" {
		out.Grievance.GrievanceID = id
	}
	return out.Grievance, nil
}

// SubmitUpdate posts a validated status change with optional evidence and
// returns the refreshed grievance when the API includes it.
func (c *Client) SubmitUpdate(ctx context.Context, creds auth.Credentials, id string, u grievance.Update) (*grievance.Detail, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("nstatus", string(u.Status)); err != nil {
		return nil, fmt.Errorf("submit update: %w", err)
	}
	if err := mw.WriteField("notes", u.Notes); err != nil {
		return nil, fmt.Errorf("submit update: %w", err)
	}
	if u.Evidence != nil {
		if err := writeFilePart(mw, "file", u.Evidence); err != nil {
			return nil, fmt.Errorf("submit update: attach evidence: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("submit update: %w", err)
	}

	var out struct {
		Grievance *grievance.Detail `json:"grievance"`
	}
	_, _, err := c.do(ctx, request{
		op:          "submit update",
		method:      http.MethodPost,
		path:        "/api/officer/submitUpdate/" + url.PathEscape(id),
		creds:       creds,
		body:        &buf,
		contentType: mw.FormDataContentType(),
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Grievance, nil
}
