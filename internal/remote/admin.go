package remote

import (
	"context"

	"civicportal/internal/auth"
	"civicportal/internal/grievance"
)

type complaintList struct {
	Complaints []grievance.Grievance `json:"complaints"`
}

func (l complaintList) items() []grievance.Grievance {
	if l.Complaints == nil {
		return []grievance.Grievance{}
	}
	return l.Complaints
}

// PendingComplaints lists complaints awaiting assignment.
func (c *Client) PendingComplaints(ctx context.Context, creds auth.Credentials) ([]grievance.Grievance, error) {
	var out complaintList
	if err := c.getJSON(ctx, "pending complaints", "/api/admin/get-complaints", creds, &out); err != nil {
		return nil, err
	}
	return out.items(), nil
}

func (c *Client) AllComplaints(ctx context.Context, creds auth.Credentials) ([]grievance.Grievance, error) {
	var out complaintList
	if err := c.getJSON(ctx, "all complaints", "/api/admin/get-all-complaints", creds, &out); err != nil {
		return nil, err
	}
	return out.items(), nil
}

func (c *Client) Officers(ctx context.Context, creds auth.Credentials) ([]grievance.Officer, error) {
	var out struct {
		Officers []grievance.Officer `json:"officers"`
	}
	if err := c.getJSON(ctx, "officers", "/api/admin/get-officers", creds, &out); err != nil {
		return nil, err
	}
	if out.Officers == nil {
		out.Officers = []grievance.Officer{}
	}
	return out.Officers, nil
}

func (c *Client) Assign(ctx context.Context, creds auth.Credentials, grievanceID, officerName string) error {
	in := map[string]string{"grievanceId": grievanceID, "officerName": officerName}
	_, _, err := c.postJSON(ctx, "assign", "/api/admin/assign", creds, in, nil)
	return err
}

func (c *Client) DashboardStats(ctx context.Context, creds auth.Credentials) (grievance.DashboardStats, error) {
	var out grievance.DashboardStats
	if err := c.getJSON(ctx, "dashboard stats", "/api/admin/dashboard", creds, &out); err != nil {
		return grievance.DashboardStats{}, err
	}
	return out, nil
}

func (c *Client) OfficerPerformance(ctx context.Context, creds auth.Credentials) ([]grievance.OfficerPerformance, error) {
	var out struct {
		Performance []grievance.OfficerPerformance `json:"performance"`
	}
	if err := c.getJSON(ctx, "officer performance", "/api/admin/officerPerformance", creds, &out); err != nil {
		return nil, err
	}
	return out.Performance, nil
}

func (c *Client) ExtendedAnalytics(ctx context.Context, creds auth.Credentials) (grievance.ExtendedAnalytics, error) {
	var out grievance.ExtendedAnalytics
	if err := c.getJSON(ctx, "extended analytics", "/api/admin/extendedAnalytics", creds, &out); err != nil {
		return grievance.ExtendedAnalytics{}, err
	}
	return out, nil
}
