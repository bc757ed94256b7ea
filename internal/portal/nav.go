package portal

import "civicportal/internal/auth"

type NavItem struct {
	Label  string `json:"label"`
	Path   string `json:"path"`
	Active bool   `json:"active"`
}

type Nav struct {
	Title string    `json:"title"`
	Items []NavItem `json:"items"`
}

var navByRole = map[auth.Role]Nav{
	auth.RoleCitizen: {
		Title: "Citizen Portal",
		Items: []NavItem{
			{Label: "Dashboard", Path: "/citizen/dashboard"},
			{Label: "Submit Grievance", Path: "/submit"},
		},
	},
	auth.RoleOfficer: {
		Title: "Officer Portal",
		Items: []NavItem{
			{Label: "Dashboard", Path: "/officer/dashboard"},
		},
	},
	auth.RoleAdmin: {
		Title: "Admin Portal",
		Items: []NavItem{
			{Label: "Dashboard", Path: "/admin/dashboard"},
			{Label: "Analytics", Path: "/admin/analytics"},
		},
	},
}

// NavFor returns the navigation for role with the entry for current marked
// active, or nil for a visitor without a role.
func NavFor(role auth.Role, current string) *Nav {
	tmpl, ok := navByRole[role]
	if !ok {
		return nil
	}
	nav := Nav{Title: tmpl.Title, Items: make([]NavItem, len(tmpl.Items))}
	for i, item := range tmpl.Items {
		item.Active = item.Path == current
		nav.Items[i] = item
	}
	return &nav
}

// Action is a call to action shown on the landing page.
type Action struct {
	Label  string `json:"label"`
	Path   string `json:"path"`
	Method string `json:"method,omitempty"`
}

func landingActions(authenticated bool) []Action {
	if authenticated {
		return []Action{{Label: "Logout", Path: "/logout", Method: "POST"}}
	}
	return []Action{
		{Label: "Officer Login", Path: "/officer/login"},
		{Label: "Citizen Login", Path: "/citizen/login"},
	}
}
