package remote

import (
	"context"
	"errors"
	"net/http"

	"civicportal/internal/auth"
)

const (
	otpSentMessage   = "OTP sent successfully"
	loginSuccessText = "Login successful"
)

var ErrNoSessionEndpoint = errors.New("no session check endpoint for role")

var sessionEndpoints = map[auth.Role]string{
	auth.RoleCitizen: "/api/checkUserSession",
	auth.RoleOfficer: "/api/checkOfficerSession",
	auth.RoleAdmin:   "/api/checkAdminSession",
}

// CheckSession asks the role's session endpoint whether creds are still
// valid. Any non-2xx reply is an error.
func (c *Client) CheckSession(ctx context.Context, role auth.Role, creds auth.Credentials) error {
	path, ok := sessionEndpoints[role]
	if !ok {
		return ErrNoSessionEndpoint
	}
	return c.getJSON(ctx, "check session", path, creds, nil)
}

// SendOTP requests a login code for email. The API must confirm with its
// exact success message.
func (c *Client) SendOTP(ctx context.Context, email string) error {
	msg, resp, err := c.postJSON(ctx, "send otp", "/api/auth/send-otp", "", map[string]string{"email": email}, nil)
	if err != nil {
		return err
	}
	if msg != otpSentMessage {
		return &APIError{Op: "send otp", Status: resp.StatusCode, Message: msg}
	}
	return nil
}

// VerifyOTP exchanges email and code for an API session.
func (c *Client) VerifyOTP(ctx context.Context, email, otp string) (auth.Credentials, error) {
	msg, resp, err := c.postJSON(ctx, "verify otp", "/api/auth/verify-otp", "",
		map[string]string{"email": email, "otp": otp}, nil)
	if err != nil {
		return "", err
	}
	if msg != loginSuccessText {
		return "", &APIError{Op: "verify otp", Status: resp.StatusCode, Message: msg}
	}
	return auth.CredentialsFromCookies(resp.Cookies()), nil
}

type StaffUser struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type StaffLogin struct {
	UserType auth.Role `json:"userType"`
	User     StaffUser `json:"user"`
}

// StaffLogin signs an officer or administrator in.
func (c *Client) StaffLogin(ctx context.Context, email, password string) (StaffLogin, auth.Credentials, error) {
	var out StaffLogin
	_, resp, err := c.postJSON(ctx, "officer login", "/api/officer/login", "",
		map[string]string{"email": email, "password": password}, &out)
	if err != nil {
		return StaffLogin{}, "", err
	}
	role, err := auth.ParseRole(string(out.UserType))
	if err != nil || (role != auth.RoleOfficer && role != auth.RoleAdmin) {
		return StaffLogin{}, "", &APIError{Op: "officer login", Status: http.StatusBadGateway,
			Message: "Login failed due to an unknown error."}
	}
	out.UserType = role
	return out, auth.CredentialsFromCookies(resp.Cookies()), nil
}

func (c *Client) Logout(ctx context.Context, creds auth.Credentials) error {
	return c.getJSON(ctx, "logout", "/api/logout", creds, nil)
}
