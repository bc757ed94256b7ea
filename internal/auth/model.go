package auth

import (
	"errors"
	"net/http"
	"strings"
)

type Role string

const (
	RoleNone    Role = ""
	RoleCitizen Role = "citizen"
	RoleOfficer Role = "officer"
	RoleAdmin   Role = "admin"
)

var ErrUnknownRole = errors.New("unknown role")

func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleCitizen, RoleOfficer, RoleAdmin:
		return r, nil
	case RoleNone:
		return RoleNone, nil
	default:
		return RoleNone, ErrUnknownRole
	}
}

// Flag keys. They mirror what the browser client used to keep in local
// storage.
const (
	FlagUserType        = "userType"
	FlagIsAuthenticated = "isAuthenticated"
	FlagUserName        = "userName"
	FlagUserEmail       = "userEmail"
	FlagCitizenEmail    = "citizenEmail"
	FlagUpstream        = "upstreamSession"
)

// Flags is the plain string key/value state of one browser session.
type Flags map[string]string

func (f Flags) Role() Role {
	r, err := ParseRole(f[FlagUserType])
	if err != nil {
		return RoleNone
	}
	return r
}

func (f Flags) Authenticated() bool {
	return f[FlagIsAuthenticated] == "true"
}

// Credentials is the Cookie header value the grievance API issued at login.
type Credentials string

func CredentialsFromCookies(cookies []*http.Cookie) Credentials {
	parts := make([]string, 0, len(cookies))
	for _, c := range cookies {
		if c.Name == "" || c.MaxAge < 0 {
			continue
		}
		parts = append(parts, c.Name+"="+c.Value)
	}
	return Credentials(strings.Join(parts, "; "))
}

type Session struct {
	ID          string
	Flags       Flags
	Credentials Credentials
}

func (s *Session) Role() Role {
	if s == nil {
		return RoleNone
	}
	return s.Flags.Role()
}

func (s *Session) Authenticated() bool {
	return s != nil && s.Flags.Authenticated()
}

func (s *Session) Get(key string) string {
	if s == nil {
		return ""
	}
	return s.Flags[key]
}
