// Package auth contains domain-level types for authentication and sessions.
// It is pure and free of framework/adapter concerns.
package auth

import "time"

// RoleID is the backend's numeric role identifier.
// Only RoleAdmin carries elevated privilege; every other value is a standard principal.
type RoleID int

const (
	RoleAdmin    RoleID = 1
	RoleStandard RoleID = 2
)

// IsAdmin reports whether the role id denotes administrator privilege.
func (r RoleID) IsAdmin() bool { return r == RoleAdmin }

// Identity represents the authenticated principal returned by a credential exchange or an IdP.
// Adapters map provider-specific payloads into this shape.
type Identity struct {
	SubjectID string // opaque backend user identifier
	RoleID    RoleID // zero when the source reported no role
	Email     string
	Name      string
	Token     string   // bearer credential for the content backend
	Groups    []string // only populated by SSO providers
	ExpiresAt time.Time
}

// Session is the server-side record we persist for an authenticated principal.
// ID is an opaque session identifier carried by the session cookie.
type Session struct {
	ID        string    `json:"id"`
	SubjectID string    `json:"subject_id"`
	RoleID    RoleID    `json:"role_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsAdmin returns true if the session carries administrator privilege.
func (s Session) IsAdmin() bool { return s.RoleID.IsAdmin() }
