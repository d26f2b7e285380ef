package identity

import (
	"errors"
	"fmt"
)

// Role is the authenticated principal's dashboard role. Exactly three values
// are recognized; anything else is rejected at the boundary, never defaulted.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleHR       Role = "hr"
)

var ErrUnknownRole = errors.New("unknown role")

// ParseRole validates a raw role string coming off the wire.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleEmployee, RoleManager, RoleHR:
		return Role(raw), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, raw)
	}
}

func (r Role) String() string {
	return string(r)
}

// Identity is the authenticated principal for the lifetime of a session.
// Token is the upstream bearer credential the backend issued; RoleDetails is
// role-specific auxiliary data (department, team, assigned departments) whose
// shape the gateway never interprets.
type Identity struct {
	ID          string         `json:"id"`
	Username    string         `json:"username"`
	Role        Role           `json:"role"`
	Token       string         `json:"-"`
	RoleDetails map[string]any `json:"role_details,omitempty"`
}

// Clone returns a copy whose RoleDetails map is detached from the receiver,
// so concurrent readers never observe a partially-updated identity.
func (i Identity) Clone() Identity {
	copied := i
	if i.RoleDetails != nil {
		copied.RoleDetails = make(map[string]any, len(i.RoleDetails))
		for k, v := range i.RoleDetails {
			copied.RoleDetails[k] = v
		}
	}
	return copied
}
