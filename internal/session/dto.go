package session

import "time"

// LoginDTO is the transport shape the HTTP handler accepts for sign-in.
type LoginDTO struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ValidationError represents a simple validation error from DTO validation.
type ValidationError struct {
	Msg string
}

func (v ValidationError) Error() string { return v.Msg }

// Validate checks required fields; the backend stays the source of truth for
// everything beyond presence.
func (d LoginDTO) Validate() error {
	if d.Username == "" {
		return ValidationError{Msg: "username is required"}
	}
	if d.Password == "" {
		return ValidationError{Msg: "password is required"}
	}
	return nil
}

// SessionResponse is returned on sign-in and on session reads.
type SessionResponse struct {
	Token       string         `json:"token"`
	ExpiresAt   time.Time      `json:"expires_at"`
	ID          string         `json:"id"`
	Username    string         `json:"username"`
	Role        string         `json:"role"`
	RoleDetails map[string]any `json:"role_details,omitempty"`
	LandingPath string         `json:"landing_path"`
}

// SignOutResponse tells the UI where to send the user next.
type SignOutResponse struct {
	RedirectTo string `json:"redirect_to"`
}
