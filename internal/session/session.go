package session

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/frahmantamala/performance-management/internal/identity"
)

var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrTokenExpired = errors.New("session token expired")
	ErrTokenRevoked = errors.New("session token revoked")
	ErrNoSession    = errors.New("no active session")
)

// Claims is the serialized form of an Identity plus token metadata. The
// identity is reconstructed from these claims on every authenticated request;
// RoleDetails rides along untouched.
type Claims struct {
	UserID       string         `json:"user_id"`
	Username     string         `json:"username"`
	Role         string         `json:"role"`
	BackendToken string         `json:"backend_token"`
	RoleDetails  map[string]any `json:"role_details,omitempty"`
	jwt.RegisteredClaims
}

// Identity rebuilds the principal from decoded claims. A claims payload with
// an unrecognized role fails closed rather than defaulting.
func (c *Claims) Identity() (*identity.Identity, error) {
	role, err := identity.ParseRole(c.Role)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return &identity.Identity{
		ID:          c.UserID,
		Username:    c.Username,
		Role:        role,
		Token:       c.BackendToken,
		RoleDetails: c.RoleDetails,
	}, nil
}

// Record is what the store keeps per live session, keyed by the token jti.
type Record struct {
	SessionID string            `json:"session_id"`
	Identity  identity.Identity `json:"identity"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// TokenIssuer mints, verifies and renews session tokens.
type TokenIssuer interface {
	Issue(id identity.Identity) (string, *Claims, error)
	Decode(tokenString string) (*Claims, error)
	Renew(claims *Claims) (string, *Claims, error)
}

// Store holds live session records. Get on a missing or expired record
// returns ErrNoSession.
type Store interface {
	Save(ctx context.Context, record Record) error
	Get(ctx context.Context, sessionID string) (Record, error)
	Delete(ctx context.Context, sessionID string) error
}

// RevocationList denylists session IDs until their token would have expired
// anyway. A revoked ID must never authenticate again.
type RevocationList interface {
	Revoke(ctx context.Context, sessionID string, until time.Time) error
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}

// CredentialExchanger is the outbound contract: the backend API client in
// production, the devauth provider in development.
type CredentialExchanger interface {
	Authenticate(ctx context.Context, username, password string) (*identity.Identity, error)
	Revoke(ctx context.Context, token string) error
}

// ServiceAPI is what the HTTP layer sees of the session service.
type ServiceAPI interface {
	SignIn(ctx context.Context, dto LoginDTO) (*AuthSession, error)
	Resolve(ctx context.Context, tokenString string) (*identity.Identity, *Claims, error)
	Renew(ctx context.Context, claims *Claims) (string, *Claims, error)
	SignOut(ctx context.Context, tokenString string) error
}

// AuthSession is the result of a successful sign-in.
type AuthSession struct {
	Token     string
	Claims    *Claims
	Identity  *identity.Identity
	ExpiresAt time.Time
}
