package devauth

import (
	"context"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/performance-management/internal"
	"github.com/frahmantamala/performance-management/internal/identity"
)

// Provider verifies credentials against bcrypt hashes from config instead of
// the remote backend. Development only; it satisfies the same contract as
// backendapi.Client so the rest of the gateway cannot tell them apart.
type Provider struct {
	users  map[string]internal.DevUser
	logger *slog.Logger
}

func NewProvider(devUsers []internal.DevUser, logger *slog.Logger) *Provider {
	users := make(map[string]internal.DevUser, len(devUsers))
	for _, u := range devUsers {
		users[u.Username] = u
	}
	return &Provider{
		users:  users,
		logger: logger,
	}
}

func (p *Provider) Authenticate(ctx context.Context, username, password string) (*identity.Identity, error) {
	user, ok := p.users[username]
	if !ok {
		return nil, internal.ErrAuthenticationFailed
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, internal.ErrAuthenticationFailed
	}

	role, err := identity.ParseRole(user.Role)
	if err != nil {
		p.logger.Error("dev user has unrecognized role", "username", username, "role", user.Role)
		return nil, internal.ErrUnknownRole.WithCause(err)
	}

	details := map[string]any{}
	if user.Department != "" {
		details["department"] = user.Department
	}
	if user.Team != "" {
		details["team"] = user.Team
	}

	return &identity.Identity{
		ID:          user.ID,
		Username:    user.Username,
		Role:        role,
		Token:       "dev-" + user.ID,
		RoleDetails: details,
	}, nil
}

// Revoke is a no-op: dev tokens exist only inside this process.
func (p *Provider) Revoke(ctx context.Context, token string) error {
	p.logger.Debug("dev provider revocation requested", "token_prefix", prefix(token))
	return nil
}

func prefix(token string) string {
	if len(token) > 12 {
		return token[:12]
	}
	return token
}
