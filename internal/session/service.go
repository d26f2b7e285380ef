package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/frahmantamala/performance-management/internal"
	"github.com/frahmantamala/performance-management/internal/core/events"
	"github.com/frahmantamala/performance-management/internal/identity"
)

// Service is the session core: credential exchange in, signed token out,
// resolution on every request, revocation on sign-out.
type Service struct {
	exchanger   CredentialExchanger
	issuer      TokenIssuer
	store       Store
	revocations RevocationList
	bus         *events.EventBus
	logger      *slog.Logger
}

func NewService(exchanger CredentialExchanger, issuer TokenIssuer, store Store, revocations RevocationList, bus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		exchanger:   exchanger,
		issuer:      issuer,
		store:       store,
		revocations: revocations,
		bus:         bus,
		logger:      logger,
	}
}

// SignIn validates input, exchanges credentials, mints a session token and
// persists the session record. The record write completes before SignIn
// returns, so a navigation check issued right after sign-in never sees a
// stale empty session.
func (s *Service) SignIn(ctx context.Context, dto LoginDTO) (*AuthSession, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	id, err := s.exchanger.Authenticate(ctx, dto.Username, dto.Password)
	if err != nil {
		s.publish(ctx, events.EventSessionSignInFailed, map[string]interface{}{
			"username": dto.Username,
			"reason":   err.Error(),
		})
		return nil, err
	}

	tokenString, claims, err := s.issuer.Issue(*id)
	if err != nil {
		s.logger.Error("failed to issue session token", "error", err, "user_id", id.ID)
		return nil, internal.NewInternalError("failed to issue session token", err)
	}

	record := Record{
		SessionID: claims.ID,
		Identity:  *id,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if err := s.store.Save(ctx, record); err != nil {
		s.logger.Error("failed to save session record", "error", err, "user_id", id.ID)
		return nil, internal.NewInternalError("failed to save session", err)
	}

	s.publish(ctx, events.EventSessionSignedIn, map[string]interface{}{
		"user_id":    id.ID,
		"username":   id.Username,
		"role":       id.Role.String(),
		"session_id": claims.ID,
	})

	return &AuthSession{
		Token:     tokenString,
		Claims:    claims,
		Identity:  id,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Resolve turns a bearer token back into an identity. Decode failures,
// expiry and revocation all surface as errors the caller treats as "no
// session". On success the stored record is refreshed with the identity
// carried by the claims.
func (s *Service) Resolve(ctx context.Context, tokenString string) (*identity.Identity, *Claims, error) {
	claims, err := s.issuer.Decode(tokenString)
	if err != nil {
		return nil, nil, err
	}

	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		s.logger.Error("revocation lookup failed", "error", err, "session_id", claims.ID)
		return nil, nil, internal.NewInternalError("revocation lookup failed", err)
	}
	if revoked {
		return nil, nil, ErrTokenRevoked
	}

	id, err := claims.Identity()
	if err != nil {
		return nil, nil, err
	}

	// copy the identity forward so the store mirrors the latest decode
	record := Record{
		SessionID: claims.ID,
		Identity:  *id,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if err := s.store.Save(ctx, record); err != nil {
		s.logger.Warn("failed to refresh session record", "error", err, "session_id", claims.ID)
	}

	return id, claims, nil
}

// Renew issues a replacement token with a fresh expiry (sliding session). The
// replacement keeps the session ID, so the store record is overwritten in
// place and a later sign-out revokes every token minted for the session.
func (s *Service) Renew(ctx context.Context, claims *Claims) (string, *Claims, error) {
	tokenString, renewed, err := s.issuer.Renew(claims)
	if err != nil {
		return "", nil, err
	}

	id, err := renewed.Identity()
	if err != nil {
		return "", nil, err
	}

	record := Record{
		SessionID: renewed.ID,
		Identity:  *id,
		ExpiresAt: renewed.ExpiresAt.Time,
	}
	if err := s.store.Save(ctx, record); err != nil {
		s.logger.Warn("failed to save renewed session record", "error", err, "session_id", renewed.ID)
	}

	return tokenString, renewed, nil
}

// SignOut clears local session state first, then requests upstream
// revocation. A failed upstream call is logged and swallowed so the user is
// never stuck signed in locally. Signing out an already-dead token is a
// silent no-op, which makes the operation idempotent.
func (s *Service) SignOut(ctx context.Context, tokenString string) error {
	claims, err := s.issuer.Decode(tokenString)
	if err != nil {
		// expired, tampered or already-revoked token: nothing left to clear
		s.logger.Debug("sign-out with unusable token", "error", err)
		return nil
	}

	if err := s.store.Delete(ctx, claims.ID); err != nil {
		s.logger.Error("failed to delete session record", "error", err, "session_id", claims.ID)
	}

	// Renewals keep the session ID but push expiry forward, so the denylist
	// entry must outlive the newest token of the session, not just the one
	// presented here. One full TTL from now is that upper bound.
	until := claims.ExpiresAt.Time
	if claims.IssuedAt != nil {
		if ttl := claims.ExpiresAt.Time.Sub(claims.IssuedAt.Time); ttl > 0 {
			until = time.Now().Add(ttl)
		}
	}
	if err := s.revocations.Revoke(ctx, claims.ID, until); err != nil {
		s.logger.Error("failed to denylist session", "error", err, "session_id", claims.ID)
	}

	if err := s.exchanger.Revoke(ctx, claims.BackendToken); err != nil {
		// fail-open locally, fail-reported remotely
		s.logger.Error("revocation failed", "error", err, "session_id", claims.ID, "user_id", claims.UserID)
	}

	s.publish(ctx, events.EventSessionSignedOut, map[string]interface{}{
		"user_id":    claims.UserID,
		"username":   claims.Username,
		"role":       claims.Role,
		"session_id": claims.ID,
	})

	return nil
}

func (s *Service) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, events.NewSessionEvent(eventType, data)); err != nil {
		s.logger.Warn("failed to publish session event", "event_type", eventType, "error", err)
	}
}
