package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/frahmantamala/performance-management/internal/identity"
)

// JWTTokenIssuer signs session tokens with HS256. Issue embeds the full
// identity; Decode verifies signature and expiry before anything is trusted.
type JWTTokenIssuer struct {
	Secret     []byte
	SessionTTL time.Duration

	// overridable clock for expiry tests
	now func() time.Time
}

func NewJWTTokenIssuer(secret string, sessionTTL time.Duration) *JWTTokenIssuer {
	return &JWTTokenIssuer{
		Secret:     []byte(secret),
		SessionTTL: sessionTTL,
		now:        time.Now,
	}
}

// Issue mints a fresh token for the identity. RoleDetails is embedded as an
// opaque pass-through; the issuer never assumes its schema.
func (j *JWTTokenIssuer) Issue(id identity.Identity) (string, *Claims, error) {
	return j.issue(id, uuid.NewString())
}

func (j *JWTTokenIssuer) issue(id identity.Identity, sessionID string) (string, *Claims, error) {
	now := j.now()
	claims := &Claims{
		UserID:       id.ID,
		Username:     id.Username,
		Role:         id.Role.String(),
		BackendToken: id.Token,
		RoleDetails:  id.RoleDetails,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Subject:   id.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.SessionTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.Secret)
	if err != nil {
		return "", nil, err
	}

	return tokenString, claims, nil
}

// Decode verifies integrity and expiry, failing closed on both. Callers treat
// any error exactly as "no session".
func (j *JWTTokenIssuer) Decode(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.Secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return j.now() }))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	// claims with an unknown role are as untrustworthy as a bad signature
	if _, err := identity.ParseRole(claims.Role); err != nil {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// Renew re-issues the identity carried by claims with a fresh expiry while
// keeping the session ID. Earlier tokens of the same session stay decodable
// until their own expiry, so revoking the session ID kills all of them at once.
func (j *JWTTokenIssuer) Renew(claims *Claims) (string, *Claims, error) {
	id, err := claims.Identity()
	if err != nil {
		return "", nil, err
	}
	return j.issue(*id, claims.ID)
}
