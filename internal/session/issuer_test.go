package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/frahmantamala/performance-management/internal/identity"
)

var _ = ginkgo.Describe("JWTTokenIssuer", func() {
	var (
		issuer *JWTTokenIssuer
		alice  identity.Identity
	)

	ginkgo.BeforeEach(func() {
		issuer = NewJWTTokenIssuer("issuer-test-secret-at-least-32-chars!!", 30*time.Minute)
		alice = identity.Identity{
			ID:       "u-1001",
			Username: "alice",
			Role:     identity.RoleManager,
			Token:    "backend-bearer-token",
			RoleDetails: map[string]any{
				"department": "Engineering",
			},
		}
	})

	ginkgo.Describe("Issue", func() {
		ginkgo.It("should embed the full identity in the claims", func() {
			// When
			tokenString, claims, err := issuer.Issue(alice)

			// Then
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(tokenString).ToNot(gomega.BeEmpty())
			gomega.Expect(claims.UserID).To(gomega.Equal("u-1001"))
			gomega.Expect(claims.Username).To(gomega.Equal("alice"))
			gomega.Expect(claims.Role).To(gomega.Equal("manager"))
			gomega.Expect(claims.BackendToken).To(gomega.Equal("backend-bearer-token"))
			gomega.Expect(claims.ID).ToNot(gomega.BeEmpty())
			gomega.Expect(claims.ExpiresAt.Time).To(gomega.BeTemporally("~", time.Now().Add(30*time.Minute), time.Minute))
		})

		ginkgo.It("should mint a distinct session ID per token", func() {
			_, first, err := issuer.Issue(alice)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			_, second, err := issuer.Issue(alice)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			gomega.Expect(first.ID).ToNot(gomega.Equal(second.ID))
		})
	})

	ginkgo.Describe("Decode", func() {
		ginkgo.It("should round-trip an issued token", func() {
			// Given
			tokenString, issued, err := issuer.Issue(alice)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			// When
			decoded, err := issuer.Decode(tokenString)

			// Then
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(decoded.ID).To(gomega.Equal(issued.ID))
			gomega.Expect(decoded.RoleDetails).To(gomega.HaveKeyWithValue("department", "Engineering"))

			id, err := decoded.Identity()
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(*id).To(gomega.Equal(alice))
		})

		ginkgo.It("should reject a tampered token", func() {
			tokenString, _, err := issuer.Issue(alice)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			decoded, err := issuer.Decode(tokenString + "tamper")

			gomega.Expect(err).To(gomega.MatchError(ErrInvalidToken))
			gomega.Expect(decoded).To(gomega.BeNil())
		})

		ginkgo.It("should reject a token signed with a different secret", func() {
			other := NewJWTTokenIssuer("some-other-secret-also-32-characters!!", 30*time.Minute)
			tokenString, _, err := other.Issue(alice)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			decoded, err := issuer.Decode(tokenString)

			gomega.Expect(err).To(gomega.MatchError(ErrInvalidToken))
			gomega.Expect(decoded).To(gomega.BeNil())
		})

		ginkgo.It("should reject an empty token", func() {
			decoded, err := issuer.Decode("")

			gomega.Expect(err).To(gomega.MatchError(ErrInvalidToken))
			gomega.Expect(decoded).To(gomega.BeNil())
		})

		ginkgo.It("should return ErrTokenExpired past the session TTL", func() {
			// Given
			tokenString, _, err := issuer.Issue(alice)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			// When the clock passes the expiry
			issuer.now = func() time.Time { return time.Now().Add(31 * time.Minute) }
			decoded, err := issuer.Decode(tokenString)

			// Then
			gomega.Expect(err).To(gomega.MatchError(ErrTokenExpired))
			gomega.Expect(decoded).To(gomega.BeNil())
		})

		ginkgo.It("should reject claims carrying an unknown role", func() {
			// Given a token forged with a role outside the enum
			claims := &Claims{
				UserID:   "u-666",
				Username: "mallory",
				Role:     "superadmin",
				RegisteredClaims: jwt.RegisteredClaims{
					ID:        "jti-1",
					ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
				},
			}
			token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
			tokenString, err := token.SignedString(issuer.Secret)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			// When
			decoded, err := issuer.Decode(tokenString)

			// Then
			gomega.Expect(err).To(gomega.MatchError(ErrInvalidToken))
			gomega.Expect(decoded).To(gomega.BeNil())
		})
	})

	ginkgo.Describe("Renew", func() {
		ginkgo.It("should issue a fresh token preserving the identity", func() {
			// Given
			_, claims, err := issuer.Issue(alice)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			// When
			renewedToken, renewed, err := issuer.Renew(claims)

			// Then
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(renewedToken).ToNot(gomega.BeEmpty())
			gomega.Expect(renewed.UserID).To(gomega.Equal(claims.UserID))
			gomega.Expect(renewed.BackendToken).To(gomega.Equal(claims.BackendToken))
		})

		ginkgo.It("should keep the session ID stable across renewals", func() {
			// Given
			_, claims, err := issuer.Issue(alice)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			// When the token is renewed twice in a row
			_, first, err := issuer.Renew(claims)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			_, second, err := issuer.Renew(first)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			// Then every token of the chain shares the session ID
			gomega.Expect(first.ID).To(gomega.Equal(claims.ID))
			gomega.Expect(second.ID).To(gomega.Equal(claims.ID))
		})

		ginkgo.It("should push the expiry forward", func() {
			// Given
			_, claims, err := issuer.Issue(alice)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			// When the clock advances before the renewal
			issuer.now = func() time.Time { return time.Now().Add(10 * time.Minute) }
			_, renewed, err := issuer.Renew(claims)

			// Then
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(renewed.ExpiresAt.Time).To(gomega.BeTemporally(">", claims.ExpiresAt.Time))
		})
	})
})
