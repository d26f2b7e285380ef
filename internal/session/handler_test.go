package session

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/frahmantamala/performance-management/internal"
	"github.com/frahmantamala/performance-management/internal/guard"
)

var _ = ginkgo.Describe("Handler", func() {
	var (
		handler *Handler
		service *Service
	)

	ginkgo.BeforeEach(func() {
		exchanger := newMockExchanger()
		issuer := NewJWTTokenIssuer("handler-test-secret-32-characters!!!!!", 30*time.Minute)
		service = NewService(exchanger, issuer, NewMemoryStore(), NewMemoryRevocationList(), nil, testLogger())
		handler = NewHandler(service, guard.DefaultRuleset())
	})

	loginRequest := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		handler.Login(rec, req)
		return rec
	}

	signIn := func() SessionResponse {
		rec := loginRequest(`{"username": "alice", "password": "correct_password"}`)
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))

		var resp SessionResponse
		gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(gomega.Succeed())
		return resp
	}

	ginkgo.Describe("Login", func() {
		ginkgo.It("should return the session with the role's landing path", func() {
			resp := signIn()

			gomega.Expect(resp.Token).ToNot(gomega.BeEmpty())
			gomega.Expect(resp.Role).To(gomega.Equal("manager"))
			gomega.Expect(resp.LandingPath).To(gomega.Equal("/manager"))
			gomega.Expect(resp.ExpiresAt).To(gomega.BeTemporally(">", time.Now()))
		})

		ginkgo.It("should reject a malformed body", func() {
			rec := loginRequest(`{"username": `)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
		})

		ginkgo.It("should reject missing credentials with 400", func() {
			rec := loginRequest(`{"username": "alice"}`)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
			gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring("password is required"))
		})

		ginkgo.It("should map authentication failure to 401 with the backend message", func() {
			exchanger := newMockExchanger()
			exchanger.authErr = internal.ErrAuthenticationFailed.WithMessage("Account is locked")
			service = NewService(exchanger, NewJWTTokenIssuer("handler-test-secret-32-characters!!!!!", time.Hour), NewMemoryStore(), NewMemoryRevocationList(), nil, testLogger())
			handler = NewHandler(service, guard.DefaultRuleset())

			rec := loginRequest(`{"username": "alice", "password": "wrong"}`)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring("Account is locked"))
		})

		ginkgo.It("should hide malformed-backend-response details behind a generic 401", func() {
			exchanger := newMockExchanger()
			exchanger.authErr = internal.ErrInvalidBackendResponse
			service = NewService(exchanger, NewJWTTokenIssuer("handler-test-secret-32-characters!!!!!", time.Hour), NewMemoryStore(), NewMemoryRevocationList(), nil, testLogger())
			handler = NewHandler(service, guard.DefaultRuleset())

			rec := loginRequest(`{"username": "alice", "password": "pw"}`)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring("authentication failed"))
			gomega.Expect(rec.Body.String()).ToNot(gomega.ContainSubstring("backend"))
		})
	})

	ginkgo.Describe("Logout", func() {
		ginkgo.It("should clear the session and point the client at sign-in", func() {
			// Given
			resp := signIn()

			// When
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
			req.Header.Set("Authorization", "Bearer "+resp.Token)
			rec := httptest.NewRecorder()
			handler.Logout(rec, req)

			// Then
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))

			var out SignOutResponse
			gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &out)).To(gomega.Succeed())
			gomega.Expect(out.RedirectTo).To(gomega.Equal("/login"))

			// and the token is dead
			_, _, err := service.Resolve(context.Background(), resp.Token)
			gomega.Expect(err).To(gomega.MatchError(ErrTokenRevoked))
		})

		ginkgo.It("should require a bearer token", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
			rec := httptest.NewRecorder()

			handler.Logout(rec, req)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
		})
	})

	ginkgo.Describe("AuthMiddleware", func() {
		var next http.Handler

		ginkgo.BeforeEach(func() {
			next = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				id, ok := internal.IdentityFromContext(r.Context())
				gomega.Expect(ok).To(gomega.BeTrue())
				w.Write([]byte(id.Username))
			})
		})

		ginkgo.It("should attach the identity and a renewed token", func() {
			// Given
			resp := signIn()

			// When
			req := httptest.NewRequest(http.MethodGet, "/api/v1/session", nil)
			req.Header.Set("Authorization", "Bearer "+resp.Token)
			rec := httptest.NewRecorder()
			handler.AuthMiddleware(next).ServeHTTP(rec, req)

			// Then
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(rec.Body.String()).To(gomega.Equal("alice"))

			renewed := rec.Header().Get(RenewedTokenHeader)
			gomega.Expect(renewed).ToNot(gomega.BeEmpty())

			// the renewed token resolves to the same session
			_, originalClaims, err := service.Resolve(context.Background(), resp.Token)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			id, renewedClaims, err := service.Resolve(context.Background(), renewed)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(id.Username).To(gomega.Equal("alice"))
			gomega.Expect(renewedClaims.ID).To(gomega.Equal(originalClaims.ID))
		})

		ginkgo.It("should reject a request without a token", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/session", nil)
			rec := httptest.NewRecorder()

			handler.AuthMiddleware(next).ServeHTTP(rec, req)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
		})

		ginkgo.It("should reject a revoked session with a distinct message", func() {
			// Given
			resp := signIn()
			gomega.Expect(service.SignOut(context.Background(), resp.Token)).To(gomega.Succeed())

			// When
			req := httptest.NewRequest(http.MethodGet, "/api/v1/session", nil)
			req.Header.Set("Authorization", "Bearer "+resp.Token)
			rec := httptest.NewRecorder()
			handler.AuthMiddleware(next).ServeHTTP(rec, req)

			// Then
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring("session revoked"))
		})
	})

	ginkgo.Describe("OptionalAuthMiddleware", func() {
		ginkgo.It("should continue without an identity when no token is present", func() {
			var sawIdentity bool
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, sawIdentity = internal.IdentityFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/navigate?path=/hr", nil)
			rec := httptest.NewRecorder()
			handler.OptionalAuthMiddleware(next).ServeHTTP(rec, req)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(sawIdentity).To(gomega.BeFalse())
		})

		ginkgo.It("should continue without an identity when the token is dead", func() {
			var sawIdentity bool
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, sawIdentity = internal.IdentityFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/navigate?path=/hr", nil)
			req.Header.Set("Authorization", "Bearer garbage.token.here")
			rec := httptest.NewRecorder()
			handler.OptionalAuthMiddleware(next).ServeHTTP(rec, req)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(sawIdentity).To(gomega.BeFalse())
		})
	})
})
