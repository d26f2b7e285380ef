package session

import (
	"encoding/json"
	"net/http"

	"github.com/frahmantamala/performance-management/internal"
	"github.com/frahmantamala/performance-management/internal/guard"
	"github.com/frahmantamala/performance-management/internal/transport"
	"github.com/frahmantamala/performance-management/pkg/logger"
)

// RenewedTokenHeader carries the sliding-session replacement token back to
// the client on every authenticated response.
const RenewedTokenHeader = "X-Renewed-Token"

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	Rules   *guard.Ruleset
}

func NewHandler(svc ServiceAPI, rules *guard.Ruleset) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger.LoggerWrapper()),
		Service:     svc,
		Rules:       rules,
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	auth, err := h.Service.SignIn(r.Context(), dto)
	if err != nil {
		h.writeSignInError(w, err)
		return
	}

	landing, ok := h.Rules.LandingPathFor(auth.Identity.Role)
	if !ok {
		// the exchanger validates roles, so this means rules and roles
		// have drifted apart
		h.Logger.Error("no landing path for authenticated role", "role", auth.Identity.Role)
		h.WriteError(w, http.StatusUnauthorized, "account has no recognized role")
		return
	}

	h.WriteJSON(w, http.StatusOK, SessionResponse{
		Token:       auth.Token,
		ExpiresAt:   auth.ExpiresAt,
		ID:          auth.Identity.ID,
		Username:    auth.Identity.Username,
		Role:        auth.Identity.Role.String(),
		RoleDetails: auth.Identity.RoleDetails,
		LandingPath: landing,
	})
}

func (h *Handler) writeSignInError(w http.ResponseWriter, err error) {
	if _, ok := err.(ValidationError); ok {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if appErr, ok := internal.IsAppError(err); ok {
		switch appErr.Code {
		case internal.ErrCodeInvalidBackendResponse, internal.ErrCodeUnknownRole:
			// diagnostics get the real cause; the user just sees a failed login
			h.Logger.Error("sign-in failed on malformed backend identity", "code", appErr.Code, "error", err)
			h.WriteError(w, http.StatusUnauthorized, "authentication failed")
		default:
			h.Logger.Warn("sign-in rejected", "code", appErr.Code, "error", err)
			h.WriteError(w, appErr.StatusCode, appErr.Message)
		}
		return
	}

	h.Logger.Error("sign-in failed", "error", err)
	h.WriteError(w, http.StatusInternalServerError, "internal server error")
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := h.ExtractTokenFromHeader(r)
	if token == "" {
		h.WriteError(w, http.StatusUnauthorized, "missing authorization token")
		return
	}

	if err := h.Service.SignOut(r.Context(), token); err != nil {
		h.Logger.Error("sign-out failed", "error", err)
		h.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.WriteJSON(w, http.StatusOK, SignOutResponse{RedirectTo: h.Rules.SignInPath()})
}

// Session returns the current identity; runs behind AuthMiddleware.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	id, ok := internal.IdentityFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "no active session")
		return
	}

	landing, _ := h.Rules.LandingPathFor(id.Role)
	h.WriteJSON(w, http.StatusOK, SessionResponse{
		ID:          id.ID,
		Username:    id.Username,
		Role:        id.Role.String(),
		RoleDetails: id.RoleDetails,
		LandingPath: landing,
	})
}

// AuthMiddleware resolves the bearer token into an identity, renews the
// session token and rejects anything invalid, expired or revoked as 401.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			h.WriteError(w, http.StatusUnauthorized, "missing authorization token")
			return
		}

		id, claims, err := h.Service.Resolve(r.Context(), token)
		if err != nil {
			h.Logger.Warn("session resolution failed", "error", err)
			h.WriteError(w, http.StatusUnauthorized, resolveMessage(err))
			return
		}

		if renewed, _, renewErr := h.Service.Renew(r.Context(), claims); renewErr == nil {
			w.Header().Set(RenewedTokenHeader, renewed)
		} else {
			h.Logger.Warn("session renewal failed", "error", renewErr, "session_id", claims.ID)
		}

		ctx := internal.ContextWithIdentity(r.Context(), id)
		ctx = logger.With(ctx, "user_id", id.ID, "role", id.Role.String())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalAuthMiddleware attaches an identity when a valid token is present
// and silently continues without one otherwise. The navigate endpoint uses
// it so an expired session yields a deny decision instead of an HTTP error.
func (h *Handler) OptionalAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		id, _, err := h.Service.Resolve(r.Context(), token)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		ctx := internal.ContextWithIdentity(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func resolveMessage(err error) string {
	switch err {
	case ErrTokenExpired:
		return "session expired"
	case ErrTokenRevoked:
		return "session revoked"
	default:
		return "invalid token"
	}
}
