package guard

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/frahmantamala/performance-management/internal"
	"github.com/frahmantamala/performance-management/internal/core/events"
	"github.com/frahmantamala/performance-management/internal/identity"
)

// Middleware gates a protected route namespace with the ruleset. It expects
// the auth middleware to have run first; a request without an identity in
// context is denied. The path is evaluated in UI route space, so the API
// mount prefix is stripped before matching.
func Middleware(rules *Ruleset, mountPrefix string, bus *events.EventBus, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			routePath := strings.TrimPrefix(r.URL.Path, mountPrefix)

			id, _ := internal.IdentityFromContext(r.Context())
			decision := rules.Authorize(routePath, id)

			switch decision.Kind {
			case DecisionAllow:
				next.ServeHTTP(w, r)
			case DecisionRedirect:
				logger.Warn("navigation redirected",
					"path", routePath,
					"user_id", userID(id),
					"redirect_to", decision.RedirectPath)
				writeDecision(w, http.StatusForbidden, decision, logger)
			default:
				logger.Warn("navigation denied", "path", routePath, "user_id", userID(id))
				if bus != nil {
					bus.Publish(r.Context(), events.NewSessionEvent(events.EventNavigationDenied, map[string]interface{}{
						"path":    routePath,
						"user_id": userID(id),
					}))
				}
				writeDecision(w, http.StatusUnauthorized, decision, logger)
			}
		})
	}
}

func writeDecision(w http.ResponseWriter, status int, decision Decision, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(decision); err != nil {
		logger.Error("failed to encode guard decision", "error", err)
	}
}

func userID(id *identity.Identity) string {
	if id == nil {
		return ""
	}
	return id.ID
}
