package guard

import (
	"net/http"

	"github.com/frahmantamala/performance-management/internal"
	"github.com/frahmantamala/performance-management/internal/transport"
)

// Handler answers navigation-guard queries for the UI router. The UI asks
// before rendering a protected view; the answer is the same tagged decision
// the proxy middleware enforces, so there is exactly one gate.
type Handler struct {
	*transport.BaseHandler
	Rules *Ruleset
}

func NewHandler(rules *Ruleset, base *transport.BaseHandler) *Handler {
	return &Handler{
		BaseHandler: base,
		Rules:       rules,
	}
}

type navigateResponse struct {
	Decision
	LandingPath string `json:"landing_path,omitempty"`
}

// Navigate evaluates GET /navigate?path=... against the current session.
// Runs behind the optional-auth middleware: an absent or dead session is a
// deny decision, not an HTTP error.
func (h *Handler) Navigate(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		h.WriteError(w, http.StatusBadRequest, "path query parameter is required")
		return
	}

	id, _ := internal.IdentityFromContext(r.Context())
	decision := h.Rules.Authorize(path, id)

	resp := navigateResponse{Decision: decision}
	if id != nil {
		if landing, ok := h.Rules.LandingPathFor(id.Role); ok {
			resp.LandingPath = landing
		}
	}

	h.WriteJSON(w, http.StatusOK, resp)
}
