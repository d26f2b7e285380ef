package rest

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/frahmantamala/performance-management/internal"
)

// BackendProxy forwards dashboard API calls to the performance-management
// backend with the session's upstream bearer token attached. The gateway's
// own session token never crosses the wire; the backend sees only the
// credential it issued.
type BackendProxy struct {
	proxy  *httputil.ReverseProxy
	logger *slog.Logger
}

func NewBackendProxy(baseURL string, logger *slog.Logger) (*BackendProxy, error) {
	target, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend base URL: %w", err)
	}

	proxy := httputil.NewSingleHostReverseProxy(target)

	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("backend proxy request failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, `{"code": 502, "message": "Backend is unreachable, please try again"}`)
	}

	return &BackendProxy{
		proxy:  proxy,
		logger: logger,
	}, nil
}

// ServeHTTP swaps the gateway session token for the backend bearer token
// before forwarding. Requires the auth middleware to have resolved an
// identity.
func (p *BackendProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, ok := internal.IdentityFromContext(r.Context())
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"code": 401, "message": "No active session"}`)
		return
	}

	r.Header.Set("Authorization", "Bearer "+id.Token)
	p.proxy.ServeHTTP(w, r)
}
