package guard

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/frahmantamala/performance-management/internal"
	"github.com/frahmantamala/performance-management/internal/identity"
	"github.com/frahmantamala/performance-management/internal/transport"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var _ = ginkgo.Describe("Handler", func() {
	var handler *Handler

	navigate := func(path string, id *identity.Identity) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/navigate?path="+path, nil)
		if id != nil {
			req = req.WithContext(internal.ContextWithIdentity(req.Context(), id))
		}
		rec := httptest.NewRecorder()
		handler.Navigate(rec, req)
		return rec
	}

	decode := func(rec *httptest.ResponseRecorder) navigateResponse {
		var resp navigateResponse
		gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(gomega.Succeed())
		return resp
	}

	ginkgo.BeforeEach(func() {
		handler = NewHandler(DefaultRuleset(), transport.NewBaseHandler(discardLogger()))
	})

	ginkgo.Describe("Navigate", func() {
		ginkgo.It("should require the path parameter", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/navigate", nil)
			rec := httptest.NewRecorder()

			handler.Navigate(rec, req)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
		})

		ginkgo.It("should deny without a session", func() {
			rec := navigate("/hr", nil)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			resp := decode(rec)
			gomega.Expect(resp.Kind).To(gomega.Equal(DecisionDeny))
			gomega.Expect(resp.RedirectPath).To(gomega.Equal("/login"))
		})

		ginkgo.It("should allow a role inside its own namespace", func() {
			rec := navigate("/hr/reviews", &identity.Identity{ID: "u-1", Role: identity.RoleHR})

			resp := decode(rec)
			gomega.Expect(resp.Kind).To(gomega.Equal(DecisionAllow))
			gomega.Expect(resp.LandingPath).To(gomega.Equal("/hr"))
		})

		ginkgo.It("should redirect a role outside its namespace to its landing page", func() {
			rec := navigate("/hr", &identity.Identity{ID: "u-1", Role: identity.RoleEmployee})

			resp := decode(rec)
			gomega.Expect(resp.Kind).To(gomega.Equal(DecisionRedirect))
			gomega.Expect(resp.RedirectPath).To(gomega.Equal("/employee"))
		})
	})
})

var _ = ginkgo.Describe("Middleware", func() {
	var (
		rules *Ruleset
		next  http.Handler
	)

	serve := func(path string, id *identity.Identity) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if id != nil {
			req = req.WithContext(internal.ContextWithIdentity(req.Context(), id))
		}
		rec := httptest.NewRecorder()
		Middleware(rules, "/api/v1", nil, discardLogger())(next).ServeHTTP(rec, req)
		return rec
	}

	ginkgo.BeforeEach(func() {
		rules = DefaultRuleset()
		next = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("reached"))
		})
	})

	ginkgo.It("should pass an allowed request through", func() {
		rec := serve("/api/v1/manager/team", &identity.Identity{ID: "u-1", Role: identity.RoleManager})

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(rec.Body.String()).To(gomega.Equal("reached"))
	})

	ginkgo.It("should answer a cross-namespace request with the redirect decision", func() {
		rec := serve("/api/v1/hr", &identity.Identity{ID: "u-1", Role: identity.RoleManager})

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusForbidden))

		var decision Decision
		gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &decision)).To(gomega.Succeed())
		gomega.Expect(decision.Kind).To(gomega.Equal(DecisionRedirect))
		gomega.Expect(decision.RedirectPath).To(gomega.Equal("/manager"))
	})

	ginkgo.It("should deny a request without an identity", func() {
		rec := serve("/api/v1/hr", nil)

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))

		var decision Decision
		gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &decision)).To(gomega.Succeed())
		gomega.Expect(decision.Kind).To(gomega.Equal(DecisionDeny))
	})
})
