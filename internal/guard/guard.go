package guard

import (
	"strings"

	"github.com/frahmantamala/performance-management/internal/identity"
)

// DecisionKind is the tag of the guard's tagged-variant result. Every
// protected view consults the guard instead of branching on role strings.
type DecisionKind string

const (
	DecisionAllow    DecisionKind = "allow"
	DecisionRedirect DecisionKind = "redirect"
	DecisionDeny     DecisionKind = "deny"
)

// Decision is the guard's answer for a requested path. RedirectPath is where
// the client should go for Redirect and Deny outcomes.
type Decision struct {
	Kind         DecisionKind `json:"decision"`
	RedirectPath string       `json:"redirect_to,omitempty"`
}

func Allow() Decision {
	return Decision{Kind: DecisionAllow}
}

func RedirectTo(path string) Decision {
	return Decision{Kind: DecisionRedirect, RedirectPath: path}
}

func Deny(redirectPath string) Decision {
	return Decision{Kind: DecisionDeny, RedirectPath: redirectPath}
}

// RouteRule maps a role to its landing page and the route namespace it may
// enter. Exactly one rule per role.
type RouteRule struct {
	Role          identity.Role
	LandingPath   string
	AllowedPrefix string
}

// Ruleset is static route-access configuration: loaded once, immutable at
// runtime.
type Ruleset struct {
	rules          map[identity.Role]RouteRule
	sharedPrefixes []string
	signInPath     string
}

// DefaultRuleset wires the three dashboards plus the shared profile pages.
func DefaultRuleset() *Ruleset {
	return NewRuleset(
		[]RouteRule{
			{Role: identity.RoleEmployee, LandingPath: "/employee", AllowedPrefix: "/employee"},
			{Role: identity.RoleManager, LandingPath: "/manager", AllowedPrefix: "/manager"},
			{Role: identity.RoleHR, LandingPath: "/hr", AllowedPrefix: "/hr"},
		},
		[]string{"/profile"},
		"/login",
	)
}

func NewRuleset(rules []RouteRule, sharedPrefixes []string, signInPath string) *Ruleset {
	indexed := make(map[identity.Role]RouteRule, len(rules))
	for _, rule := range rules {
		indexed[rule.Role] = rule
	}
	return &Ruleset{
		rules:          indexed,
		sharedPrefixes: sharedPrefixes,
		signInPath:     signInPath,
	}
}

// SignInPath is where unauthenticated requests get sent.
func (rs *Ruleset) SignInPath() string {
	return rs.signInPath
}

// Rules returns the configured rules for display and diagnostics.
func (rs *Ruleset) Rules() []RouteRule {
	out := make([]RouteRule, 0, len(rs.rules))
	for _, role := range []identity.Role{identity.RoleEmployee, identity.RoleManager, identity.RoleHR} {
		if rule, ok := rs.rules[role]; ok {
			out = append(out, rule)
		}
	}
	return out
}

// SharedPrefixes lists the namespaces open to every authenticated role.
func (rs *Ruleset) SharedPrefixes() []string {
	out := make([]string, len(rs.sharedPrefixes))
	copy(out, rs.sharedPrefixes)
	return out
}

// LandingPathFor returns the canonical post-login route for a role. Unknown
// roles get no landing path; callers must deny rather than fall back to the
// employee dashboard.
func (rs *Ruleset) LandingPathFor(role identity.Role) (string, bool) {
	rule, ok := rs.rules[role]
	if !ok {
		return "", false
	}
	return rule.LandingPath, true
}

// Authorize decides whether the identity may load the requested path.
//
//   - no identity: deny, redirect to sign-in, for any path
//   - unrecognized role: deny, never silently treated as employee
//   - shared prefixes (profile pages): allowed for any authenticated role
//   - path outside the role's namespace: redirect to the role's landing page
func (rs *Ruleset) Authorize(requestedPath string, id *identity.Identity) Decision {
	if id == nil {
		return Deny(rs.signInPath)
	}

	rule, ok := rs.rules[id.Role]
	if !ok {
		return Deny(rs.signInPath)
	}

	for _, shared := range rs.sharedPrefixes {
		if pathWithinPrefix(requestedPath, shared) {
			return Allow()
		}
	}

	if pathWithinPrefix(requestedPath, rule.AllowedPrefix) {
		return Allow()
	}

	return RedirectTo(rule.LandingPath)
}

// pathWithinPrefix matches "/hr" and "/hr/team" but not "/hrx".
func pathWithinPrefix(path, prefix string) bool {
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+"/")
}
