package middleware

import (
	"net/http"
	"path"
	"strings"
)

// Stage is one named middleware in a Chain, applied only to matching paths.
//
// Include and Exclude hold path patterns: "/prefix/**" matches the prefix and
// everything below it, patterns containing *, ? or [ use path.Match, anything
// else must match exactly. An empty Include matches every path. Exclude wins.
type Stage struct {
	Name       string
	Include    []string
	Exclude    []string
	Middleware func(http.Handler) http.Handler
}

// Applies reports whether the stage runs for urlPath.
func (s Stage) Applies(urlPath string) bool {
	if s.Middleware == nil {
		return false
	}
	for _, p := range s.Exclude {
		if MatchPath(p, urlPath) {
			return false
		}
	}
	if len(s.Include) == 0 {
		return true
	}
	for _, p := range s.Include {
		if MatchPath(p, urlPath) {
			return true
		}
	}
	return false
}

// GuardStage is the default session guard registration: every /api route
// except the authentication endpoints themselves.
func GuardStage(auth Authenticator) Stage {
	return Stage{
		Name:       "session-guard",
		Include:    []string{"/api/**"},
		Exclude:    []string{"/api/auth/**"},
		Middleware: Guard(auth),
	}
}

// Chain applies stages in registration order, outermost first.
type Chain struct {
	stages []Stage
}

func NewChain(stages ...Stage) *Chain {
	return &Chain{stages: append([]Stage(nil), stages...)}
}

// Use appends a stage and returns the chain.
func (c *Chain) Use(s Stage) *Chain {
	c.stages = append(c.stages, s)
	return c
}

// Stages returns the registered stage names in order.
func (c *Chain) Stages() []string {
	out := make([]string, 0, len(c.stages))
	for _, s := range c.stages {
		out = append(out, s.Name)
	}
	return out
}

// Then wraps final so that each stage runs only for the paths it matches.
func (c *Chain) Then(final http.Handler) http.Handler {
	h := final
	for i := len(c.stages) - 1; i >= 0; i-- {
		h = conditional(c.stages[i], h)
	}
	return h
}

// Handler adapts the chain to router middleware signatures such as chi's Use.
func (c *Chain) Handler(next http.Handler) http.Handler {
	return c.Then(next)
}

func conditional(s Stage, next http.Handler) http.Handler {
	if s.Middleware == nil {
		return next
	}
	wrapped := s.Middleware(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Applies(r.URL.Path) {
			wrapped.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// MatchPath matches urlPath against one Stage pattern.
func MatchPath(pattern, urlPath string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/**"); ok {
		return urlPath == prefix || strings.HasPrefix(urlPath, prefix+"/")
	}
	if strings.ContainsAny(pattern, "*?[") {
		ok, err := path.Match(pattern, urlPath)
		return err == nil && ok
	}
	return pattern == urlPath
}
