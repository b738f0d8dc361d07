package middleware

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/dealscale/redirect-engine/internal/service"
	"github.com/dealscale/redirect-engine/internal/utils"
)

// DefaultSkipPrefixes lists paths the resolver never touches: API routes,
// static assets, health checks, and the link-tree listing page itself.
var DefaultSkipPrefixes = []string{
	"/api/",
	"/linktree",
	"/favicon",
	"/assets/",
	"/static/",
	"/healthz",
}

var staticExtRe = regexp.MustCompile(`(?i)\.(?:js|css|png|jpg|jpeg|gif|svg|webp|ico|json|txt)$`)

// SlugRedirect resolves top-level slug paths to attributed redirects.
// Anything on the allow-list, and any slug that does not resolve, passes
// through to the next handler. Resolution failures fail open: a broken
// record must not take down the page behind it.
func SlugRedirect(resolver *service.ResolverService, skipPrefixes []string) func(http.Handler) http.Handler {
	if skipPrefixes == nil {
		skipPrefixes = DefaultSkipPrefixes
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			for _, prefix := range skipPrefixes {
				if strings.HasPrefix(path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}
			if staticExtRe.MatchString(path) {
				next.ServeHTTP(w, r)
				return
			}

			slug := strings.ToLower(strings.SplitN(strings.TrimPrefix(path, "/"), "/", 2)[0])
			if slug == "" {
				next.ServeHTTP(w, r)
				return
			}

			referer := r.Header.Get("Referer")
			location, err := resolver.BuildSlugRedirect(
				r.Context(), slug, r.URL.Query(), referer, utils.GetClientIP(r),
			)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-Redirect-Source", service.RedirectSourceFromReferer(referer))
			http.Redirect(w, r, location, http.StatusTemporaryRedirect)
		})
	}
}
