// Package httpscope binds a fresh fragcache.Scope to every HTTP request and
// clears it when the handler returns. The middleware has the standard
// func(http.Handler) http.Handler shape, so it plugs into chi or any other
// router.
package httpscope

import (
	"net/http"

	"github.com/unkn0wn-root/fragcache"
)

// Middleware binds a new Scope[D] to each request context. The scope is
// cleared after the handler returns, including when it panics.
func Middleware[D any]() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := fragcache.NewScope[D]()
			defer s.Clear()
			next.ServeHTTP(w, r.WithContext(fragcache.WithScope(r.Context(), s)))
		})
	}
}
