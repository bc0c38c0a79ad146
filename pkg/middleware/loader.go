package middleware

import (
	"net/http"

	"github.com/platinummonkey/huddle/pkg/loader"
)

// LoaderScope gives every request its own loader scope and closes it when
// the handler returns
func LoaderScope(opts loader.Options) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scope := loader.NewScope(opts)
			defer scope.Close()
			next.ServeHTTP(w, r.WithContext(loader.Attach(r.Context(), scope)))
		})
	}
}
