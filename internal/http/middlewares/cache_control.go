package middlewares

import "net/http"

// WithCacheControl fija Cache-Control en todas las respuestas.
// Material de claves: "no-store" para que ningún proxy sirva PEM de otra rotación.
func WithCacheControl(directive string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", directive)
			next.ServeHTTP(w, r)
		})
	}
}
