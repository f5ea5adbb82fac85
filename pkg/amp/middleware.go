package amp

import "net/http"

// Middleware tags every request context with the detected Tag. Settings must
// already be compiled.
func Middleware(settings Settings) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tag := settings.DetectRequest(r)
			next.ServeHTTP(w, r.WithContext(WithTag(r.Context(), tag)))
		})
	}
}
