// middleware/options.go
package middleware

import "net/http"

// AnswerOptions ends every OPTIONS request with an empty 200. CORS
// preflights are answered before this by CORSFromConfig; this catches the
// OPTIONS requests it lets through (no Origin or no
// Access-Control-Request-Method) and the case where CORS is disabled.
func AnswerOptions(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
