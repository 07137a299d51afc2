// middleware/sizelimit.go
package middleware

import (
	"net/http"

	"github.com/dalemusser/sorpasso/httputil"
)

// LimitBodySize caps request bodies at maxBytes. maxBytes <= 0 disables it.
// Requests that declare a larger Content-Length are rejected with 413 before
// reaching the handler; others are wrapped in http.MaxBytesReader.
func LimitBodySize(maxBytes int64) func(next http.Handler) http.Handler {
	if maxBytes <= 0 {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				httputil.JSONError(w, http.StatusRequestEntityTooLarge,
					"payload_too_large", "request body too large")
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
