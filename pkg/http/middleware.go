// Package httpx pkg/http/middleware.go holds cross-cutting HTTP middleware
// shared by the REST/SSE surface in pkg/api.
package httpx

import (
	"net/http"
)

// CommonMiddleware sets the CORS headers the dashboard client needs to call
// the API from a different origin, then short-circuits preflight requests.
func CommonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
