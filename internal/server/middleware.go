package server

import (
	"net/http"

	"github.com/google/uuid"
)

// requestID tags every response with a unique id so log lines from a
// single request can be correlated by clients and reverse proxies.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}
