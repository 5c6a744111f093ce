package report

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

// bearerAuth rejects /api requests without the expected bearer token. An
// empty token disables the check.
func bearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		want := []byte("Bearer " + token)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/api/") {
				got := []byte(r.Header.Get("Authorization"))
				if subtle.ConstantTimeCompare(got, want) != 1 {
					writeError(w, http.StatusUnauthorized, errors.New("unauthorized"))
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
