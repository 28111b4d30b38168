package http //nolint:revive // directory-based package name, imported with alias

import (
	"net/http"

	"github.com/Xausdorf/payout-hub/internal/delivery/auth"
)

// Authenticate verifies the bearer token and puts its uid on the request
// context.
func Authenticate(v *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			uid, err := v.VerifyHeader(r.Header.Get("Authorization"))
			if err != nil {
				writeError(w, http.StatusUnauthorized, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), uid)))
		})
	}
}
