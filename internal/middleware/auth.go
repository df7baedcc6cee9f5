package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/shiftwatch/shiftwatch/internal/auth"
	"github.com/shiftwatch/shiftwatch/internal/store"
)

// RequireAuth validates the bearer token against the session registry and
// populates AuthContext. The registry row is authoritative: a revoked or
// expired session is rejected even if the token itself still verifies.
func RequireAuth(sessionStore *store.SessionStore, employeeStore *store.EmployeeStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			sess, err := sessionStore.Authenticate(token, time.Now())
			if err != nil || sess == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			emp, err := employeeStore.GetByID(sess.EmployeeID)
			if err != nil || emp == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ac := auth.AuthContext{
				EmployeeID: emp.ID,
				Role:       emp.Role,
				SessionID:  sess.ID,
				Token:      sess.Token,
			}

			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin checks that the authenticated employee has the admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsAdmin(r.Context()) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}
