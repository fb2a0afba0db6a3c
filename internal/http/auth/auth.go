// Package auth carries approver identity. Every workflow action must be
// attributable to a specific approver, so action routes reject requests
// without a valid bearer token.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey struct{}

// ApproverID returns the authenticated approver for the request, or "" when
// the middleware did not run.
func ApproverID(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}

// WithApprover is the test hook for handlers that read ApproverID.
func WithApprover(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// Middleware validates the Authorization bearer token and stores the
// subject claim as the approver id. An empty secret disables verification
// for local development; the subject is then taken from X-Approver-ID.
func Middleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				if id := r.Header.Get("X-Approver-ID"); id != "" {
					r = r.WithContext(WithApprover(r.Context(), id))
				}

				next.ServeHTTP(w, r)

				return
			}

			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			claims := jwt.RegisteredClaims{}

			_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
				}

				return []byte(secret), nil
			})
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			if claims.Subject == "" {
				http.Error(w, "token has no subject", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithApprover(r.Context(), claims.Subject)))
		})
	}
}
