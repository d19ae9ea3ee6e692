package httpmiddleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// SessionCartCookie is the cookie carrying the anonymous cart token.
const SessionCartCookie = "sessionCartId"

// sessionCartKey is the context key for the session cart token.
type sessionCartKey struct{}

// SessionCartFromContext extracts the session cart token from the context.
// It returns an empty string when the middleware did not run.
func SessionCartFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(sessionCartKey{}).(string); ok {
		return id
	}
	return ""
}

// SessionCart returns a middleware that guarantees every request carries a
// session cart token. A missing or empty cookie gets a freshly generated
// UUID v4, set once per browser session (HttpOnly, no expiry). The token is
// stored in the request context for the cart handlers.
func SessionCart() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var token string
			if c, err := r.Cookie(SessionCartCookie); err == nil && c.Value != "" {
				token = c.Value
			} else {
				token = uuid.New().String()
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCartCookie,
					Value:    token,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := context.WithValue(r.Context(), sessionCartKey{}, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
