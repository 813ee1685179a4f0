// Package middleware adapts HTTP requests to engine token validation. The
// guard reads the Authorization header, calls Engine.ValidateAccess, and
// injects the validated identity into the request context. It makes no
// authentication decisions of its own.
package middleware

import (
	"net/http"
	"strings"

	authcore "github.com/lumenadmin/authcore"
)

// RequirePermission wraps Guard and additionally rejects identities that
// lack the given permission code with 403.
func RequirePermission(engine *authcore.Engine, code string) func(http.Handler) http.Handler {
	guard := Guard(engine)
	return func(next http.Handler) http.Handler {
		return guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := authcore.IdentityFromContext(r.Context())
			if !ok || !hasPermission(id.Permissions, code) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

// Guard returns middleware that authenticates every request through the
// engine. Requests without a valid bearer access token get 401.
func Guard(engine *authcore.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			id, err := engine.ValidateAccess(r.Context(), token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(authcore.WithIdentity(r.Context(), *id)))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}

func hasPermission(perms []string, code string) bool {
	for _, p := range perms {
		if p == code {
			return true
		}
	}
	return false
}
