package chi

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	domuser "github.com/kailas-cloud/studybot/internal/domain/user"
	"github.com/kailas-cloud/studybot/internal/logger"
)

// exemptPaths are routes that bypass authentication.
var exemptPaths = map[string]struct{}{
	"/health":      {},
	"/metrics":     {},
	"/auth/signup": {},
	"/auth/login":  {},
	"/auth/logout": {},
}

type principalKey struct{}

// ContextWithPrincipal stores the authenticated caller in ctx.
func ContextWithPrincipal(ctx context.Context, p domuser.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the authenticated caller, if any.
func PrincipalFromContext(ctx context.Context) (domuser.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(domuser.Principal)
	return p, ok
}

// callerFrom returns the request principal. Behind AuthMiddleware it is always set;
// the zero value carries no role and is rejected by every use case.
func callerFrom(r *http.Request) domuser.Principal {
	p, _ := PrincipalFromContext(r.Context())
	return p
}

// AuthMiddleware resolves the Bearer token (or the auth cookie) to a principal.
// Preflight requests and exempt paths pass through untouched.
func AuthMiddleware(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			credential, ok := credentialFrom(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "missing authorization header")
				return
			}

			p, err := authn.Authenticate(credential)
			if err != nil {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "invalid or expired token")
				return
			}

			ctx := ContextWithPrincipal(r.Context(), p)
			ctx = logger.With(ctx, zap.String("user_id", p.ID), zap.String("role", string(p.Role)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects callers whose role differs from role.
func RequireRole(role domuser.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "authentication required")
				return
			}
			if p.Role != role {
				writeError(w, http.StatusForbidden, CodeForbidden, "requires role "+string(role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func credentialFrom(r *http.Request) (string, bool) {
	const bearerPrefix = "Bearer "
	if h := r.Header.Get("Authorization"); h != "" {
		if !strings.HasPrefix(h, bearerPrefix) {
			return "", false
		}
		token := strings.TrimSpace(h[len(bearerPrefix):])
		return token, token != ""
	}
	if c, err := r.Cookie(AuthCookie); err == nil && c.Value != "" {
		return c.Value, true
	}
	return "", false
}
