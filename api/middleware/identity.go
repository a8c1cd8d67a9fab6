package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// AnonymousIDHeader carries the guest session identifier in both directions.
const AnonymousIDHeader = "X-Anonymous-Id"

// Identity resolves the caller. A bearer token, when present, must be valid;
// requests without one continue as guests.
func Identity(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if raw := strings.TrimSpace(r.Header.Get("Authorization")); raw != "" {
				token := raw
				if strings.HasPrefix(strings.ToLower(token), "bearer ") {
					token = strings.TrimSpace(token[7:])
				}
				if token == "" {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
					return
				}

				claims, err := pkgAuth.ParseAccessToken(cfg, token)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
					return
				}

				ctx = WithUserID(ctx, claims.UserID.String())
				if logg != nil {
					ctx = logg.WithUserID(ctx, claims.UserID.String())
				}
			}

			if anonymousID := strings.TrimSpace(r.Header.Get(AnonymousIDHeader)); anonymousID != "" {
				ctx = WithAnonymousID(ctx, anonymousID)
				if logg != nil {
					ctx = logg.WithAnonymousID(ctx, anonymousID)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser rejects guests.
func RequireUser(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if UserUUIDFromContext(r.Context()) == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP records the caller address for audit stamping. It expects
// chi's RealIP to have rewritten RemoteAddr from forwarding headers.
func ClientIP() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := r.RemoteAddr
			if host, _, err := net.SplitHostPort(ip); err == nil {
				ip = host
			}
			next.ServeHTTP(w, r.WithContext(WithClientIP(r.Context(), ip)))
		})
	}
}
