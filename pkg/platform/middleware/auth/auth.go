// Package auth admits requests that carry a wallet session token.
package auth

import (
	"log/slog"
	"net/http"
	"strings"

	id "tipjar/pkg/domain"
	dErrors "tipjar/pkg/domain-errors"
	"tipjar/pkg/platform/httputil"
	"tipjar/pkg/requestcontext"
)

// JWTValidator verifies a raw bearer token.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims is the part of a session token the middleware needs.
type JWTClaims struct {
	Subject string // checksummed caller address
	JTI     string
}

// RequireAuth admits requests carrying a valid bearer token and attaches the
// token subject as the caller identity. Everything else gets a 401.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			reject := func(reason, description string, err error) {
				logger.WarnContext(ctx, "unauthorized access",
					"reason", reason,
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				w.Header().Set("WWW-Authenticate", `Bearer realm="tipjar"`)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, description))
			}

			token, ok := bearerToken(r)
			if !ok {
				reject("missing token", "missing or invalid Authorization header", nil)
				return
			}
			claims, err := validator.ValidateToken(token)
			if err != nil {
				reject("invalid token", "invalid or expired token", err)
				return
			}
			caller, err := id.ParseIdentity(claims.Subject)
			if err != nil {
				reject("subject is not an address", "invalid or expired token", err)
				return
			}
			next.ServeHTTP(w, r.WithContext(requestcontext.WithCaller(ctx, caller)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
