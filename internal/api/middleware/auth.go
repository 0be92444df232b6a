package middleware

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/raptiye/blog-api/internal/api/metrics"
	"github.com/raptiye/blog-api/internal/core/domain"
	"github.com/raptiye/blog-api/internal/core/ports"
	"github.com/raptiye/blog-api/internal/core/token"
)

const principalKey = "auth.principal"

// PrincipalFrom returns the authenticated principal attached by Authenticate,
// or false when the request carries no verified identity.
func PrincipalFrom(c echo.Context) (*domain.Principal, bool) {
	p, ok := c.Get(principalKey).(*domain.Principal)
	return p, ok && p != nil
}

// Authenticate verifies a bearer token and attaches the caller's principal to
// the request context. It never rejects the request itself: on any failure
// (missing header, wrong scheme, bad token, unknown or disabled subject) the
// request proceeds unauthenticated and downstream authorization decides.
//
// The token's embedded role is only a hint; the identity is re-resolved
// against the credential store on every request, bounded by storeTimeout.
func Authenticate(codec ports.TokenCodec, resolver ports.IdentityResolver, storeTimeout time.Duration, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return next(c)
			}

			claims, err := codec.Verify(raw, time.Now().UTC())
			if err != nil {
				metrics.TokenVerificationsTotal.WithLabelValues(verifyResult(err)).Inc()
				log.Debug().Err(err).Msg("bearer token rejected")
				return next(c)
			}

			ctx := c.Request().Context()
			if storeTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, storeTimeout)
				defer cancel()
			}

			identity, err := resolver.Resolve(ctx, claims.Subject)
			if err != nil {
				// A valid signature over a subject the store no longer
				// knows: the token is treated as invalid.
				metrics.TokenVerificationsTotal.WithLabelValues("unknown_subject").Inc()
				log.Debug().Err(err).Str("subject", claims.Subject).Msg("token subject did not resolve")
				return next(c)
			}
			if !identity.Enabled {
				log.Debug().Str("subject", identity.Username).Msg("token subject disabled")
				return next(c)
			}

			metrics.TokenVerificationsTotal.WithLabelValues("ok").Inc()
			c.Set(principalKey, &domain.Principal{
				Username: identity.Username,
				Role:     identity.Role,
			})
			return next(c)
		}
	}
}

// bearerToken extracts the raw token from an Authorization header value.
// Absence or any other scheme means "no credentials supplied".
func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	raw := strings.TrimSpace(parts[1])
	return raw, raw != ""
}

func verifyResult(err error) string {
	switch {
	case errors.Is(err, token.ErrExpired):
		return "expired"
	case errors.Is(err, token.ErrSignatureInvalid):
		return "invalid_signature"
	default:
		return "malformed"
	}
}
