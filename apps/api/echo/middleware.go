package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/mrembo/urembo/core"
	"github.com/mrembo/urembo/storage/cache"
)

func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// blacklistMiddleware rejects tokens revoked by logout. It must run after
// the JWT middleware.
func blacklistMiddleware(blacklist cache.TokenBlacklist) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			revoked, err := blacklist.Contains(ctx.Request().Context(), claims.Id)
			if err != nil {
				return errors.Wrap(err, "checking token blacklist")
			}
			if revoked {
				return errUnauthorized
			}
			return next(ctx)
		}
	}
}

// chatRateLimiter throttles chat completions per user (per IP when the
// claims are missing, which the JWT middleware prevents anyway).
func chatRateLimiter() echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStore(rate.Limit(core.Conf.AI.RateLimit)),
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			if claims, err := getContextClaims(ctx); err == nil {
				return claims.Subject, nil
			}
			return ctx.RealIP(), nil
		},
		DenyHandler: func(ctx echo.Context, identifier string, err error) error {
			return errTooManyRequests
		},
	})
}
