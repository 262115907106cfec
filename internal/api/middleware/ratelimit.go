package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// visitorTTL is how long an idle client keeps its bucket in the store.
const visitorTTL = 10 * time.Minute

// RateLimit limits requests per client IP. rps is the sustained rate and
// burst the bucket size. The client IP is whatever e.IPExtractor yields.
func RateLimit(rps float64, burst int) echo.MiddlewareFunc {
	return echomiddleware.RateLimiterWithConfig(rateLimiterConfig(rps, burst))
}

func rateLimiterConfig(rps float64, burst int) echomiddleware.RateLimiterConfig {
	return echomiddleware.RateLimiterConfig{
		Store: echomiddleware.NewRateLimiterMemoryStoreWithConfig(echomiddleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(rps),
			Burst:     burst,
			ExpiresIn: visitorTTL,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
		},
	}
}
