package middleware

import (
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/carmarket/car-marketplace/internal/api/handler"
	"github.com/carmarket/car-marketplace/internal/core/domain"
	"github.com/carmarket/car-marketplace/internal/core/ports"
)

// Auth validates the bearer token and injects the caller's user id into both
// the echo context and the request context.
func Auth(verifier ports.TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return domain.ErrUnauthenticated
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			token = strings.TrimSpace(token)
			if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
				return fmt.Errorf("%w: malformed authorization header", domain.ErrInvalidToken)
			}

			userID, err := verifier.Verify(token)
			if err != nil {
				return err
			}

			c.Set(handler.UserIDKey, userID)
			req := c.Request()
			c.SetRequest(req.WithContext(handler.WithUserID(req.Context(), userID)))

			return next(c)
		}
	}
}
