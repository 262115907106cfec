package handler

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/carmarket/car-marketplace/internal/core/domain"
)

// UserIDKey is the echo context key the Auth middleware stores the caller under.
const UserIDKey = "user_id"

type userIDCtxKey struct{}

// WithUserID returns a copy of ctx carrying the authenticated user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDCtxKey{}, userID)
}

// UserIDFromContext returns the authenticated user id, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDCtxKey{}).(string)
	return id, ok && id != ""
}

// ctxUserID fails fast when a protected handler is reached without the
// Auth middleware having run.
func ctxUserID(c echo.Context) (string, error) {
	if id, _ := c.Get(UserIDKey).(string); id != "" {
		return id, nil
	}
	if id, ok := UserIDFromContext(c.Request().Context()); ok {
		return id, nil
	}
	return "", domain.ErrUnauthenticated
}
