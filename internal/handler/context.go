package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/aya-berrouan/glowora/internal/domain"
)

const userContextKey = "auth.user"

// SetUser stores the authenticated user on the request context.
func SetUser(c echo.Context, user *domain.User) {
	c.Set(userContextKey, user)
}

// CurrentUser returns the authenticated user, or nil when the request was
// not authenticated.
func CurrentUser(c echo.Context) *domain.User {
	user, _ := c.Get(userContextKey).(*domain.User)
	return user
}
