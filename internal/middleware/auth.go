package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/aya-berrouan/glowora/internal/domain"
	"github.com/aya-berrouan/glowora/internal/handler"
)

// Auth resolves bearer session tokens to users.
type Auth struct {
	users  domain.UserStore
	logger zerolog.Logger
}

func NewAuth(users domain.UserStore, logger zerolog.Logger) *Auth {
	return &Auth{
		users:  users,
		logger: logger.With().Str("component", "auth").Logger(),
	}
}

// RequireUser rejects requests without a valid session token and stores the
// resolved user on the request context.
func (a *Auth) RequireUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := bearerToken(c)
			if token == "" {
				return handler.RespondError(c, a.logger,
					domain.Unauthorized("auth.require_user", "Authentication required"))
			}

			user, err := a.users.GetUserBySessionToken(c.Request().Context(), token)
			if err != nil {
				if domain.ErrorCode(err) == domain.ENOTFOUND {
					return handler.RespondError(c, a.logger,
						domain.Unauthorized("auth.require_user", "Invalid or expired session"))
				}
				return handler.RespondError(c, a.logger, err)
			}

			handler.SetUser(c, user)
			return next(c)
		}
	}
}

// RequireAdmin rejects non-admin users. Must run after RequireUser.
func (a *Auth) RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !handler.CurrentUser(c).IsAdmin() {
				return handler.RespondError(c, a.logger,
					domain.Forbidden("auth.require_admin", "Admin access required"))
			}
			return next(c)
		}
	}
}

func bearerToken(c echo.Context) string {
	auth := c.Request().Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}
