package httpapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/rendlabs/rend/internal/server/auth"
	"github.com/rendlabs/rend/internal/server/models"
	"github.com/rendlabs/rend/internal/shared"
)

const contextKeyUser = "authenticatedUser"

// Protect requires a valid Bearer session token and loads the authenticated
// user into the request context.
func (s *Server) Protect(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		if header == "" {
			return s.respondError(c, shared.ErrorUnauthorized)
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return s.respondError(c, shared.ErrorInvalidAuthheaderFormat)
		}

		userID, err := auth.GetUserIDFromToken(parts[1], []byte(s.config.SecretKey))
		if err != nil {
			return s.respondError(c, err)
		}

		user, err := s.auth.Me(c.Request().Context(), userID)
		if err != nil {
			return s.respondError(c, shared.ErrorUnauthorized)
		}

		c.Set(contextKeyUser, user)
		return next(c)
	}
}

// RestrictTo allows only users holding one of the given roles. Must run
// after Protect.
func (s *Server) RestrictTo(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := c.Get(contextKeyUser).(*models.User)
			if !ok {
				return s.respondError(c, shared.ErrorUnauthorized)
			}
			for _, role := range roles {
				if user.Role == role {
					return next(c)
				}
			}
			return c.JSON(403, map[string]any{"success": false, "message": "Access Denied"})
		}
	}
}
