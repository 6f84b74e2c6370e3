package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

const roleAdmin = "admin"

type AdminMiddleware struct{}

func NewAdminMiddleware() *AdminMiddleware {
	return &AdminMiddleware{}
}

// AdminOnly must run after Authenticate. The role comes from the token's
// custom claim.
func (m *AdminMiddleware) AdminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := c.Get(ContextUserID).(string); !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
		}

		if role, _ := c.Get(ContextRole).(string); role != roleAdmin {
			return echo.NewHTTPError(http.StatusForbidden, "Admin privileges required")
		}

		return next(c)
	}
}
