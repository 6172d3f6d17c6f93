package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Role vocabulary. Stored on user profiles and carried in token claims.
const (
	RolePatient    = "patient"
	RolePhysician  = "physician"
	RolePharmacist = "pharmacist"
	RoleAdmin      = "admin"
)

// RequireRole returns middleware that checks if the user has at least one of
// the specified roles. Admins pass every check.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userRoles := RolesFromContext(c.Request().Context())
			for _, required := range roles {
				for _, has := range userRoles {
					if has == required || has == RoleAdmin {
						return next(c)
					}
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}
