package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Role names used across route registration.
const (
	RoleAdmin   = "admin"
	RoleDoctor  = "doctor"
	RolePatient = "patient"
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

// PatientScoped reports whether a token is restricted to a single patient's
// data: it carries the patient role and neither doctor nor admin. Such tokens
// must always be matched against their patient_id claim; an empty claim
// grants nothing.
func PatientScoped(roles []string) bool {
	if !hasRole(roles, RolePatient) {
		return false
	}
	return !hasRole(roles, RoleAdmin) && !hasRole(roles, RoleDoctor)
}

// RequireOwnPatient returns middleware that restricts patient-role tokens to
// their own patient resource. The patient ID is read from the route parameter
// named by param. Doctor and admin tokens are not restricted.
func RequireOwnPatient(param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			if !PatientScoped(RolesFromContext(ctx)) {
				return next(c)
			}
			own := PatientIDFromContext(ctx)
			if own == "" || c.Param(param) != own {
				return echo.NewHTTPError(http.StatusForbidden, "patients may only access their own records")
			}
			return next(c)
		}
	}
}

func hasRole(roles []string, want string) bool {
	for _, r := range roles {
		if r == want {
			return true
		}
	}
	return false
}
