package progress

import (
	"github.com/labstack/echo/v4"

	"github.com/casecracker/casecracker/internal/apperror"
)

// usernameHeader carries the caller's identity. It is trusted as-is: the
// server has no session tokens, so presenting a username IS authentication
// here. A documented capability boundary, not an oversight -- see the design
// notes before "fixing" this.
const usernameHeader = "X-Username"

// usernameQueryParam is the fallback identity carrier for navigator.sendBeacon
// submissions, which cannot set custom headers.
const usernameQueryParam = "user"

// usernameContextKey is the Echo context key for the resolved username.
const usernameContextKey = "username"

// GetUsername retrieves the caller's username from the request context.
// Only meaningful on routes behind RequireUsername.
func GetUsername(c echo.Context) string {
	username, _ := c.Get(usernameContextKey).(string)
	return username
}

// RequireUsername returns middleware that resolves the caller's identity
// from the X-Username header and rejects the request with 401 when absent.
// With allowQueryParam set, the "user" query parameter is accepted as a
// fallback (the save-session endpoint supports fire-and-forget beacons).
func RequireUsername(allowQueryParam bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			username := c.Request().Header.Get(usernameHeader)
			if username == "" && allowQueryParam {
				username = c.QueryParam(usernameQueryParam)
			}
			if username == "" {
				return apperror.NewUnauthorized("Not authenticated")
			}

			c.Set(usernameContextKey, username)
			return next(c)
		}
	}
}
