package middleware

import "github.com/labstack/echo/v4"

// Actor returns the authenticated subject stored by JWTAuth, or "" when the
// request is anonymous.
func Actor(c echo.Context) string {
	s, _ := c.Get(ctxActor).(string)
	return s
}

// Role returns the authenticated role stored by JWTAuth, or "".
func Role(c echo.Context) string {
	s, _ := c.Get(ctxRole).(string)
	return s
}

// subject identifies the caller for rate-limit and log keys.
func subject(c echo.Context) string {
	if a := Actor(c); a != "" {
		return a
	}
	return "anon"
}
