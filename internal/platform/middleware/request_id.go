package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// requestID reads the id set by RequestID, blank when the middleware is not
// installed.
func requestID(c echo.Context) string {
	rid, _ := c.Get("request_id").(string)
	return rid
}

// RequestID tags every request with an id, honoring one supplied by the
// caller in X-Request-ID.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Request().Header.Get("X-Request-ID")
			if rid == "" {
				rid = uuid.NewString()
			}
			c.Set("request_id", rid)
			c.Response().Header().Set("X-Request-ID", rid)
			return next(c)
		}
	}
}
