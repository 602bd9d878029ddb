package echoapi

import (
	"crypto/subtle"
	"strings"

	"github.com/labstack/echo/v4"
)

// adminMiddleware requires an ADMIN viewer. Must run after viewerMiddleware.
func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if getViewer(ctx).IsAdmin() {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// apiKeyMiddleware authenticates integrations with "Authorization: Bearer <key>".
// An empty key disables the endpoints.
func apiKeyMiddleware(key string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			auth := ctx.Request().Header.Get(echo.HeaderAuthorization)
			given := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if key == "" || given == "" || subtle.ConstantTimeCompare([]byte(given), []byte(key)) != 1 {
				return errInvalidAPIKey
			}
			return next(ctx)
		}
	}
}
