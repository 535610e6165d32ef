package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/ebooks_storefront/pkg/logging"
)

func RequireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess := Current(c)
		if sess == nil || !sess.Authenticated() {
			logging.FromContext(c.Request().Context()).Info("login_required", "status", 401)
			return echo.NewHTTPError(http.StatusUnauthorized, "Please sign in")
		}
		return next(c)
	}
}
