package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/ebooks_storefront/internal/middleware/auth"
	"github.com/Skotchmaster/ebooks_storefront/internal/profile"
	"github.com/Skotchmaster/ebooks_storefront/pkg/logging"
)

type ProfileHTTP struct {
	Svc *profile.Service
}

func (h *ProfileHTTP) Orders(c echo.Context) error {
	ctx := c.Request().Context()
	orders, err := h.Svc.Orders(ctx, auth.Current(c).Token)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *ProfileHTTP) Reviews(c echo.Context) error {
	ctx := c.Request().Context()
	reviews, err := h.Svc.Reviews(ctx, auth.Current(c).Token)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, reviews)
}

// Stats answers zero counts when the remote fails, unless the token was refused.
func (h *ProfileHTTP) Stats(c echo.Context) error {
	ctx := c.Request().Context()
	st, err := h.Svc.Stats(ctx, auth.Current(c).Token)
	if err != nil && unauthorized(err) {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *ProfileHTTP) ChangePassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "profile_password")

	var req profile.PasswordChange
	if err := c.Bind(&req); err != nil {
		l.Warn("password_change_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if err := h.Svc.ChangePassword(ctx, auth.Current(c).Token, req); err != nil {
		return fail(c, err)
	}
	l.Info("password_changed")
	return c.JSON(http.StatusOK, echo.Map{"message": "Password changed successfully"})
}
