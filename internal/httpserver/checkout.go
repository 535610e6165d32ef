package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/ebooks_storefront/internal/apiclient"
	"github.com/Skotchmaster/ebooks_storefront/internal/checkout"
	"github.com/Skotchmaster/ebooks_storefront/internal/middleware/auth"
	"github.com/Skotchmaster/ebooks_storefront/pkg/logging"
)

type CheckoutHTTP struct {
	Svc *checkout.Service
}

func (h *CheckoutHTTP) Summary(c echo.Context) error {
	return c.JSON(http.StatusOK, checkout.Summarize(auth.Current(c).Cart, h.Svc.Pricing))
}

func (h *CheckoutHTTP) Submit(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout_submit")
	sess := auth.Current(c)

	var req checkout.Request
	if err := c.Bind(&req); err != nil {
		l.Warn("checkout_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.Submit(ctx, sess.Token, sess.UserName(), sess.Cart, req)
	if err != nil {
		var apiErr *apiclient.Error
		if errors.As(err, &apiErr) && !apiclient.IsUnauthorized(err) {
			l.Warn("checkout_failed", "status", 502, "remote_status", apiErr.Status, "error", err)
			return echo.NewHTTPError(http.StatusBadGateway, checkout.ErrorMessage(err))
		}
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}
