package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/ebooks_storefront/internal/apiclient"
	"github.com/Skotchmaster/ebooks_storefront/internal/catalog"
	"github.com/Skotchmaster/ebooks_storefront/internal/checkout"
	"github.com/Skotchmaster/ebooks_storefront/internal/middleware/auth"
	"github.com/Skotchmaster/ebooks_storefront/internal/profile"
	"github.com/Skotchmaster/ebooks_storefront/internal/review"
	"github.com/Skotchmaster/ebooks_storefront/internal/session"
	"github.com/Skotchmaster/ebooks_storefront/internal/validation"
	"github.com/Skotchmaster/ebooks_storefront/pkg/logging"
)

// fail maps service errors onto HTTP answers. A 401 from the remote API signs
// the session out before answering.
func fail(c echo.Context, err error) error {
	l := logging.FromContext(c.Request().Context())

	if fields, ok := validation.FieldsOf(err); ok {
		l.Info("validation_failed", "status", 422, "fields", len(fields))
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"errors": fields})
	}

	var rejected *session.RejectedError
	switch {
	case unauthorized(err):
		if sess := auth.Current(c); sess != nil && sess.Authenticated() {
			l.Info("session_demoted", "session_id", sess.ID, "error", err)
			sess.Demote()
		}
		return echo.NewHTTPError(http.StatusUnauthorized, "Please sign in")
	case errors.Is(err, catalog.ErrNotFound), apiclient.IsNotFound(err):
		return echo.NewHTTPError(http.StatusNotFound, "Not found")
	case errors.Is(err, checkout.ErrEmptyCart):
		return echo.NewHTTPError(http.StatusBadRequest, "Your cart is empty")
	case errors.As(err, &rejected):
		return echo.NewHTTPError(http.StatusBadRequest, rejected.Message)
	}

	var apiErr *apiclient.Error
	if errors.As(err, &apiErr) {
		if apiErr.Status == http.StatusForbidden {
			return echo.NewHTTPError(http.StatusForbidden, apiErr.Detail())
		}
		l.Warn("remote_call_failed", "status", 502, "remote_status", apiErr.Status, "path", apiErr.Path, "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, apiErr.Detail())
	}

	l.Error("remote_call_failed", "status", 502, "error", err)
	return echo.NewHTTPError(http.StatusBadGateway, "Remote service unavailable")
}

func unauthorized(err error) bool {
	return apiclient.IsUnauthorized(err) ||
		errors.Is(err, checkout.ErrUnauthorized) ||
		errors.Is(err, review.ErrUnauthorized) ||
		errors.Is(err, profile.ErrUnauthorized)
}

func paramID(c echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}
