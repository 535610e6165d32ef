package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/ebooks_storefront/internal/middleware/auth"
	"github.com/Skotchmaster/ebooks_storefront/internal/models"
	"github.com/Skotchmaster/ebooks_storefront/internal/session"
	"github.com/Skotchmaster/ebooks_storefront/pkg/logging"
)

type AuthHTTP struct {
	Svc *session.Service
}

type meView struct {
	State     session.State `json:"state"`
	User      *models.User  `json:"user,omitempty"`
	CartCount int           `json:"cartCount"`
}

func viewOfSession(s *session.Session) meView {
	return meView{State: s.State(), User: s.User, CartCount: s.Cart.ItemCount()}
}

func (h *AuthHTTP) SignIn(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_signin")
	sess := auth.Current(c)

	var req session.Credentials
	if err := c.Bind(&req); err != nil {
		l.Warn("signin_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if err := h.Svc.SignIn(ctx, sess, req); err != nil {
		var rejected *session.RejectedError
		if errors.As(err, &rejected) {
			return echo.NewHTTPError(http.StatusUnauthorized, rejected.Message)
		}
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, viewOfSession(sess))
}

func (h *AuthHTTP) SignUp(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_signup")
	sess := auth.Current(c)

	var req session.Registration
	if err := c.Bind(&req); err != nil {
		l.Warn("signup_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if err := h.Svc.SignUp(ctx, sess, req); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, viewOfSession(sess))
}

func (h *AuthHTTP) SignOut(c echo.Context) error {
	ctx := c.Request().Context()
	sess := auth.Current(c)

	h.Svc.SignOut(ctx, sess)
	logging.FromContext(ctx).With("handler", "auth_signout").Info("successful_signout")
	return c.JSON(http.StatusOK, viewOfSession(sess))
}

func (h *AuthHTTP) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, viewOfSession(auth.Current(c)))
}
