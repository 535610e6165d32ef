package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/ebooks_storefront/internal/middleware/auth"
	"github.com/Skotchmaster/ebooks_storefront/internal/review"
	"github.com/Skotchmaster/ebooks_storefront/pkg/logging"
)

type ReviewHTTP struct {
	Svc *review.Service
}

func (h *ReviewHTTP) List(c echo.Context) error {
	bookID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	reviews, err := h.Svc.List(ctx, auth.Current(c).Token, bookID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, reviews)
}

func (h *ReviewHTTP) Create(c echo.Context) error {
	bookID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "review_create", "book_id", bookID)
	sess := auth.Current(c)

	var in review.Input
	if err := c.Bind(&in); err != nil {
		l.Warn("review_create_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	out, err := h.Svc.Create(ctx, sess.Token, sess.UserName(), bookID, in)
	if err != nil {
		l.Warn("review_create_failed", "error", err)
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *ReviewHTTP) Update(c echo.Context) error {
	reviewID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "review_update", "review_id", reviewID)
	sess := auth.Current(c)

	var req struct {
		review.Input
		BookID int `json:"bookId"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("review_update_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	out, err := h.Svc.Update(ctx, sess.Token, sess.UserName(), reviewID, req.BookID, req.Input)
	if err != nil {
		l.Warn("review_update_failed", "error", err)
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ReviewHTTP) Delete(c echo.Context) error {
	reviewID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	sess := auth.Current(c)
	l := logging.FromContext(ctx).With("handler", "review_delete", "review_id", reviewID)

	var bookID int
	if err := echo.QueryParamsBinder(c).MustInt("bookId", &bookID).BindError(); err != nil || bookID <= 0 {
		l.Warn("review_delete_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "bookId is required")
	}

	out, err := h.Svc.Delete(ctx, sess.Token, sess.UserName(), reviewID, bookID)
	if err != nil {
		l.Warn("review_delete_failed", "error", err)
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
