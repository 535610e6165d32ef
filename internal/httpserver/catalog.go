package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/ebooks_storefront/internal/catalog"
	"github.com/Skotchmaster/ebooks_storefront/internal/middleware/auth"
	"github.com/Skotchmaster/ebooks_storefront/internal/util"
	"github.com/Skotchmaster/ebooks_storefront/pkg/logging"
)

type CatalogHTTP struct {
	Svc *catalog.Service
}

func (h *CatalogHTTP) ListBooks(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog_list")

	books, err := h.Svc.ListBooks(ctx, auth.Current(c).Token)
	if err != nil {
		l.Warn("list_books_failed", "error", err)
		return fail(c, err)
	}

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	return c.JSON(http.StatusOK, util.Paginate(books, page, size))
}

func (h *CatalogHTTP) GetBook(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	book, err := h.Svc.GetBook(ctx, auth.Current(c).Token, id)
	if err != nil {
		logging.FromContext(ctx).With("handler", "catalog_get").Warn("get_book_failed", "book_id", id, "error", err)
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, book)
}

func (h *CatalogHTTP) Search(c echo.Context) error {
	ctx := c.Request().Context()
	q := c.QueryParam("q")

	books, err := h.Svc.Search(ctx, auth.Current(c).Token, q)
	if err != nil {
		logging.FromContext(ctx).With("handler", "catalog_search").Warn("search_failed", "query", q, "error", err)
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, books)
}

func (h *CatalogHTTP) ByCategory(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	books, err := h.Svc.ByCategory(ctx, auth.Current(c).Token, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, books)
}

func (h *CatalogHTTP) Categories(c echo.Context) error {
	ctx := c.Request().Context()

	cats, err := h.Svc.ListCategories(ctx, auth.Current(c).Token)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, cats)
}
