package httpserver

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/ebooks_storefront/internal/apiclient"
	"github.com/Skotchmaster/ebooks_storefront/internal/cart"
	"github.com/Skotchmaster/ebooks_storefront/internal/catalog"
	"github.com/Skotchmaster/ebooks_storefront/internal/middleware/auth"
	"github.com/Skotchmaster/ebooks_storefront/internal/models"
	"github.com/Skotchmaster/ebooks_storefront/internal/mykafka"
	"github.com/Skotchmaster/ebooks_storefront/internal/session"
	"github.com/Skotchmaster/ebooks_storefront/internal/validation"
	"github.com/Skotchmaster/ebooks_storefront/pkg/logging"
)

// CartMirror copies cart changes of signed-in visitors to the remote
// /shoppingcart endpoints. The local cart stays authoritative.
type CartMirror interface {
	AddCartItem(ctx context.Context, token string, line apiclient.CartLine) error
	UpdateCartItem(ctx context.Context, token, id string, line apiclient.CartLine) error
	RemoveCartItem(ctx context.Context, token, id string) error
}

type CartHTTP struct {
	Catalog *catalog.Service
	Mirror  CartMirror
	Events  mykafka.Publisher
}

type cartView struct {
	Items     []models.CartItem `json:"items"`
	ItemCount int               `json:"itemCount"`
	Total     decimal.Decimal   `json:"total"`
}

func viewOf(c *cart.Cart) cartView {
	return cartView{Items: c.Items(), ItemCount: c.ItemCount(), Total: c.Total()}
}

type cartAdd struct {
	BookID   int `json:"bookId" validate:"min=1"`
	Quantity int `json:"quantity" validate:"min=1"`
}

func (cartAdd) FieldMessages() validation.Messages {
	return validation.Messages{
		"bookId":   "Book is required",
		"quantity": "Quantity must be at least 1",
	}
}

// checkStock rejects a line of want copies that the book's stock cannot cover.
func checkStock(book models.Book, want int) error {
	errs := validation.Errors{}
	switch {
	case book.StockQuantity <= 0:
		errs.Add("bookId", "This book is out of stock")
	case want > book.StockQuantity:
		errs.Add("quantity", fmt.Sprintf("Only %d in stock", book.StockQuantity))
	}
	return errs.Err()
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	return c.JSON(http.StatusOK, viewOf(auth.Current(c).Cart))
}

func (h *CartHTTP) AddItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart_add")
	sess := auth.Current(c)

	req := cartAdd{Quantity: 1}
	if err := c.Bind(&req); err != nil {
		l.Warn("cart_add_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return fail(c, err)
	}

	book, err := h.Catalog.GetBook(ctx, sess.Token, req.BookID)
	if err != nil {
		l.Warn("cart_add_failed", "book_id", req.BookID, "error", err)
		return fail(c, err)
	}
	qty := req.Quantity
	if err := checkStock(book, sess.Cart.QuantityOf(book.ID)+qty); err != nil {
		l.Info("cart_add_rejected", "book_id", book.ID, "stock", book.StockQuantity, "quantity", qty)
		return fail(c, err)
	}

	item := sess.Cart.Add(book, qty)
	h.mirror(ctx, sess, "add", func(ctx context.Context) error {
		return h.Mirror.AddCartItem(ctx, sess.Token, apiclient.CartLine{BookID: book.ID, Quantity: qty})
	})
	h.publish(ctx, sess, mykafka.TypeCartUpdated, item.Book.ID, item.Quantity)

	l.Info("cart_item_added", "book_id", book.ID, "quantity", item.Quantity)
	return c.JSON(http.StatusOK, viewOf(sess.Cart))
}

func (h *CartHTTP) UpdateItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart_update")
	sess := auth.Current(c)
	id := c.Param("id")

	req := struct {
		Quantity int `json:"quantity"`
	}{}
	if err := c.Bind(&req); err != nil {
		l.Warn("cart_update_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	item, found := sess.Cart.Get(id)
	if !found {
		return echo.NewHTTPError(http.StatusNotFound, "Cart item not found")
	}
	if req.Quantity > item.Quantity {
		book, err := h.Catalog.GetBook(ctx, sess.Token, item.Book.ID)
		if err != nil {
			l.Warn("cart_update_failed", "book_id", item.Book.ID, "error", err)
			return fail(c, err)
		}
		if err := checkStock(book, req.Quantity); err != nil {
			l.Info("cart_update_rejected", "book_id", book.ID, "stock", book.StockQuantity, "quantity", req.Quantity)
			return fail(c, err)
		}
	}
	sess.Cart.UpdateQuantity(id, req.Quantity)

	if req.Quantity <= 0 {
		h.mirror(ctx, sess, "remove", func(ctx context.Context) error {
			return h.Mirror.RemoveCartItem(ctx, sess.Token, id)
		})
	} else {
		h.mirror(ctx, sess, "update", func(ctx context.Context) error {
			return h.Mirror.UpdateCartItem(ctx, sess.Token, id, apiclient.CartLine{ID: id, BookID: item.Book.ID, Quantity: req.Quantity})
		})
	}
	h.publish(ctx, sess, mykafka.TypeCartUpdated, item.Book.ID, max(req.Quantity, 0))
	return c.JSON(http.StatusOK, viewOf(sess.Cart))
}

func (h *CartHTTP) RemoveItem(c echo.Context) error {
	ctx := c.Request().Context()
	sess := auth.Current(c)
	id := c.Param("id")

	item, found := sess.Cart.Get(id)
	if !found {
		return echo.NewHTTPError(http.StatusNotFound, "Cart item not found")
	}
	sess.Cart.Remove(id)

	h.mirror(ctx, sess, "remove", func(ctx context.Context) error {
		return h.Mirror.RemoveCartItem(ctx, sess.Token, id)
	})
	h.publish(ctx, sess, mykafka.TypeCartUpdated, item.Book.ID, 0)
	return c.JSON(http.StatusOK, viewOf(sess.Cart))
}

func (h *CartHTTP) Clear(c echo.Context) error {
	ctx := c.Request().Context()
	sess := auth.Current(c)

	for _, it := range sess.Cart.Items() {
		h.mirror(ctx, sess, "remove", func(ctx context.Context) error {
			return h.Mirror.RemoveCartItem(ctx, sess.Token, it.ID)
		})
	}
	sess.Cart.Clear()
	h.publish(ctx, sess, mykafka.TypeCartCleared, 0, 0)
	return c.JSON(http.StatusOK, viewOf(sess.Cart))
}

func (h *CartHTTP) mirror(ctx context.Context, sess *session.Session, op string, call func(context.Context) error) {
	if h.Mirror == nil || !sess.Authenticated() {
		return
	}
	if err := call(ctx); err != nil {
		logging.FromContext(ctx).Warn("cart_mirror_failed", "op", op, "status", apiclient.StatusOf(err), "error", err)
	}
}

func (h *CartHTTP) publish(ctx context.Context, sess *session.Session, typ string, bookID, qty int) {
	if h.Events == nil {
		return
	}
	ev := mykafka.NewEvent(typ, sess.ID, sess.UserName())
	ev.BookID = bookID
	ev.Quantity = qty
	total := sess.Cart.Total()
	ev.Total = &total
	if err := h.Events.PublishEvent(ctx, sess.ID, ev); err != nil {
		logging.FromContext(ctx).Warn("cart_event_failed", "type", typ, "error", err)
	}
}
