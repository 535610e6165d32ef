package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/ebooks_storefront/internal/catalog"
	"github.com/Skotchmaster/ebooks_storefront/internal/checkout"
	"github.com/Skotchmaster/ebooks_storefront/internal/middleware/auth"
	"github.com/Skotchmaster/ebooks_storefront/internal/mykafka"
	"github.com/Skotchmaster/ebooks_storefront/internal/profile"
	"github.com/Skotchmaster/ebooks_storefront/internal/review"
	"github.com/Skotchmaster/ebooks_storefront/internal/session"
	"github.com/Skotchmaster/ebooks_storefront/internal/validation"
	"github.com/Skotchmaster/ebooks_storefront/pkg/logging"
)

type Deps struct {
	Sessions *session.Service
	Session  auth.SessionOptions
	Catalog  *catalog.Service
	Checkout *checkout.Service
	Reviews  *review.Service
	Profile  *profile.Service
	// CartMirror is nil unless remote cart sync is enabled.
	CartMirror CartMirror
	Events     mykafka.Publisher
	// Ready reports whether backing stores are reachable.
	Ready func(ctx context.Context) error
}

func Register(e *echo.Echo, d *Deps) {
	if e.Validator == nil {
		e.Validator = validation.Validator{}
	}
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready == nil {
			return c.NoContent(http.StatusOK)
		}
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := d.Ready(ctx); err != nil {
			logging.FromContext(ctx).Warn("not_ready", "status", 503, "error", err)
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	})

	catalogH := &CatalogHTTP{Svc: d.Catalog}
	cartH := &CartHTTP{Catalog: d.Catalog, Mirror: d.CartMirror, Events: d.Events}
	checkoutH := &CheckoutHTTP{Svc: d.Checkout}
	reviewH := &ReviewHTTP{Svc: d.Reviews}
	authH := &AuthHTTP{Svc: d.Sessions}
	profileH := &ProfileHTTP{Svc: d.Profile}

	v1 := e.Group("/api/v1", auth.Sessions(d.Sessions, d.Session))

	v1.GET("/books", catalogH.ListBooks)
	v1.GET("/books/search", catalogH.Search)
	v1.GET("/books/category/:id", catalogH.ByCategory)
	v1.GET("/books/:id", catalogH.GetBook)
	v1.GET("/categories", catalogH.Categories)

	v1.GET("/books/:id/reviews", reviewH.List)
	v1.POST("/books/:id/reviews", reviewH.Create, auth.RequireLogin)
	v1.PUT("/reviews/:id", reviewH.Update, auth.RequireLogin)
	v1.DELETE("/reviews/:id", reviewH.Delete, auth.RequireLogin)

	v1.GET("/cart", cartH.GetCart)
	v1.POST("/cart", cartH.AddItem)
	v1.DELETE("/cart", cartH.Clear)
	v1.PUT("/cart/items/:id", cartH.UpdateItem)
	v1.DELETE("/cart/items/:id", cartH.RemoveItem)

	v1.GET("/checkout/summary", checkoutH.Summary)
	v1.POST("/checkout", checkoutH.Submit, auth.RequireLogin)

	v1.POST("/auth/signin", authH.SignIn)
	v1.POST("/auth/signup", authH.SignUp)
	v1.POST("/auth/signout", authH.SignOut)
	v1.GET("/auth/me", authH.Me)

	v1.GET("/profile/orders", profileH.Orders, auth.RequireLogin)
	v1.GET("/profile/reviews", profileH.Reviews, auth.RequireLogin)
	v1.GET("/profile/stats", profileH.Stats, auth.RequireLogin)
	v1.POST("/profile/password", profileH.ChangePassword, auth.RequireLogin)
}
