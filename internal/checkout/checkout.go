package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/Skotchmaster/ebooks_storefront/internal/apiclient"
	"github.com/Skotchmaster/ebooks_storefront/internal/cart"
	"github.com/Skotchmaster/ebooks_storefront/internal/models"
	"github.com/Skotchmaster/ebooks_storefront/internal/mykafka"
	"github.com/Skotchmaster/ebooks_storefront/internal/validation"
	"github.com/Skotchmaster/ebooks_storefront/pkg/logging"
)

type OrderAPI interface {
	CreateOrder(ctx context.Context, token string, req apiclient.OrderRequest) (*apiclient.OrderResponse, error)
}

type Service struct {
	API     OrderAPI
	Pricing Pricing
	Events  mykafka.Publisher
}

type Request struct {
	ShippingAddress models.ShippingAddress `json:"shippingAddress"`
	PaymentInfo     models.PaymentInfo     `json:"paymentInfo"`
}

type Result struct {
	OrderID string  `json:"orderId"`
	Summary Summary `json:"summary"`
}

// Submit validates the form, places the order and empties c on success. The
// cart is left untouched on any failure.
func (s *Service) Submit(ctx context.Context, token, userName string, c *cart.Cart, req Request) (Result, error) {
	l := logging.FromContext(ctx).With("component", "checkout")

	if token == "" {
		return Result{}, ErrUnauthorized
	}
	if c.Empty() {
		return Result{}, ErrEmptyCart
	}

	pay := req.PaymentInfo
	if pay.PaymentMethod == "" {
		pay.PaymentMethod = models.PaymentCredit
	}
	if err := Validate(req.ShippingAddress, pay).Err(); err != nil {
		return Result{}, err
	}
	pay.CardNumber = validation.StripSpaces(pay.CardNumber)

	summary := Summarize(c, s.Pricing)
	order := apiclient.OrderRequest{
		ShippingAddress: req.ShippingAddress,
		PaymentInfo:     pay,
	}
	for _, it := range c.Items() {
		order.Items = append(order.Items, apiclient.OrderLine{
			BookID:    it.Book.ID,
			Quantity:  it.Quantity,
			UnitPrice: it.Price,
		})
	}

	resp, err := s.API.CreateOrder(ctx, token, order)
	if err != nil {
		l.Warn("order_submit_failed", "status", apiclient.StatusOf(err), "error", err)
		return Result{}, fmt.Errorf("submit order: %w", err)
	}

	c.Clear()
	orderID := string(resp.OrderID)
	l.Info("order_placed", "order_id", orderID, "items", summary.ItemCount, "total", summary.Total.StringFixed(2))

	if s.Events != nil {
		ev := mykafka.NewEvent(mykafka.TypeOrderPlaced, "", userName)
		ev.OrderID = orderID
		total := summary.Total
		ev.Total = &total
		if err := s.Events.PublishEvent(ctx, userName, ev); err != nil {
			l.Warn("order_event_failed", "order_id", orderID, "error", err)
		}
	}

	return Result{OrderID: orderID, Summary: summary}, nil
}

// ErrorMessage is the text shown to the shopper for a failed submission.
func ErrorMessage(err error) string {
	var apiErr *apiclient.Error
	if errors.As(err, &apiErr) {
		return apiErr.Detail()
	}
	return err.Error()
}
