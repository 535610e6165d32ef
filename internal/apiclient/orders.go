package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/ebooks_storefront/internal/models"
)

type OrderLine struct {
	BookID    int             `json:"bookId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

type OrderRequest struct {
	ShippingAddress models.ShippingAddress `json:"shippingAddress"`
	PaymentInfo     models.PaymentInfo     `json:"paymentInfo"`
	Items           []OrderLine            `json:"items,omitempty"`
}

type OrderResponse struct {
	OrderID ID     `json:"orderId"`
	Message string `json:"message,omitempty"`
}

// ID accepts both JSON numbers and strings.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (c *Client) CreateOrder(ctx context.Context, token string, req OrderRequest) (*OrderResponse, error) {
	var resp OrderResponse
	if err := c.do(ctx, http.MethodPost, "/orders", token, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) MyOrders(ctx context.Context, token string) ([]models.Order, error) {
	var orders []models.Order
	if err := c.do(ctx, http.MethodGet, "/orders/user", token, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}
