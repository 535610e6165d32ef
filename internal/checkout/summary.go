package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/ebooks_storefront/internal/cart"
	"github.com/Skotchmaster/ebooks_storefront/internal/models"
)

type Pricing struct {
	TaxRate     decimal.Decimal
	ShippingFee decimal.Decimal
}

func DefaultPricing() Pricing {
	return Pricing{TaxRate: decimal.RequireFromString("0.08"), ShippingFee: decimal.Zero}
}

type Summary struct {
	Items        []models.CartItem `json:"items"`
	ItemCount    int               `json:"itemCount"`
	Subtotal     decimal.Decimal   `json:"subtotal"`
	Tax          decimal.Decimal   `json:"tax"`
	Shipping     decimal.Decimal   `json:"shipping"`
	FreeShipping bool              `json:"freeShipping"`
	Total        decimal.Decimal   `json:"total"`
}

// Summarize prices the cart. Tax is rounded to cents; an empty cart ships free.
func Summarize(c *cart.Cart, p Pricing) Summary {
	subtotal := c.Total()
	tax := subtotal.Mul(p.TaxRate).Round(2)
	shipping := decimal.Zero
	if !c.Empty() {
		shipping = p.ShippingFee
	}
	return Summary{
		Items:        c.Items(),
		ItemCount:    c.ItemCount(),
		Subtotal:     subtotal,
		Tax:          tax,
		Shipping:     shipping,
		FreeShipping: shipping.IsZero(),
		Total:        subtotal.Add(tax).Add(shipping),
	}
}
