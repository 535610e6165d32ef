package checkout

import (
	"errors"

	"github.com/Skotchmaster/ebooks_storefront/internal/models"
	"github.com/Skotchmaster/ebooks_storefront/internal/validation"
)

var (
	ErrValidation   = validation.ErrInvalid
	ErrEmptyCart    = errors.New("cart is empty")
	ErrUnauthorized = errors.New("sign in required")
)

type (
	FieldErrors     = validation.Errors
	ValidationError = validation.Error
)

// A blank email gets the same message as a malformed one.
var formMessages = validation.Messages{
	"firstName":      "Valid first name is required",
	"lastName":       "Valid last name is required",
	"email":          "Please enter a valid email address for shipping updates",
	"address":        "Please enter your shipping address",
	"city":           "City is required",
	"state":          "Please provide a valid state",
	"zipCode":        "Zip code required",
	"country":        "Please select a valid country",
	"cardHolderName": "Name on card is required",
	"cardNumber":     "Credit card number is required",
	"expiryMonth":    "Expiration date required",
	"expiryYear":     "Expiration date required",
	"cvv":            "Security code required",
	"paymentMethod":  "Please select a valid payment method",
}

// Validate checks every field and reports all failures together. The expiry
// is reported once, on expiryMonth.
func Validate(ship models.ShippingAddress, pay models.PaymentInfo) FieldErrors {
	errs := validation.Struct(ship, formMessages)
	for field, msg := range validation.Struct(pay, formMessages) {
		if field == "expiryYear" {
			field = "expiryMonth"
		}
		errs.Add(field, msg)
	}
	return errs
}
