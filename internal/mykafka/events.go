package mykafka

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TypeCartUpdated  = "cart_updated"
	TypeCartCleared  = "cart_cleared"
	TypeOrderPlaced  = "order_placed"
	TypeUserSignedIn = "user_signed_in"
	TypeUserSignedUp = "user_signed_up"
	TypeUserSignOut  = "user_signed_out"
	TypeReviewSaved  = "review_saved"
)

type Event struct {
	Type      string           `json:"type"`
	SessionID string           `json:"sessionID,omitempty"`
	UserName  string           `json:"userName,omitempty"`
	OrderID   string           `json:"orderID,omitempty"`
	BookID    int              `json:"bookID,omitempty"`
	Quantity  int              `json:"quantity,omitempty"`
	Total     *decimal.Decimal `json:"total,omitempty"`
	At        time.Time        `json:"at"`
}

func NewEvent(typ, sessionID, userName string) Event {
	return Event{Type: typ, SessionID: sessionID, UserName: userName, At: time.Now().UTC()}
}
