package session

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/ebooks_storefront/internal/models"
)

type Record struct {
	ID         string       `gorm:"primaryKey;size:36"`
	Token      string       `gorm:"type:text"`
	User       *models.User `gorm:"type:text;serializer:json"`
	VerifiedAt time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time `gorm:"index"`
}

func (Record) TableName() string {
	return "sessions"
}

type CartLine struct {
	ID        string          `gorm:"primaryKey;size:36"`
	SessionID string          `gorm:"index;size:36;not null"`
	Position  int             `gorm:"not null"`
	Book      models.Book     `gorm:"type:text;serializer:json"`
	Quantity  int             `gorm:"check:quantity>0"`
	Price     decimal.Decimal `gorm:"type:numeric(12,2)"`
}

func (CartLine) TableName() string {
	return "session_cart_items"
}
