package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// the bookstore API speaks JSON numbers for money
	decimal.MarshalJSONWithoutQuotes = true
}

type Book struct {
	ID            int             `json:"id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stockQuantity"`
	CoverImageURL string          `json:"coverImageUrl,omitempty"`
	AuthorName    string          `json:"authorName,omitempty"`
	PublisherName string          `json:"publisherName,omitempty"`
	CategoryName  string          `json:"categoryName,omitempty"`
	ReviewCount   int             `json:"reviewCount"`
	AverageRating float64         `json:"averageRating"`
}

type Category struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type CartItem struct {
	ID       string          `json:"id"`
	Book     Book            `json:"book"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type OrderStatus string

const (
	OrderPending    OrderStatus = "Pending"
	OrderProcessing OrderStatus = "Processing"
	OrderCompleted  OrderStatus = "Completed"
	OrderCancelled  OrderStatus = "Cancelled"
)

type OrderItem struct {
	ID        int             `json:"id"`
	BookID    int             `json:"bookId"`
	BookTitle string          `json:"bookTitle"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

type Order struct {
	ID              int             `json:"id"`
	UserID          string          `json:"userId"`
	OrderDate       time.Time       `json:"orderDate"`
	Status          OrderStatus     `json:"status"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	ShippingAddress string          `json:"shippingAddress"`
	OrderItems      []OrderItem     `json:"orderItems"`
}

type Review struct {
	ID        int       `json:"id"`
	BookID    int       `json:"bookId"`
	BookTitle string    `json:"bookTitle,omitempty"`
	UserName  string    `json:"userName"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type User struct {
	ID          string    `json:"id"`
	UserName    string    `json:"userName"`
	Email       string    `json:"email"`
	FirstName   string    `json:"firstName,omitempty"`
	LastName    string    `json:"lastName,omitempty"`
	PhoneNumber string    `json:"phoneNumber,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	Roles       []string  `json:"roles,omitempty"`
	FullName    string    `json:"fullName,omitempty"`
}

type ShippingAddress struct {
	FirstName string `json:"firstName" validate:"notblank"`
	LastName  string `json:"lastName" validate:"notblank"`
	Email     string `json:"email" validate:"email"`
	Phone     string `json:"phone,omitempty"`
	Address   string `json:"address" validate:"notblank"`
	Address2  string `json:"address2,omitempty"`
	City      string `json:"city" validate:"notblank"`
	State     string `json:"state" validate:"notblank"`
	ZipCode   string `json:"zipCode" validate:"notblank"`
	Country   string `json:"country" validate:"notblank"`
}

type PaymentMethod string

const (
	PaymentCredit PaymentMethod = "credit"
	PaymentDebit  PaymentMethod = "debit"
	PaymentPayPal PaymentMethod = "paypal"
)

type PaymentInfo struct {
	CardNumber     string        `json:"cardNumber" validate:"cardnumber"`
	CardHolderName string        `json:"cardHolderName" validate:"notblank"`
	ExpiryMonth    string        `json:"expiryMonth" validate:"required"`
	ExpiryYear     string        `json:"expiryYear" validate:"required"`
	CVV            string        `json:"cvv" validate:"len=3,number"`
	PaymentMethod  PaymentMethod `json:"paymentMethod" validate:"omitempty,oneof=credit debit paypal"`
}

type AuthResponse struct {
	Success      bool   `json:"success"`
	Token        string `json:"token,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
	User         *User  `json:"user,omitempty"`
	Message      string `json:"message,omitempty"`
}
