// Package cart holds a visitor's shopping cart: one line per distinct book,
// with the unit price captured when the book was first added.
package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/ebooks_storefront/internal/models"
)

// Cart is not safe for concurrent use; callers serialise access per session.
type Cart struct {
	items []models.CartItem
	newID func() string
}

func New() *Cart {
	return &Cart{newID: uuid.NewString}
}

// FromItems rebuilds a cart from a stored snapshot. Lines with a non-positive
// quantity are dropped and duplicate books are merged into the first line.
func FromItems(items []models.CartItem) *Cart {
	c := New()
	for _, it := range items {
		if it.Quantity <= 0 {
			continue
		}
		if i := c.indexOfBook(it.Book.ID); i >= 0 {
			c.items[i].Quantity += it.Quantity
			continue
		}
		if it.ID == "" {
			it.ID = c.newID()
		}
		c.items = append(c.items, it)
	}
	return c
}

// Add increments the quantity of an existing line for the same book, or appends
// a new line priced at book.Price. Returns the affected line.
func (c *Cart) Add(book models.Book, quantity int) models.CartItem {
	if i := c.indexOfBook(book.ID); i >= 0 {
		c.items[i].Quantity += quantity
		return c.items[i]
	}
	item := models.CartItem{
		ID:       c.newID(),
		Book:     book,
		Quantity: quantity,
		Price:    book.Price,
	}
	c.items = append(c.items, item)
	return item
}

// UpdateQuantity sets the quantity of a line. A quantity of zero or less
// removes it. Unknown ids are ignored; ok reports whether a line matched.
func (c *Cart) UpdateQuantity(itemID string, quantity int) (ok bool) {
	if quantity <= 0 {
		return c.Remove(itemID)
	}
	i := c.indexOf(itemID)
	if i < 0 {
		return false
	}
	c.items[i].Quantity = quantity
	return true
}

func (c *Cart) Remove(itemID string) bool {
	i := c.indexOf(itemID)
	if i < 0 {
		return false
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	return true
}

func (c *Cart) Clear() {
	c.items = nil
}

func (c *Cart) Get(itemID string) (models.CartItem, bool) {
	if i := c.indexOf(itemID); i >= 0 {
		return c.items[i], true
	}
	return models.CartItem{}, false
}

// Items returns a copy of the lines in insertion order.
func (c *Cart) Items() []models.CartItem {
	out := make([]models.CartItem, len(c.items))
	copy(out, c.items)
	return out
}

// QuantityOf returns the quantity on the line for bookID, zero when absent.
func (c *Cart) QuantityOf(bookID int) int {
	if i := c.indexOfBook(bookID); i >= 0 {
		return c.items[i].Quantity
	}
	return 0
}

func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

func (c *Cart) ItemCount() int {
	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

func (c *Cart) Empty() bool {
	return len(c.items) == 0
}

func (c *Cart) indexOf(itemID string) int {
	for i := range c.items {
		if c.items[i].ID == itemID {
			return i
		}
	}
	return -1
}

func (c *Cart) indexOfBook(bookID int) int {
	for i := range c.items {
		if c.items[i].Book.ID == bookID {
			return i
		}
	}
	return -1
}
