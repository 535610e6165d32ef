package session

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/ebooks_storefront/internal/cart"
	"github.com/Skotchmaster/ebooks_storefront/internal/models"
)

var ErrNotFound = errors.New("session not found")

type GormRepo struct {
	DB *gorm.DB
}

func (r *GormRepo) Migrate(ctx context.Context) error {
	return r.DB.WithContext(ctx).AutoMigrate(&Record{}, &CartLine{})
}

func (r *GormRepo) Load(ctx context.Context, id string) (*Session, error) {
	var rec Record
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var lines []CartLine
	if err := r.DB.WithContext(ctx).Where("session_id = ?", id).Order("position").Find(&lines).Error; err != nil {
		return nil, err
	}
	items := make([]models.CartItem, 0, len(lines))
	for _, ln := range lines {
		items = append(items, models.CartItem{ID: ln.ID, Book: ln.Book, Quantity: ln.Quantity, Price: ln.Price})
	}

	return &Session{
		ID:         rec.ID,
		Token:      rec.Token,
		User:       rec.User,
		Cart:       cart.FromItems(items),
		VerifiedAt: rec.VerifiedAt,
		CreatedAt:  rec.CreatedAt,
		persisted:  true,
	}, nil
}

// Save writes the session row and replaces its cart lines in one transaction.
func (r *GormRepo) Save(ctx context.Context, s *Session) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return saveTx(tx, s)
	})
}

// Replace removes the session stored under oldID and writes s in its place.
func (r *GormRepo) Replace(ctx context.Context, oldID string, s *Session) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteTx(tx, oldID); err != nil {
			return err
		}
		return saveTx(tx, s)
	})
}

func saveTx(tx *gorm.DB, s *Session) error {
	rec := Record{
		ID:         s.ID,
		Token:      s.Token,
		User:       s.User,
		VerifiedAt: s.VerifiedAt,
		CreatedAt:  s.CreatedAt,
	}
	if err := tx.Save(&rec).Error; err != nil {
		return err
	}
	if err := tx.Where("session_id = ?", s.ID).Delete(&CartLine{}).Error; err != nil {
		return err
	}
	items := s.Cart.Items()
	if len(items) == 0 {
		return nil
	}
	lines := make([]CartLine, 0, len(items))
	for i, it := range items {
		lines = append(lines, CartLine{
			ID:        it.ID,
			SessionID: s.ID,
			Position:  i,
			Book:      it.Book,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}
	return tx.Create(&lines).Error
}

func deleteTx(tx *gorm.DB, id string) error {
	if err := tx.Where("session_id = ?", id).Delete(&CartLine{}).Error; err != nil {
		return err
	}
	return tx.Where("id = ?", id).Delete(&Record{}).Error
}

// DeleteIdle removes sessions untouched since before, with their carts.
func (r *GormRepo) DeleteIdle(ctx context.Context, before time.Time) (int64, error) {
	var removed int64
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		idle := tx.Model(&Record{}).Select("id").Where("updated_at < ?", before)
		if err := tx.Where("session_id IN (?)", idle).Delete(&CartLine{}).Error; err != nil {
			return err
		}
		res := tx.Where("updated_at < ?", before).Delete(&Record{})
		removed = res.RowsAffected
		return res.Error
	})
	return removed, err
}
