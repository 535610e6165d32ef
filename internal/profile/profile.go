// Package profile serves the signed-in user's own orders, reviews and
// account settings.
package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Skotchmaster/ebooks_storefront/internal/apiclient"
	"github.com/Skotchmaster/ebooks_storefront/internal/models"
	"github.com/Skotchmaster/ebooks_storefront/internal/validation"
	"github.com/Skotchmaster/ebooks_storefront/pkg/logging"
)

var ErrUnauthorized = errors.New("sign in required")

type API interface {
	MyOrders(ctx context.Context, token string) ([]models.Order, error)
	MyReviews(ctx context.Context, token string) ([]models.Review, error)
	ChangePassword(ctx context.Context, token string, req apiclient.ChangePasswordRequest) error
}

type Service struct {
	API API
}

type Stats struct {
	OrderCount     int `json:"orderCount"`
	ReviewCount    int `json:"reviewCount"`
	BooksPurchased int `json:"booksPurchased"`
}

type PasswordChange struct {
	CurrentPassword    string `json:"currentPassword" validate:"notblank"`
	NewPassword        string `json:"newPassword" validate:"notblank,min=8,haslower,hasupper,hasdigit"`
	ConfirmNewPassword string `json:"confirmNewPassword" validate:"notblank,eqfield=NewPassword"`
}

const weakPassword = "Password must contain at least one uppercase letter, one lowercase letter, and one number"

var passwordMessages = validation.Messages{
	"currentPassword":             "Current password is required",
	"newPassword.notblank":        "New password is required",
	"newPassword.min":             "Password must be at least 8 characters long",
	"newPassword.haslower":        weakPassword,
	"newPassword.hasupper":        weakPassword,
	"newPassword.hasdigit":        weakPassword,
	"confirmNewPassword.notblank": "Please confirm your new password",
	"confirmNewPassword.eqfield":  "Passwords do not match",
}

func (s *Service) Orders(ctx context.Context, token string) ([]models.Order, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	orders, err := s.API.MyOrders(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

func (s *Service) Reviews(ctx context.Context, token string) ([]models.Review, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	reviews, err := s.API.MyReviews(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	if reviews == nil {
		reviews = []models.Review{}
	}
	return reviews, nil
}

// Stats fetches orders and reviews together. Any failure yields zero counts
// alongside the error, so callers can still render the card.
func (s *Service) Stats(ctx context.Context, token string) (Stats, error) {
	if token == "" {
		return Stats{}, ErrUnauthorized
	}

	var (
		orders  []models.Order
		reviews []models.Review
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		orders, err = s.API.MyOrders(gctx, token)
		return err
	})
	g.Go(func() (err error) {
		reviews, err = s.API.MyReviews(gctx, token)
		return err
	})
	if err := g.Wait(); err != nil {
		logging.FromContext(ctx).Warn("profile_stats_failed", "error", err)
		return Stats{}, err
	}

	st := Stats{OrderCount: len(orders), ReviewCount: len(reviews)}
	for _, o := range orders {
		st.BooksPurchased += len(o.OrderItems)
	}
	return st, nil
}

func ValidatePasswordChange(p PasswordChange) validation.Errors {
	return validation.Struct(p, passwordMessages)
}

// ChangePassword validates locally, then forwards to the remote. A refusal
// other than 401 comes back as a field error on currentPassword.
func (s *Service) ChangePassword(ctx context.Context, token string, p PasswordChange) error {
	if token == "" {
		return ErrUnauthorized
	}
	if err := ValidatePasswordChange(p).Err(); err != nil {
		return err
	}

	err := s.API.ChangePassword(ctx, token, apiclient.ChangePasswordRequest{
		CurrentPassword: p.CurrentPassword,
		NewPassword:     p.NewPassword,
	})
	if err == nil {
		return nil
	}

	var apiErr *apiclient.Error
	if errors.As(err, &apiErr) && !apiclient.IsUnauthorized(err) {
		msg := strings.TrimSpace(apiErr.Message)
		if msg == "" {
			msg = "Failed to change password"
		}
		errs := validation.Errors{}
		errs.Add("currentPassword", msg)
		return errs.Err()
	}
	return fmt.Errorf("change password: %w", err)
}
