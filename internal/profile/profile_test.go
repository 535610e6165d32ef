package profile

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/ebooks_storefront/internal/apiclient"
	"github.com/Skotchmaster/ebooks_storefront/internal/fakeapi"
	"github.com/Skotchmaster/ebooks_storefront/internal/models"
	"github.com/Skotchmaster/ebooks_storefront/internal/validation"
)

func newService(t *testing.T) (*Service, *fakeapi.Server) {
	t.Helper()
	api := fakeapi.New()
	t.Cleanup(api.Close)
	return &Service{API: apiclient.NewClient(api.BaseURL(), 2*time.Second)}, api
}

func TestStats(t *testing.T) {
	t.Parallel()

	svc, api := newService(t)
	tok := api.IssueToken("reader")
	api.AddOrder("reader", models.Order{ID: 1, TotalAmount: decimal.RequireFromString("22.49"), OrderItems: []models.OrderItem{
		{ID: 1, BookID: 1, Quantity: 3},
		{ID: 2, BookID: 2, Quantity: 1},
	}})
	api.AddOrder("reader", models.Order{ID: 2, OrderItems: []models.OrderItem{{ID: 3, BookID: 3, Quantity: 1}}})

	st, err := svc.Stats(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, Stats{OrderCount: 2, ReviewCount: 0, BooksPurchased: 3}, st)
}

func TestStats_FailureGivesZeros(t *testing.T) {
	t.Parallel()

	svc, api := newService(t)
	tok := api.IssueToken("reader")
	api.AddOrder("reader", models.Order{ID: 1})
	api.Fail("GET /reviews/user/current", http.StatusInternalServerError, 1)

	st, err := svc.Stats(context.Background(), tok)
	require.Error(t, err)
	assert.Equal(t, Stats{}, st)
}

func TestOrdersAndReviews(t *testing.T) {
	t.Parallel()

	svc, api := newService(t)
	ctx := context.Background()

	_, err := svc.Orders(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthorized)

	tok := api.IssueToken("reader")
	orders, err := svc.Orders(ctx, tok)
	require.NoError(t, err)
	assert.NotNil(t, orders)
	assert.Empty(t, orders)

	reviews, err := svc.Reviews(ctx, tok)
	require.NoError(t, err)
	assert.Empty(t, reviews)

	api.Revoke(tok)
	_, err = svc.Reviews(ctx, tok)
	assert.True(t, apiclient.IsUnauthorized(err))
}

func TestValidatePasswordChange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   PasswordChange
		want validation.Errors
	}{
		{
			name: "all blank",
			in:   PasswordChange{},
			want: validation.Errors{
				"currentPassword":    "Current password is required",
				"newPassword":        "New password is required",
				"confirmNewPassword": "Please confirm your new password",
			},
		},
		{
			name: "too short",
			in:   PasswordChange{CurrentPassword: "x", NewPassword: "Ab1", ConfirmNewPassword: "Ab1"},
			want: validation.Errors{"newPassword": "Password must be at least 8 characters long"},
		},
		{
			name: "no digit",
			in:   PasswordChange{CurrentPassword: "x", NewPassword: "Abcdefgh", ConfirmNewPassword: "Abcdefgh"},
			want: validation.Errors{"newPassword": "Password must contain at least one uppercase letter, one lowercase letter, and one number"},
		},
		{
			name: "mismatch",
			in:   PasswordChange{CurrentPassword: "x", NewPassword: "Abcdefg1", ConfirmNewPassword: "Abcdefg2"},
			want: validation.Errors{"confirmNewPassword": "Passwords do not match"},
		},
		{
			name: "valid",
			in:   PasswordChange{CurrentPassword: "x", NewPassword: "Abcdefg1", ConfirmNewPassword: "Abcdefg1"},
			want: validation.Errors{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ValidatePasswordChange(tt.in))
		})
	}
}

func TestChangePassword(t *testing.T) {
	t.Parallel()

	svc, api := newService(t)
	ctx := context.Background()
	tok := api.IssueToken("reader")

	err := svc.ChangePassword(ctx, tok, PasswordChange{CurrentPassword: "wrong", NewPassword: "NewPass12", ConfirmNewPassword: "NewPass12"})
	fields, ok := validation.FieldsOf(err)
	require.True(t, ok)
	assert.Equal(t, "Current password is incorrect", fields["currentPassword"])

	require.NoError(t, svc.ChangePassword(ctx, tok, PasswordChange{CurrentPassword: "Secret123", NewPassword: "NewPass12", ConfirmNewPassword: "NewPass12"}))

	_, err = apiclient.NewClient(api.BaseURL(), time.Second).Login(ctx, apiclient.LoginRequest{UserName: "reader", Password: "NewPass12"})
	assert.NoError(t, err)
}

func TestChangePassword_InvalidNeverReachesRemote(t *testing.T) {
	t.Parallel()

	svc, api := newService(t)
	err := svc.ChangePassword(context.Background(), api.IssueToken("reader"), PasswordChange{CurrentPassword: "Secret123", NewPassword: "short"})
	require.ErrorIs(t, err, validation.ErrInvalid)
	assert.Zero(t, api.Calls("POST /users/change-password"))
}
