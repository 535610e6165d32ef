package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/ebooks_storefront/internal/fakeapi"
	"github.com/Skotchmaster/ebooks_storefront/internal/models"
)

func newTestClient(t *testing.T) (*Client, *fakeapi.Server) {
	t.Helper()
	api := fakeapi.New()
	t.Cleanup(api.Close)
	return NewClient(api.BaseURL()+"/", 2*time.Second), api
}

func TestClient_Books(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t)
	ctx := context.Background()

	books, err := c.ListBooks(ctx, "")
	require.NoError(t, err)
	require.Len(t, books, 3)
	assert.Equal(t, "The Great Gatsby", books[0].Title)
	assert.Equal(t, "12.99", books[0].Price.StringFixed(2))

	book, err := c.GetBook(ctx, "", 2)
	require.NoError(t, err)
	assert.Equal(t, "Moby Dick", book.Title)

	found, err := c.SearchBooks(ctx, "", "gatsby")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, 1, found[0].ID)

	byCat, err := c.BooksByCategory(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, byCat, 1)
	assert.Equal(t, 3, byCat[0].ID)

	cats, err := c.ListCategories(ctx, "")
	require.NoError(t, err)
	assert.Len(t, cats, 2)
}

func TestClient_ErrorStatus(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t)

	_, err := c.GetBook(context.Background(), "", 999)
	require.Error(t, err)
	assert.Equal(t, "HTTP error! status: 404", err.Error())
	assert.True(t, IsNotFound(err))

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Book not found", apiErr.Detail())
	assert.Equal(t, "/books/999", apiErr.Path)
}

func TestClient_BearerHeaderAndUnauthorized(t *testing.T) {
	t.Parallel()

	c, api := newTestClient(t)
	ctx := context.Background()

	_, err := c.MyOrders(ctx, "")
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))

	tok := api.IssueToken("reader")
	orders, err := c.MyOrders(ctx, tok)
	require.NoError(t, err)
	assert.Empty(t, orders)

	user, err := c.Me(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, "reader", user.UserName)
}

func TestClient_Auth(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t)
	ctx := context.Background()

	resp, err := c.Login(ctx, LoginRequest{UserName: "reader", Password: "Secret123"})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Token)
	require.NotNil(t, resp.User)

	_, err = c.Login(ctx, LoginRequest{UserName: "reader", Password: "wrong"})
	require.Error(t, err)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Invalid username or password", apiErr.Message)

	exists, err := c.UsernameExists(ctx, "reader")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = c.EmailExists(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.False(t, exists)

	reg, err := c.Register(ctx, RegisterRequest{UserName: "newbie", Email: "n@example.com", Password: "Passw0rd!", ConfirmPassword: "Passw0rd!"})
	require.NoError(t, err)
	assert.True(t, reg.Success)

	require.NoError(t, c.ChangePassword(ctx, reg.Token, ChangePasswordRequest{CurrentPassword: "Passw0rd!", NewPassword: "Another1A"}))
}

func TestClient_ReviewsAndOrders(t *testing.T) {
	t.Parallel()

	c, api := newTestClient(t)
	ctx := context.Background()
	tok := api.IssueToken("reader")

	comment := "Great read"
	created, err := c.CreateReview(ctx, tok, ReviewRequest{BookID: 1, Rating: 5, Comment: &comment})
	require.NoError(t, err)
	assert.Equal(t, "reader", created.UserName)

	updated, err := c.UpdateReview(ctx, tok, created.ID, ReviewRequest{Rating: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Rating)
	assert.Empty(t, updated.Comment)

	require.NoError(t, c.DeleteReview(ctx, tok, created.ID))

	resp, err := c.CreateOrder(ctx, tok, OrderRequest{
		ShippingAddress: models.ShippingAddress{Address: "1 Main", City: "Springfield"},
		Items:           []OrderLine{{BookID: 1, Quantity: 2}},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.OrderID)

	var sent map[string]any
	require.NoError(t, json.Unmarshal(api.LastBody("POST /orders"), &sent))
	assert.Contains(t, sent, "shippingAddress")
	assert.Contains(t, sent, "paymentInfo")
}

func TestClient_CartMirror(t *testing.T) {
	t.Parallel()

	c, api := newTestClient(t)
	ctx := context.Background()
	tok := api.IssueToken("reader")

	require.NoError(t, c.AddCartItem(ctx, tok, CartLine{BookID: 1, Quantity: 1}))
	require.NoError(t, c.UpdateCartItem(ctx, tok, "abc", CartLine{BookID: 1, Quantity: 3}))
	require.NoError(t, c.RemoveCartItem(ctx, tok, "abc"))
	assert.Equal(t, 1, api.Calls("POST /shoppingcart"))
	assert.Equal(t, 1, api.Calls("PUT /shoppingcart/{id}"))
	assert.Equal(t, 1, api.Calls("DELETE /shoppingcart/{id}"))
}

func TestID_Unmarshal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want ID
	}{
		{`{"orderId": 42}`, "42"},
		{`{"orderId": "ord-7"}`, "ord-7"},
		{`{"orderId": null}`, ""},
	}
	for _, tt := range tests {
		var resp OrderResponse
		require.NoError(t, json.Unmarshal([]byte(tt.in), &resp))
		assert.Equal(t, tt.want, resp.OrderID)
	}
}

func TestClient_PlainTextErrorAndTimeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/slow" {
			time.Sleep(200 * time.Millisecond)
			return
		}
		http.Error(w, "out of stock", http.StatusConflict)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, 50*time.Millisecond)

	err := c.do(context.Background(), http.MethodPost, "/orders", "", map[string]int{"a": 1}, nil)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "out of stock", apiErr.Detail())

	err = c.do(context.Background(), http.MethodGet, "/slow", "", nil, nil)
	require.Error(t, err)
	assert.Zero(t, StatusOf(err))
}
