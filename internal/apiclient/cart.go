package apiclient

import (
	"context"
	"net/http"
	"net/url"
)

type CartLine struct {
	ID       string `json:"id,omitempty"`
	BookID   int    `json:"bookId"`
	Quantity int    `json:"quantity"`
}

func (c *Client) AddCartItem(ctx context.Context, token string, line CartLine) error {
	return c.do(ctx, http.MethodPost, "/shoppingcart", token, line, nil)
}

func (c *Client) UpdateCartItem(ctx context.Context, token, id string, line CartLine) error {
	return c.do(ctx, http.MethodPut, "/shoppingcart/"+url.PathEscape(id), token, line, nil)
}

func (c *Client) RemoveCartItem(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodDelete, "/shoppingcart/"+url.PathEscape(id), token, nil, nil)
}
