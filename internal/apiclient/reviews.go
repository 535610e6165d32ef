package apiclient

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Skotchmaster/ebooks_storefront/internal/models"
)

type ReviewRequest struct {
	BookID  int     `json:"bookId,omitempty"`
	Rating  int     `json:"rating"`
	Comment *string `json:"comment,omitempty"`
}

func (c *Client) ReviewsForBook(ctx context.Context, token string, bookID int) ([]models.Review, error) {
	var reviews []models.Review
	if err := c.do(ctx, http.MethodGet, "/reviews/book/"+strconv.Itoa(bookID), token, nil, &reviews); err != nil {
		return nil, err
	}
	return reviews, nil
}

func (c *Client) MyReviews(ctx context.Context, token string) ([]models.Review, error) {
	var reviews []models.Review
	if err := c.do(ctx, http.MethodGet, "/reviews/user/current", token, nil, &reviews); err != nil {
		return nil, err
	}
	return reviews, nil
}

func (c *Client) CreateReview(ctx context.Context, token string, req ReviewRequest) (*models.Review, error) {
	var review models.Review
	if err := c.do(ctx, http.MethodPost, "/reviews", token, req, &review); err != nil {
		return nil, err
	}
	return &review, nil
}

func (c *Client) UpdateReview(ctx context.Context, token string, id int, req ReviewRequest) (*models.Review, error) {
	var review models.Review
	if err := c.do(ctx, http.MethodPut, "/reviews/"+strconv.Itoa(id), token, req, &review); err != nil {
		return nil, err
	}
	return &review, nil
}

func (c *Client) DeleteReview(ctx context.Context, token string, id int) error {
	return c.do(ctx, http.MethodDelete, "/reviews/"+strconv.Itoa(id), token, nil, nil)
}
