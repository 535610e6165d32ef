package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Skotchmaster/ebooks_storefront/internal/models"
)

func (c *Client) ListBooks(ctx context.Context, token string) ([]models.Book, error) {
	var books []models.Book
	if err := c.do(ctx, http.MethodGet, "/books", token, nil, &books); err != nil {
		return nil, err
	}
	return books, nil
}

func (c *Client) GetBook(ctx context.Context, token string, id int) (*models.Book, error) {
	var book models.Book
	if err := c.do(ctx, http.MethodGet, "/books/"+strconv.Itoa(id), token, nil, &book); err != nil {
		return nil, err
	}
	return &book, nil
}

func (c *Client) SearchBooks(ctx context.Context, token, query string) ([]models.Book, error) {
	var books []models.Book
	path := "/books/search?q=" + url.QueryEscape(query)
	if err := c.do(ctx, http.MethodGet, path, token, nil, &books); err != nil {
		return nil, err
	}
	return books, nil
}

func (c *Client) BooksByCategory(ctx context.Context, token string, categoryID int) ([]models.Book, error) {
	var books []models.Book
	if err := c.do(ctx, http.MethodGet, "/books/category/"+strconv.Itoa(categoryID), token, nil, &books); err != nil {
		return nil, err
	}
	return books, nil
}

func (c *Client) ListCategories(ctx context.Context, token string) ([]models.Category, error) {
	var categories []models.Category
	if err := c.do(ctx, http.MethodGet, "/categories", token, nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}
