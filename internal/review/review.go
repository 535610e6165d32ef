// Package review validates review forms and forwards them to the remote API,
// returning the book's refreshed review list after each change.
package review

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Skotchmaster/ebooks_storefront/internal/apiclient"
	"github.com/Skotchmaster/ebooks_storefront/internal/models"
	"github.com/Skotchmaster/ebooks_storefront/internal/mykafka"
	"github.com/Skotchmaster/ebooks_storefront/internal/validation"
	"github.com/Skotchmaster/ebooks_storefront/pkg/logging"
)

var ErrUnauthorized = errors.New("sign in required")

type API interface {
	ReviewsForBook(ctx context.Context, token string, bookID int) ([]models.Review, error)
	MyReviews(ctx context.Context, token string) ([]models.Review, error)
	CreateReview(ctx context.Context, token string, req apiclient.ReviewRequest) (*models.Review, error)
	UpdateReview(ctx context.Context, token string, id int, req apiclient.ReviewRequest) (*models.Review, error)
	DeleteReview(ctx context.Context, token string, id int) error
}

// Invalidator drops cached catalog entries whose rating summary changed.
type Invalidator interface {
	InvalidateBook(ctx context.Context, id int) error
}

type Service struct {
	API     API
	Catalog Invalidator
	Events  mykafka.Publisher
}

type Input struct {
	Rating  int    `json:"rating" validate:"min=1,max=5"`
	Comment string `json:"comment" validate:"max=1000"`
}

var inputMessages = validation.Messages{
	"rating":  "Rating must be between 1 and 5",
	"comment": "Comment cannot exceed 1000 characters",
}

type Outcome struct {
	Review  *models.Review  `json:"review,omitempty"`
	Reviews []models.Review `json:"reviews"`
}

// Validate checks the form and builds the request body. The comment is
// trimmed and omitted when blank; its length limit applies to the raw input.
func Validate(bookID int, in Input) (apiclient.ReviewRequest, error) {
	if err := validation.Struct(in, inputMessages).Err(); err != nil {
		return apiclient.ReviewRequest{}, err
	}

	req := apiclient.ReviewRequest{BookID: bookID, Rating: in.Rating}
	if c := strings.TrimSpace(in.Comment); c != "" {
		req.Comment = &c
	}
	return req, nil
}

// List treats an unauthorized answer as an empty list.
func (s *Service) List(ctx context.Context, token string, bookID int) ([]models.Review, error) {
	reviews, err := s.API.ReviewsForBook(ctx, token, bookID)
	if apiclient.IsUnauthorized(err) {
		return []models.Review{}, nil
	}
	if err != nil {
		return nil, err
	}
	if reviews == nil {
		reviews = []models.Review{}
	}
	return reviews, nil
}

func (s *Service) Mine(ctx context.Context, token string) ([]models.Review, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	reviews, err := s.API.MyReviews(ctx, token)
	if err != nil {
		return nil, err
	}
	if reviews == nil {
		reviews = []models.Review{}
	}
	return reviews, nil
}

func (s *Service) Create(ctx context.Context, token, userName string, bookID int, in Input) (Outcome, error) {
	if token == "" {
		return Outcome{}, ErrUnauthorized
	}
	req, err := Validate(bookID, in)
	if err != nil {
		return Outcome{}, err
	}

	created, err := s.API.CreateReview(ctx, token, req)
	if err != nil {
		return Outcome{}, fmt.Errorf("create review: %w", err)
	}
	s.afterChange(ctx, userName, bookID)
	return s.outcome(ctx, token, bookID, created), nil
}

// Update edits a review. bookID may be zero when the caller does not know it;
// the remote answer supplies it.
func (s *Service) Update(ctx context.Context, token, userName string, reviewID, bookID int, in Input) (Outcome, error) {
	if token == "" {
		return Outcome{}, ErrUnauthorized
	}
	req, err := Validate(0, in)
	if err != nil {
		return Outcome{}, err
	}

	updated, err := s.API.UpdateReview(ctx, token, reviewID, req)
	if err != nil {
		return Outcome{}, fmt.Errorf("update review %d: %w", reviewID, err)
	}
	if updated.BookID != 0 {
		bookID = updated.BookID
	}
	s.afterChange(ctx, userName, bookID)
	return s.outcome(ctx, token, bookID, updated), nil
}

func (s *Service) Delete(ctx context.Context, token, userName string, reviewID, bookID int) (Outcome, error) {
	if token == "" {
		return Outcome{}, ErrUnauthorized
	}
	if err := s.API.DeleteReview(ctx, token, reviewID); err != nil {
		return Outcome{}, fmt.Errorf("delete review %d: %w", reviewID, err)
	}
	s.afterChange(ctx, userName, bookID)
	return s.outcome(ctx, token, bookID, nil), nil
}

func (s *Service) outcome(ctx context.Context, token string, bookID int, rv *models.Review) Outcome {
	out := Outcome{Review: rv, Reviews: []models.Review{}}
	if bookID == 0 {
		return out
	}
	reviews, err := s.List(ctx, token, bookID)
	if err != nil {
		logging.FromContext(ctx).Warn("review_refresh_failed", "book_id", bookID, "error", err)
		return out
	}
	out.Reviews = reviews
	return out
}

func (s *Service) afterChange(ctx context.Context, userName string, bookID int) {
	l := logging.FromContext(ctx).With("component", "review")
	if s.Catalog != nil && bookID != 0 {
		if err := s.Catalog.InvalidateBook(ctx, bookID); err != nil {
			l.Warn("catalog_invalidate_failed", "book_id", bookID, "error", err)
		}
	}
	if s.Events != nil {
		ev := mykafka.NewEvent(mykafka.TypeReviewSaved, "", userName)
		ev.BookID = bookID
		if err := s.Events.PublishEvent(ctx, userName, ev); err != nil {
			l.Warn("review_event_failed", "book_id", bookID, "error", err)
		}
	}
}
