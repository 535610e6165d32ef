package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Skotchmaster/ebooks_storefront/internal/apiclient"
	"github.com/Skotchmaster/ebooks_storefront/internal/models"
	"github.com/Skotchmaster/ebooks_storefront/pkg/logging"
)

var ErrNotFound = errors.New("not found")

const (
	listKey = "books:all"

	DefaultFetchTimeout = 30 * time.Second
)

// Source is the remote catalog.
type Source interface {
	ListBooks(ctx context.Context, token string) ([]models.Book, error)
	GetBook(ctx context.Context, token string, id int) (*models.Book, error)
	SearchBooks(ctx context.Context, token, query string) ([]models.Book, error)
	BooksByCategory(ctx context.Context, token string, categoryID int) ([]models.Book, error)
	ListCategories(ctx context.Context, token string) ([]models.Category, error)
}

// Searcher is an optional full-text index consulted before the remote search.
type Searcher interface {
	Index(ctx context.Context, books []models.Book) error
	Search(ctx context.Context, query string) ([]models.Book, error)
}

type Window struct {
	Stale time.Duration
	GC    time.Duration
}

type Policy struct {
	Default Window
	Search  Window
}

func DefaultPolicy() Policy {
	return Policy{
		Default: Window{Stale: 5 * time.Minute, GC: 10 * time.Minute},
		Search:  Window{Stale: 2 * time.Minute, GC: 5 * time.Minute},
	}
}

type Service struct {
	Source   Source
	Cache    Cache
	Searcher Searcher
	Policy   Policy
	Now      func() time.Time
	// FetchTimeout bounds a shared remote fetch, which outlives the
	// cancellation of any single caller. Zero means no bound.
	FetchTimeout time.Duration

	group singleflight.Group
}

func NewService(src Source, cache Cache, policy Policy) *Service {
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Service{Source: src, Cache: cache, Policy: policy, Now: time.Now, FetchTimeout: DefaultFetchTimeout}
}

func (s *Service) ListBooks(ctx context.Context, token string) ([]models.Book, error) {
	return query(ctx, s, listKey, s.Policy.Default, func(ctx context.Context) ([]models.Book, error) {
		books, err := s.Source.ListBooks(ctx, token)
		if err != nil {
			return nil, err
		}
		s.index(ctx, books)
		return books, nil
	})
}

func (s *Service) GetBook(ctx context.Context, token string, id int) (models.Book, error) {
	return query(ctx, s, bookKey(id), s.Policy.Default, func(ctx context.Context) (models.Book, error) {
		book, err := s.Source.GetBook(ctx, token, id)
		if apiclient.IsNotFound(err) {
			return models.Book{}, fmt.Errorf("book %d: %w", id, ErrNotFound)
		}
		if err != nil {
			return models.Book{}, err
		}
		return *book, nil
	})
}

// Search answers an empty result for a blank query without any remote call.
func (s *Service) Search(ctx context.Context, token, q string) ([]models.Book, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []models.Book{}, nil
	}
	return query(ctx, s, "books:search:"+q, s.Policy.Search, func(ctx context.Context) ([]models.Book, error) {
		if s.Searcher != nil {
			books, err := s.Searcher.Search(ctx, q)
			if err == nil {
				return books, nil
			}
			logging.FromContext(ctx).Warn("search_index_failed", "query", q, "error", err)
		}
		return s.Source.SearchBooks(ctx, token, q)
	})
}

func (s *Service) ByCategory(ctx context.Context, token string, categoryID int) ([]models.Book, error) {
	key := "books:category:" + strconv.Itoa(categoryID)
	return query(ctx, s, key, s.Policy.Default, func(ctx context.Context) ([]models.Book, error) {
		return s.Source.BooksByCategory(ctx, token, categoryID)
	})
}

func (s *Service) ListCategories(ctx context.Context, token string) ([]models.Category, error) {
	return query(ctx, s, "categories:all", s.Policy.Default, func(ctx context.Context) ([]models.Category, error) {
		return s.Source.ListCategories(ctx, token)
	})
}

// Invalidate drops cached entries whose key starts with prefix ("" drops all).
func (s *Service) Invalidate(ctx context.Context, prefix string) error {
	return s.Cache.DeletePrefix(ctx, prefix)
}

// InvalidateBook forgets a book and the full listing, both of which carry its
// rating summary.
func (s *Service) InvalidateBook(ctx context.Context, id int) error {
	return s.Cache.Delete(ctx, bookKey(id), listKey)
}

func bookKey(id int) string { return "books:id:" + strconv.Itoa(id) }

func (s *Service) index(ctx context.Context, books []models.Book) {
	if s.Searcher == nil || len(books) == 0 {
		return
	}
	if err := s.Searcher.Index(ctx, books); err != nil {
		logging.FromContext(ctx).Warn("search_index_failed", "books", len(books), "error", err)
	}
}

// query serves key from cache while it is fresh. Once stale it refetches; a
// failed refetch still serves the stale value until the gc window drops it.
// Concurrent callers share one fetch, which is detached from their contexts;
// a caller that gives up returns ctx.Err() without aborting it for the rest.
func query[T any](ctx context.Context, s *Service, key string, w Window, fetch func(context.Context) (T, error)) (T, error) {
	var zero T
	l := logging.FromContext(ctx).With("component", "catalog", "key", key)
	now := s.Now()

	cached, hit, err := s.Cache.Get(ctx, key)
	if err != nil {
		l.Warn("cache_get_failed", "error", err)
		hit = false
	}
	if hit && now.Sub(cached.FetchedAt) < w.Stale {
		var v T
		if err := json.Unmarshal(cached.Data, &v); err == nil {
			return v, nil
		}
		hit = false
	}

	ch := s.group.DoChan(key, func() (any, error) {
		fctx := context.WithoutCancel(ctx)
		if s.FetchTimeout > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(fctx, s.FetchTimeout)
			defer cancel()
		}
		v, err := fetch(fctx)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", key, err)
		}
		if err := s.Cache.Set(fctx, key, Entry{Data: data, FetchedAt: s.Now()}, w.GC); err != nil {
			l.Warn("cache_set_failed", "error", err)
		}
		return json.RawMessage(data), nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	raw, err := res.Val, res.Err
	if err != nil {
		if hit && !errors.Is(err, ErrNotFound) {
			l.Warn("refetch_failed_serving_stale", "age_ms", now.Sub(cached.FetchedAt).Milliseconds(), "error", err)
			var v T
			if jerr := json.Unmarshal(cached.Data, &v); jerr == nil {
				return v, nil
			}
		}
		return zero, err
	}

	var v T
	if err := json.Unmarshal(raw.(json.RawMessage), &v); err != nil {
		return zero, fmt.Errorf("decode %s: %w", key, err)
	}
	return v, nil
}
