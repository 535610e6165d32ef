package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/ebooks_storefront/internal/apiclient"
	"github.com/Skotchmaster/ebooks_storefront/internal/fakeapi"
	"github.com/Skotchmaster/ebooks_storefront/internal/models"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type stubSource struct {
	calls   atomic.Int32
	fail    atomic.Bool
	release chan struct{}
	books   []models.Book
}

func (s *stubSource) wait() {
	if s.release != nil {
		<-s.release
	}
}

func (s *stubSource) ListBooks(ctx context.Context, token string) ([]models.Book, error) {
	s.calls.Add(1)
	s.wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.fail.Load() {
		return nil, &apiclient.Error{Status: 503}
	}
	return s.books, nil
}

func (s *stubSource) GetBook(ctx context.Context, token string, id int) (*models.Book, error) {
	s.calls.Add(1)
	for _, b := range s.books {
		if b.ID == id {
			return &b, nil
		}
	}
	return nil, &apiclient.Error{Status: 404}
}

func (s *stubSource) SearchBooks(ctx context.Context, token, q string) ([]models.Book, error) {
	s.calls.Add(1)
	return s.books[:1], nil
}

func (s *stubSource) BooksByCategory(ctx context.Context, token string, id int) ([]models.Book, error) {
	s.calls.Add(1)
	return s.books[1:], nil
}

func (s *stubSource) ListCategories(ctx context.Context, token string) ([]models.Category, error) {
	s.calls.Add(1)
	return []models.Category{{ID: 1, Name: "Classics"}}, nil
}

func newStub() *stubSource {
	return &stubSource{books: []models.Book{
		{ID: 1, Title: "The Great Gatsby", Price: decimal.RequireFromString("12.99")},
		{ID: 2, Title: "Moby Dick", Price: decimal.RequireFromString("9.50")},
	}}
}

func newTestService(src Source) (*Service, *clock, *MemoryCache) {
	clk := &clock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	cache := NewMemoryCache()
	cache.now = clk.Now
	svc := NewService(src, cache, DefaultPolicy())
	svc.Now = clk.Now
	return svc, clk, cache
}

func TestListBooks_CachedWhileFresh(t *testing.T) {
	t.Parallel()

	src := newStub()
	svc, clk, _ := newTestService(src)
	ctx := context.Background()

	books, err := svc.ListBooks(ctx, "")
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "12.99", books[0].Price.StringFixed(2))

	clk.Advance(4 * time.Minute)
	_, err = svc.ListBooks(ctx, "")
	require.NoError(t, err)
	assert.EqualValues(t, 1, src.calls.Load())

	clk.Advance(2 * time.Minute)
	_, err = svc.ListBooks(ctx, "")
	require.NoError(t, err)
	assert.EqualValues(t, 2, src.calls.Load())
}

func TestListBooks_ServesStaleWhenRefetchFails(t *testing.T) {
	t.Parallel()

	src := newStub()
	svc, clk, _ := newTestService(src)
	ctx := context.Background()

	_, err := svc.ListBooks(ctx, "")
	require.NoError(t, err)

	src.fail.Store(true)
	clk.Advance(6 * time.Minute)
	books, err := svc.ListBooks(ctx, "")
	require.NoError(t, err)
	assert.Len(t, books, 2)

	clk.Advance(5 * time.Minute)
	_, err = svc.ListBooks(ctx, "")
	require.Error(t, err)
	assert.Equal(t, 503, apiclient.StatusOf(err))
}

func TestListBooks_ErrorWithoutCache(t *testing.T) {
	t.Parallel()

	src := newStub()
	src.fail.Store(true)
	svc, _, cache := newTestService(src)

	_, err := svc.ListBooks(context.Background(), "")
	require.Error(t, err)
	assert.Zero(t, cache.Len())
}

// countingCache counts lookups so a test can tell when callers reached the fetch.
type countingCache struct {
	*MemoryCache
	gets atomic.Int32
}

func (c *countingCache) Get(ctx context.Context, key string) (Entry, bool, error) {
	c.gets.Add(1)
	return c.MemoryCache.Get(ctx, key)
}

func TestListBooks_ConcurrentCallersShareOneFetch(t *testing.T) {
	t.Parallel()

	src := newStub()
	src.release = make(chan struct{})
	svc, _, mem := newTestService(src)
	cache := &countingCache{MemoryCache: mem}
	svc.Cache = cache

	const callers = 5
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			books, err := svc.ListBooks(context.Background(), "")
			assert.NoError(t, err)
			assert.Len(t, books, 2)
		}()
	}
	require.Eventually(t, func() bool { return cache.gets.Load() == callers }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(src.release)
	wg.Wait()

	assert.EqualValues(t, 1, src.calls.Load())
}

func TestListBooks_CancelledCallerDoesNotFailOthers(t *testing.T) {
	t.Parallel()

	src := newStub()
	src.release = make(chan struct{})
	svc, _, cache := newTestService(src)
	counted := &countingCache{MemoryCache: cache}
	svc.Cache = counted

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := svc.ListBooks(ctx, "")
		first <- err
	}()
	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, time.Millisecond)

	second := make(chan error, 1)
	go func() {
		books, err := svc.ListBooks(context.Background(), "")
		if err == nil && len(books) != 2 {
			err = errors.New("unexpected listing")
		}
		second <- err
	}()
	require.Eventually(t, func() bool { return counted.gets.Load() == 2 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	cancel()
	select {
	case err := <-first:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller still waiting")
	}

	close(src.release)
	require.NoError(t, <-second)
	assert.EqualValues(t, 1, src.calls.Load())

	// the detached fetch filled the cache
	_, err := svc.ListBooks(context.Background(), "")
	require.NoError(t, err)
	assert.EqualValues(t, 1, src.calls.Load())
}

func TestListBooks_FetchTimeout(t *testing.T) {
	t.Parallel()

	src := newStub()
	src.release = make(chan struct{})
	svc, _, _ := newTestService(src)
	svc.FetchTimeout = 10 * time.Millisecond

	go func() {
		time.Sleep(50 * time.Millisecond)
		close(src.release)
	}()
	_, err := svc.ListBooks(context.Background(), "")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSearch_BlankQuerySkipsRemote(t *testing.T) {
	t.Parallel()

	src := newStub()
	svc, _, _ := newTestService(src)

	for _, q := range []string{"", "   ", "\t"} {
		books, err := svc.Search(context.Background(), "", q)
		require.NoError(t, err)
		assert.NotNil(t, books)
		assert.Empty(t, books)
	}
	assert.Zero(t, src.calls.Load())
}

func TestSearch_ShorterStaleWindow(t *testing.T) {
	t.Parallel()

	src := newStub()
	svc, clk, _ := newTestService(src)
	ctx := context.Background()

	_, err := svc.Search(ctx, "", "gatsby")
	require.NoError(t, err)
	clk.Advance(90 * time.Second)
	_, err = svc.Search(ctx, "", " gatsby ")
	require.NoError(t, err)
	assert.EqualValues(t, 1, src.calls.Load())

	clk.Advance(time.Minute)
	_, err = svc.Search(ctx, "", "gatsby")
	require.NoError(t, err)
	assert.EqualValues(t, 2, src.calls.Load())
}

type stubSearcher struct {
	indexed []models.Book
	err     error
}

func (s *stubSearcher) Index(ctx context.Context, books []models.Book) error {
	s.indexed = books
	return nil
}

func (s *stubSearcher) Search(ctx context.Context, q string) ([]models.Book, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.indexed, nil
}

func TestSearch_IndexFirstThenRemoteFallback(t *testing.T) {
	t.Parallel()

	src := newStub()
	svc, _, _ := newTestService(src)
	idx := &stubSearcher{}
	svc.Searcher = idx
	ctx := context.Background()

	_, err := svc.ListBooks(ctx, "")
	require.NoError(t, err)
	require.Len(t, idx.indexed, 2)

	books, err := svc.Search(ctx, "", "anything")
	require.NoError(t, err)
	assert.Len(t, books, 2)
	assert.EqualValues(t, 1, src.calls.Load())

	idx.err = errors.New("es down")
	books, err = svc.Search(ctx, "", "other")
	require.NoError(t, err)
	assert.Len(t, books, 1)
	assert.EqualValues(t, 2, src.calls.Load())
}

func TestGetBook_NotFound(t *testing.T) {
	t.Parallel()

	api := fakeapi.New()
	t.Cleanup(api.Close)
	svc, _, _ := newTestService(apiclient.NewClient(api.BaseURL(), time.Second))

	_, err := svc.GetBook(context.Background(), "", 404)
	require.ErrorIs(t, err, ErrNotFound)

	book, err := svc.GetBook(context.Background(), "", 1)
	require.NoError(t, err)
	assert.Equal(t, "The Great Gatsby", book.Title)
}

func TestByCategoryAndCategories(t *testing.T) {
	t.Parallel()

	src := newStub()
	svc, _, _ := newTestService(src)
	ctx := context.Background()

	books, err := svc.ByCategory(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, 2, books[0].ID)

	cats, err := svc.ListCategories(ctx, "")
	require.NoError(t, err)
	assert.Len(t, cats, 1)
}

func TestInvalidate(t *testing.T) {
	t.Parallel()

	src := newStub()
	svc, _, cache := newTestService(src)
	ctx := context.Background()

	_, _ = svc.ListBooks(ctx, "")
	_, _ = svc.GetBook(ctx, "", 1)
	_, _ = svc.ListCategories(ctx, "")
	require.Equal(t, 3, cache.Len())

	require.NoError(t, svc.Invalidate(ctx, "books:"))
	assert.Equal(t, 1, cache.Len())

	_, _ = svc.ListBooks(ctx, "")
	assert.EqualValues(t, 4, src.calls.Load())
}

func TestMemoryCache_Expiry(t *testing.T) {
	t.Parallel()

	clk := &clock{now: time.Unix(0, 0)}
	c := NewMemoryCache()
	c.now = clk.Now
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", Entry{Data: []byte(`1`)}, time.Minute))
	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	clk.Advance(time.Minute)
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInvalidateBook_IsExact(t *testing.T) {
	t.Parallel()

	src := newStub()
	src.books = append(src.books, models.Book{ID: 10, Title: "Ten"})
	svc, _, cache := newTestService(src)
	ctx := context.Background()

	_, _ = svc.ListBooks(ctx, "")
	_, _ = svc.GetBook(ctx, "", 1)
	_, _ = svc.GetBook(ctx, "", 10)
	require.Equal(t, 3, cache.Len())

	require.NoError(t, svc.InvalidateBook(ctx, 1))
	assert.Equal(t, 1, cache.Len())
	_, ok, _ := cache.Get(ctx, "books:id:10")
	assert.True(t, ok)
}
