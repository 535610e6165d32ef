package csrf

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEcho() *echo.Echo {
	e := echo.New()
	e.Use(Middleware(DefaultConfig()))
	ok := func(c echo.Context) error { return c.String(http.StatusOK, Token(c)) }
	e.GET("/api/v1/cart", ok)
	e.POST("/api/v1/cart", ok)
	e.POST("/health/ready", ok)
	return e
}

func TestSafeMethodIssuesToken(t *testing.T) {
	t.Parallel()

	e := newEcho()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	tok := rec.Header().Get("X-CSRF-Token")
	assert.NotEmpty(t, tok)
	assert.Equal(t, tok, rec.Body.String())

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "XSRF-TOKEN", cookies[0].Name)
	assert.Equal(t, tok, cookies[0].Value)
}

func TestUnsafeMethod(t *testing.T) {
	t.Parallel()

	e := newEcho()

	post := func(header, origin string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/cart", nil)
		req.Host = "shop.example"
		req.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: "abc"})
		if header != "" {
			req.Header.Set("X-CSRF-Token", header)
		}
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, post("abc", "http://shop.example"))
	assert.Equal(t, http.StatusForbidden, post("abd", "http://shop.example"))
	assert.Equal(t, http.StatusForbidden, post("", "http://shop.example"))
	assert.Equal(t, http.StatusForbidden, post("abc", "http://evil.example"))
	assert.Equal(t, http.StatusForbidden, post("abc", ""))
}

func TestSkipPrefixes(t *testing.T) {
	t.Parallel()

	e := newEcho()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}
