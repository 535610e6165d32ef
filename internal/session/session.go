// Package session keeps each visitor's authentication state and cart between
// requests. A session is anonymous until a sign-in or sign-up stores a bearer
// token and the user it belongs to.
package session

import (
	"context"
	"time"

	"github.com/Skotchmaster/ebooks_storefront/internal/cart"
	"github.com/Skotchmaster/ebooks_storefront/internal/models"
)

type State string

const (
	Anonymous     State = "anonymous"
	Authenticated State = "authenticated"
)

type Session struct {
	ID         string
	Token      string
	User       *models.User
	Cart       *cart.Cart
	VerifiedAt time.Time
	CreatedAt  time.Time

	persisted bool
	// previousID is the id the session was stored under before a rotation.
	previousID string
	unlocks    []func()
}

func newSession(id string, now time.Time) *Session {
	return &Session{ID: id, Cart: cart.New(), CreatedAt: now}
}

func (s *Session) Authenticated() bool {
	return s.Token != "" && s.User != nil
}

func (s *Session) State() State {
	if s.Authenticated() {
		return Authenticated
	}
	return Anonymous
}

func (s *Session) UserName() string {
	if s.User == nil {
		return ""
	}
	return s.User.UserName
}

// Demote drops the credentials. The cart stays.
func (s *Session) Demote() {
	s.Token = ""
	s.User = nil
	s.VerifiedAt = time.Time{}
}

func (s *Session) empty() bool {
	return s.Token == "" && s.User == nil && s.Cart.Empty()
}

type ctxKey struct{}

func IntoContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns nil when no session middleware ran.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(ctxKey{}).(*Session)
	return s
}
