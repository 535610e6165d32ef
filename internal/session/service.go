package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/ebooks_storefront/internal/apiclient"
	"github.com/Skotchmaster/ebooks_storefront/internal/models"
	"github.com/Skotchmaster/ebooks_storefront/internal/mykafka"
	"github.com/Skotchmaster/ebooks_storefront/pkg/logging"
	"github.com/Skotchmaster/ebooks_storefront/pkg/tokens"
)

// RejectedError is a well-formed request the remote API turned down. Message
// is meant for the visitor.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string { return e.Message }

type API interface {
	Login(ctx context.Context, req apiclient.LoginRequest) (*models.AuthResponse, error)
	Register(ctx context.Context, req apiclient.RegisterRequest) (*models.AuthResponse, error)
	Me(ctx context.Context, token string) (*models.User, error)
	UsernameExists(ctx context.Context, userName string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}

type Service struct {
	Repo   *GormRepo
	API    API
	Events mykafka.Publisher
	// RestoreInterval is how long a verified token is trusted before /auth/me
	// is asked again.
	RestoreInterval time.Duration
	Now             func() time.Time

	locks keyedMutex
}

func NewService(repo *GormRepo, api API, events mykafka.Publisher, restoreInterval time.Duration) *Service {
	if events == nil {
		events = mykafka.Noop{}
	}
	return &Service{Repo: repo, API: api, Events: events, RestoreInterval: restoreInterval, Now: time.Now}
}

func NewID() string { return uuid.NewString() }

// Acquire locks the session id for the caller and loads it. An unknown id
// yields an empty anonymous session under that id. release must be called
// once the request is done with the session.
func (s *Service) Acquire(ctx context.Context, id string) (sess *Session, release func(), err error) {
	if id == "" {
		id = NewID()
	}
	unlock := s.locks.Lock(id)

	sess, err = s.Repo.Load(ctx, id)
	switch {
	case errors.Is(err, ErrNotFound):
		sess = newSession(id, s.Now().UTC())
	case err != nil:
		unlock()
		return nil, nil, fmt.Errorf("load session: %w", err)
	}
	return sess, func() {
		for _, u := range sess.unlocks {
			u()
		}
		sess.unlocks = nil
		unlock()
	}, nil
}

// Save persists the session. Sessions that were never stored and hold nothing
// are skipped. A rotated session replaces its old row.
func (s *Service) Save(ctx context.Context, sess *Session) error {
	if sess.previousID != "" {
		if err := s.Repo.Replace(ctx, sess.previousID, sess); err != nil {
			return fmt.Errorf("save rotated session: %w", err)
		}
		sess.previousID = ""
		sess.persisted = true
		return nil
	}
	if !sess.persisted && sess.empty() {
		return nil
	}
	if err := s.Repo.Save(ctx, sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	sess.persisted = true
	return nil
}

// rotate moves sess to a fresh id, locked until the request's release, so a
// cookie issued before sign-in never reaches the signed-in session.
func (s *Service) rotate(sess *Session) {
	id := NewID()
	sess.unlocks = append(sess.unlocks, s.locks.Lock(id))
	if sess.previousID == "" {
		sess.previousID = sess.ID
	}
	sess.ID = id
}

// Restore re-checks the bearer token of an authenticated session. An expired
// token is dropped without asking the remote; otherwise /auth/me is consulted
// once per RestoreInterval and any failure signs the session out.
func (s *Service) Restore(ctx context.Context, sess *Session) {
	if sess.Token == "" {
		return
	}
	l := logging.FromContext(ctx).With("svc", "session.restore", "session_id", sess.ID)
	now := s.Now()

	if tokens.BearerExpired(sess.Token, now) {
		l.Info("token_expired")
		sess.Demote()
		return
	}
	if sess.User != nil && now.Sub(sess.VerifiedAt) < s.RestoreInterval {
		return
	}

	user, err := s.API.Me(ctx, sess.Token)
	if err != nil {
		l.Warn("restore_failed", "status", apiclient.StatusOf(err), "error", err)
		sess.Demote()
		return
	}
	sess.User = user
	sess.VerifiedAt = now
}

func (s *Service) SignIn(ctx context.Context, sess *Session, c Credentials) error {
	l := logging.FromContext(ctx).With("svc", "session.signin", "username", c.UserName)
	if err := validateCredentials(c); err != nil {
		return err
	}

	resp, err := s.API.Login(ctx, apiclient.LoginRequest{UserName: c.UserName, Password: c.Password})
	if err != nil {
		var apiErr *apiclient.Error
		if errors.As(err, &apiErr) && isCredentialStatus(apiErr.Status) {
			l.Warn("signin_failed", "status", apiErr.Status, "reason", apiErr.Message)
			msg := apiErr.Message
			if msg == "" {
				msg = "Invalid username or password"
			}
			return &RejectedError{Message: msg}
		}
		l.Error("signin_failed", "status", 502, "error", err)
		return fmt.Errorf("sign in: %w", err)
	}
	if err := s.accept(sess, resp, "Sign in failed"); err != nil {
		l.Warn("signin_failed", "reason", err.Error())
		return err
	}
	s.rotate(sess)

	s.publish(ctx, sess, mykafka.TypeUserSignedIn)
	l.Info("signin_successful")
	return nil
}

func (s *Service) SignUp(ctx context.Context, sess *Session, r Registration) error {
	l := logging.FromContext(ctx).With("svc", "session.signup", "username", r.UserName)

	errs := ValidateRegistration(r)
	s.checkAvailability(ctx, r, errs)
	if err := errs.Err(); err != nil {
		return err
	}

	resp, err := s.API.Register(ctx, apiclient.RegisterRequest{
		UserName:        r.UserName,
		Email:           r.Email,
		Password:        r.Password,
		ConfirmPassword: r.ConfirmPassword,
		FirstName:       r.FirstName,
		LastName:        r.LastName,
		PhoneNumber:     r.PhoneNumber,
	})
	if err != nil {
		var apiErr *apiclient.Error
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest {
			l.Warn("signup_failed", "status", apiErr.Status, "reason", apiErr.Message)
			return &RejectedError{Message: apiErr.Detail()}
		}
		l.Error("signup_failed", "status", 502, "error", err)
		return fmt.Errorf("sign up: %w", err)
	}
	if err := s.accept(sess, resp, "Registration failed"); err != nil {
		l.Warn("signup_failed", "reason", err.Error())
		return err
	}
	s.rotate(sess)

	s.publish(ctx, sess, mykafka.TypeUserSignedUp)
	l.Info("signup_successful")
	return nil
}

// SignOut forgets the credentials and empties the cart.
func (s *Service) SignOut(ctx context.Context, sess *Session) {
	wasAuthed := sess.Authenticated()
	userName := sess.UserName()
	sess.Demote()
	sess.Cart.Clear()
	if wasAuthed {
		ev := mykafka.NewEvent(mykafka.TypeUserSignOut, sess.ID, userName)
		if err := s.Events.PublishEvent(ctx, sess.ID, ev); err != nil {
			logging.FromContext(ctx).Warn("session_event_failed", "type", ev.Type, "error", err)
		}
	}
}

// Purge deletes sessions idle for longer than ttl.
func (s *Service) Purge(ctx context.Context, ttl time.Duration) (int64, error) {
	return s.Repo.DeleteIdle(ctx, s.Now().Add(-ttl))
}

func (s *Service) accept(sess *Session, resp *models.AuthResponse, fallback string) error {
	if !resp.Success || resp.Token == "" || resp.User == nil {
		msg := resp.Message
		if msg == "" {
			msg = fallback
		}
		return &RejectedError{Message: msg}
	}
	sess.Token = resp.Token
	sess.User = resp.User
	sess.VerifiedAt = s.Now()
	return nil
}

func (s *Service) publish(ctx context.Context, sess *Session, typ string) {
	ev := mykafka.NewEvent(typ, sess.ID, sess.UserName())
	if err := s.Events.PublishEvent(ctx, sess.ID, ev); err != nil {
		logging.FromContext(ctx).Warn("session_event_failed", "type", typ, "error", err)
	}
}

func isCredentialStatus(status int) bool {
	return status == http.StatusBadRequest || status == http.StatusUnauthorized || status == http.StatusNotFound
}
