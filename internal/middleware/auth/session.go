package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/ebooks_storefront/internal/session"
	"github.com/Skotchmaster/ebooks_storefront/pkg/logging"
	"github.com/Skotchmaster/ebooks_storefront/pkg/tokens"
)

type SessionOptions struct {
	Secret     []byte
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// Sessions loads the visitor's session for the duration of the request and
// writes it back afterwards. Requests of one session run one at a time.
//
// The cookie is (re)issued with the response when the session is new, when its
// id was rotated by a sign-in, or when less than half of its lifetime is left.
func Sessions(svc *session.Service, opts SessionOptions) echo.MiddlewareFunc {
	if opts.CookieName == "" {
		opts.CookieName = "sid"
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			l := logging.FromContext(ctx).With("middleware", "session")

			id, refresh := "", true
			if ck, err := c.Cookie(opts.CookieName); err == nil && ck.Value != "" {
				if claims, err := tokens.ParseSession(ck.Value, opts.Secret); err == nil {
					id = claims.Subject
					refresh = claims.ExpiresAt.Sub(svc.Now()) < opts.TTL/2
				} else {
					l.Info("session_cookie_rejected", "error", err)
				}
			}

			sess, release, err := svc.Acquire(ctx, id)
			if err != nil {
				l.Error("session_load_failed", "status", 500, "error", err)
				return echo.NewHTTPError(http.StatusInternalServerError, "session unavailable")
			}
			defer release()

			c.Response().Before(func() {
				if sess.ID == id && !refresh {
					return
				}
				if err := setCookie(c, opts, sess.ID, svc.Now()); err != nil {
					l.Error("session_cookie_failed", "session_id", sess.ID, "error", err)
				}
			})

			svc.Restore(ctx, sess)
			c.SetRequest(c.Request().WithContext(session.IntoContext(ctx, sess)))

			herr := next(c)

			if err := svc.Save(context.WithoutCancel(ctx), sess); err != nil {
				l.Error("session_save_failed", "session_id", sess.ID, "error", err)
			}
			return herr
		}
	}
}

func setCookie(c echo.Context, opts SessionOptions, id string, now time.Time) error {
	val, err := tokens.SignSession(id, opts.Secret, opts.TTL, now)
	if err != nil {
		return err
	}
	c.SetCookie(&http.Cookie{
		Name:     opts.CookieName,
		Value:    val,
		Path:     "/",
		Expires:  now.Add(opts.TTL),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Current returns the request's session. Handlers behind Sessions always get one.
func Current(c echo.Context) *session.Session {
	return session.FromContext(c.Request().Context())
}
