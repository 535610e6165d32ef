package tokens

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidSession = errors.New("invalid session token")

type SessionClaims struct {
	jwt.RegisteredClaims
}

// SignSession issues the HS256 cookie value that identifies a storefront session.
func SignSession(sessionID string, secret []byte, ttl time.Duration, now time.Time) (string, error) {
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func SessionIDFromToken(tokenStr string, secret []byte) (string, error) {
	claims, err := ParseSession(tokenStr, secret)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ParseSession verifies a cookie value and returns its claims.
func ParseSession(tokenStr string, secret []byte) (SessionClaims, error) {
	var claims SessionClaims
	tkn, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return SessionClaims{}, errors.Join(ErrInvalidSession, err)
	}
	if !tkn.Valid || claims.Subject == "" {
		return SessionClaims{}, ErrInvalidSession
	}
	return claims, nil
}
