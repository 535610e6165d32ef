package tokens

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// BearerExpiry reads the exp claim of an API bearer token without verifying
// its signature. Opaque tokens report ok=false.
func BearerExpiry(tokenStr string) (exp time.Time, ok bool) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

func BearerExpired(tokenStr string, now time.Time) bool {
	exp, ok := BearerExpiry(tokenStr)
	return ok && !now.Before(exp)
}
