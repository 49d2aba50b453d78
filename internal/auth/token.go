// Package auth issues the bearer tokens CMS sites present to the hook endpoints.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the lifetime of a site token when none is given.
const DefaultTTL = 365 * 24 * time.Hour

// ErrNoSite is returned when a token would carry no subject.
var ErrNoSite = errors.New("site name is required")

// IssueSiteToken creates an HS256 token whose subject is site. A ttl of zero
// or less means DefaultTTL.
func IssueSiteToken(secret, site string, ttl time.Duration, now time.Time) (string, error) {
	if site == "" {
		return "", ErrNoSite
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	claims := jwt.RegisteredClaims{
		Subject:   site,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
