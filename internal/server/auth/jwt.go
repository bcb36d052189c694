// Package auth issues and parses the two HS256 token kinds of the pipeline:
// single-use activation tokens carrying a pending-order id, and session
// tokens issued after activation carrying a user id. The audience claim
// keeps the two from being swapped.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/corrigo/corrigo/internal/common"
)

const (
	AudienceActivation = "activation"
	AudienceSession    = "session"
)

// Claims carries the standard registered claims; Subject holds the entity id
// the token is about (pending order or user, depending on audience).
type Claims struct {
	jwt.RegisteredClaims
}

// GenerateToken mints an HS256 token for the given subject and audience.
func GenerateToken(subject, audience string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken validates signature, expiry and audience, and returns the
// subject and expiry. Expired tokens map to ErrTokenExpired; everything else
// wrong with the token maps to ErrTokenInvalid.
func ParseToken(tokenString, audience string, secretKey []byte) (string, time.Time, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithAudience(audience), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", time.Time{}, common.ErrTokenExpired
		}
		return "", time.Time{}, common.ErrTokenInvalid
	}

	if !token.Valid || claims.Subject == "" {
		return "", time.Time{}, common.ErrTokenInvalid
	}

	var expires time.Time
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}

	return claims.Subject, expires, nil
}
