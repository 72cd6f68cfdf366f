// Package token mints and verifies the signed session token. Verification is
// a pure HMAC check over the token itself; it never consults the user store.
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MaxAge is how long a minted token stays valid.
const MaxAge = 30 * 24 * time.Hour

// Payload is the identity embedded in a session token.
// PasswordChangedAt is captured at issuance time and compared against the
// live user record to detect password rotation after issue.
type Payload struct {
	UserID            string `json:"userId"`
	Email             string `json:"email"`
	Name              string `json:"name"`
	Role              string `json:"role"`
	PasswordChangedAt string `json:"passwordChangedAt"`
}

// Claims defines the structure of the JWT claims.
type Claims struct {
	Payload
	jwt.RegisteredClaims
}

// Codec signs and verifies session tokens with a process-wide secret.
type Codec struct {
	secret []byte
	maxAge time.Duration

	now func() time.Time
}

// NewCodec builds a codec for the given process-wide secret. maxAge of zero
// selects the 30 day default.
func NewCodec(secret string, maxAge time.Duration) *Codec {
	if maxAge <= 0 {
		maxAge = MaxAge
	}
	return &Codec{
		secret: []byte(secret),
		maxAge: maxAge,
		now:    time.Now,
	}
}

// Create signs payload with an absolute expiry of now + MaxAge.
func (c *Codec) Create(payload Payload) (string, error) {
	claims := Claims{
		Payload: payload,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(c.now().Add(c.maxAge)),
			IssuedAt:  jwt.NewNumericDate(c.now()),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(c.secret)
}

// Verify decodes tokenString and returns its payload, or nil if the token is
// malformed, carries a bad signature, uses an unexpected signing method, or
// has expired. It never returns an error: every failure mode reads the same
// to callers.
func (c *Codec) Verify(tokenString string) *Payload {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return c.now() }))

	if err != nil || !tok.Valid {
		return nil
	}

	p := claims.Payload
	return &p
}
