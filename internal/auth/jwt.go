// Package auth provides password hashing and JWT issuance and verification
// for the authentication service.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenKind distinguishes access tokens from refresh tokens. The kind is
// carried in the "type" claim and checked on every verification so a refresh
// token can never be used where an access token is expected, or vice versa.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed or signature invalid")
	ErrTokenWrongKind = errors.New("token kind mismatch")
)

// Claims is the JWT payload for both token kinds. Role is only populated on
// access tokens; refresh tokens carry identity and kind alone.
type Claims struct {
	Role      string    `json:"role,omitempty"`
	TokenType TokenKind `json:"type"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies HS256 tokens with a shared secret.
// Timestamps are UTC and verification applies no clock leeway.
type TokenCodec struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewTokenCodec(secret, issuer string) *TokenCodec {
	return NewTokenCodecWithClock(secret, issuer, time.Now)
}

// NewTokenCodecWithClock is NewTokenCodec with an injectable clock. Tests use
// it to issue and verify tokens at fixed instants.
func NewTokenCodecWithClock(secret, issuer string, now func() time.Time) *TokenCodec {
	return &TokenCodec{
		secret: []byte(secret),
		issuer: issuer,
		now:    now,
	}
}

// Now returns the codec's current time. Callers that report expiry distances
// use it so their arithmetic follows the same clock as verification.
func (c *TokenCodec) Now() time.Time {
	return c.now()
}

// Issue signs a token of the given kind for the subject. The role claim is
// only embedded on access tokens.
func (c *TokenCodec) Issue(subject, role string, kind TokenKind, ttl time.Duration) (string, error) {
	now := c.now().UTC()
	claims := Claims{
		TokenType: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if kind == TokenKindAccess {
		claims.Role = role
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, nil
}

// Verify parses and validates the token and checks that its kind matches
// expectedKind. Errors are classified coarsely: ErrTokenExpired for expiry,
// ErrTokenWrongKind for a kind mismatch, and ErrTokenMalformed for everything
// else including bad signatures and unexpected signing methods.
func (c *TokenCodec) Verify(token string, expectedKind TokenKind) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	},
		jwt.WithTimeFunc(c.now),
		jwt.WithIssuer(c.issuer),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}
	if !parsed.Valid {
		return nil, ErrTokenMalformed
	}
	if claims.TokenType != expectedKind {
		return nil, ErrTokenWrongKind
	}
	return claims, nil
}

// DecodeUnverified extracts claims without validating the signature or
// expiry. It exists for diagnostics such as the validate-token endpoint's
// expiry reporting and must never be used to authenticate a request.
func (c *TokenCodec) DecodeUnverified(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}
