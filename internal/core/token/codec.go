// Package token implements the HS256 access-token codec. Tokens carry the
// subject username and a role snapshot; verifiers must treat the role as a
// hint and re-resolve the identity against the credential store.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/raptiye/blog-api/internal/core/domain"
)

var (
	ErrSignatureInvalid = errors.New("token signature invalid")
	ErrMalformed        = errors.New("token malformed")
	ErrExpired          = errors.New("token expired")
)

const defaultTTL = time.Hour

// Codec issues and verifies tokens signed with a single shared secret.
type Codec struct {
	secret []byte
	ttl    time.Duration
}

func NewCodec(secret string, ttl time.Duration) *Codec {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Codec{secret: []byte(secret), ttl: ttl}
}

func (c *Codec) TTL() time.Duration { return c.ttl }

// Issue builds and signs a token for subject with the given role, valid from
// now until now+ttl.
func (c *Codec) Issue(subject, role string, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"iat":  now.Unix(),
		"exp":  now.Add(c.ttl).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(c.secret)
}

// Verify checks raw against the shared secret and returns its claims.
// The signature is verified before any claim is consulted; claim shape is
// checked before expiry, so the error classes are strictly ordered:
// ErrSignatureInvalid, then ErrMalformed, then ErrExpired.
func (c *Codec) Verify(raw string, now time.Time) (*domain.Claims, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return c.secret, nil
	}, jwt.WithoutClaimsValidation())
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, ErrSignatureInvalid
	default:
		return nil, ErrMalformed
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return nil, ErrMalformed
	}
	role, ok := claims["role"].(string)
	if !ok || role == "" {
		return nil, ErrMalformed
	}
	iat, ok := numericClaim(claims, "iat")
	if !ok {
		return nil, ErrMalformed
	}
	exp, ok := numericClaim(claims, "exp")
	if !ok {
		return nil, ErrMalformed
	}
	if !now.Before(time.Unix(exp, 0)) {
		return nil, ErrExpired
	}

	return &domain.Claims{
		Subject:   sub,
		Role:      role,
		IssuedAt:  time.Unix(iat, 0).UTC(),
		ExpiresAt: time.Unix(exp, 0).UTC(),
	}, nil
}

// Subject verifies raw and returns its subject claim.
func (c *Codec) Subject(raw string, now time.Time) (string, error) {
	claims, err := c.Verify(raw, now)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// numericClaim reads an epoch-seconds claim. JSON numbers decode as float64;
// tokens built in-process may carry int64.
func numericClaim(claims jwt.MapClaims, key string) (int64, bool) {
	switch v := claims[key].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	default:
		return 0, false
	}
}
