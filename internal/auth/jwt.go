// Package auth provides session tokens, the GitHub OAuth exchange, login
// state nonces and the bearer-token middleware.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. Browser visits /auth/github/login → redirected to GitHub with a one-time state nonce
//  2. GitHub calls back /auth/github/callback with a code and the same state
//  3. Server exchanges the code for a GitHub access token, then fetches the GitHub profile
//  4. Server creates or refreshes the local user and issues a signed session token (JWT)
//  5. Browser is redirected to the frontend with ?token=...; the frontend keeps it and
//     sends it back as "Authorization: Bearer <token>" on protected calls
//
// Tokens are stateless: nothing is stored server-side, so logging out only
// means the client forgets the token. A leaked token stays valid until it expires.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "devsnap"

var (
	// ErrSigning means a token could not be produced, usually because the
	// secret is not configured.
	ErrSigning = errors.New("auth: cannot sign token")

	// ErrInvalidToken covers malformed tokens, bad signatures, wrong algorithms
	// and missing claims.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrExpiredToken means the signature checked out but the expiry has passed.
	ErrExpiredToken = errors.New("auth: token expired")
)

// Claims is the session token payload.
//
// Subject ("sub") carries the internal user ID. Email and GitHubID mirror the
// user at issue time and are informational only: authorisation decisions use
// the subject and a fresh database read.
type Claims struct {
	Email    *string `json:"email"`
	GitHubID *string `json:"github_id"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies session tokens with an HMAC secret.
type TokenService struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a TokenService.
//
// algorithm must name an HMAC method (HS256, HS384, HS512). An empty secret is
// accepted so the server can start without auth configured; Issue then fails
// with ErrSigning and Verify rejects everything.
func NewTokenService(secret, algorithm string, ttl time.Duration) (*TokenService, error) {
	if secret != "" && len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}

	method, ok := jwt.GetSigningMethod(strings.ToUpper(algorithm)).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("auth: unsupported signing algorithm %q", algorithm)
	}
	if ttl <= 0 {
		return nil, errors.New("auth: token lifetime must be positive")
	}

	return &TokenService{
		secret: []byte(secret),
		method: method,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// TTL returns the default token lifetime.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs claims with an expiry of now + ttl. A ttl of zero (or less)
// uses the configured default lifetime.
//
// IssuedAt, ExpiresAt and Issuer are always set here; whatever the caller put
// in those fields is overwritten.
func (s *TokenService) Issue(c Claims, ttl time.Duration) (string, error) {
	if len(s.secret) == 0 {
		return "", fmt.Errorf("%w: secret is not configured", ErrSigning)
	}
	if c.Subject == "" {
		return "", fmt.Errorf("%w: subject is required", ErrSigning)
	}
	if ttl <= 0 {
		ttl = s.ttl
	}

	now := s.now()
	c.Issuer = tokenIssuer
	c.IssuedAt = jwt.NewNumericDate(now)
	c.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	signed, err := jwt.NewWithClaims(s.method, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigning, err)
	}
	return signed, nil
}

// Verify checks the signature, algorithm, issuer and expiry of tokenStr and
// returns its claims.
//
// Errors wrap ErrExpiredToken when only the expiry is wrong and
// ErrInvalidToken otherwise. Both mean 401 to the client; the distinction is
// for logs.
//
// ALGORITHM CONFUSION:
// WithValidMethods pins the accepted "alg" header to the configured method, so
// a token claiming "none" or an RSA algorithm is rejected before any key is used.
func (s *TokenService) Verify(tokenStr string) (*Claims, error) {
	if len(s.secret) == 0 {
		return nil, fmt.Errorf("%w: secret is not configured", ErrInvalidToken)
	}

	token, err := jwt.ParseWithClaims(
		tokenStr,
		&Claims{},
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrExpiredToken, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: unexpected claims", ErrInvalidToken)
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", ErrInvalidToken)
	}
	return c, nil
}

// DecodeUnchecked parses tokenStr WITHOUT verifying its signature or expiry.
// It returns nil on any parse failure.
//
// Only use the result for display or logging (e.g. "when does this expire?").
// Never authorise anything with it: anyone can forge an unsigned payload.
func (s *TokenService) DecodeUnchecked(tokenStr string) *Claims {
	c := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, c); err != nil {
		return nil
	}
	return c
}

// Expiration returns the token's expiry as written in the payload.
// ok is false when the token cannot be decoded or has no "exp".
func (s *TokenService) Expiration(tokenStr string) (time.Time, bool) {
	c := s.DecodeUnchecked(tokenStr)
	if c == nil || c.ExpiresAt == nil {
		return time.Time{}, false
	}
	return c.ExpiresAt.Time, true
}

// IsExpired reports whether tokenStr's expiry has passed. Undecodable tokens
// and tokens without an expiry count as expired.
func (s *TokenService) IsExpired(tokenStr string) bool {
	exp, ok := s.Expiration(tokenStr)
	if !ok {
		return true
	}
	return !s.now().Before(exp)
}
