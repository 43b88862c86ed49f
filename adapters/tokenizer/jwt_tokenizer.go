package tokenizer

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/panyu/myblog/core"
	"github.com/panyu/myblog/ports"
)

// MinSecretLength is the shortest HMAC secret accepted at startup
const MinSecretLength = 32

// DefaultAccessTTL matches the blog's week-long login sessions
const DefaultAccessTTL = 7 * 24 * time.Hour

// JWTTokenizer implements the Tokenizer interface using HS256 JWTs.
// It holds no mutable state after construction.
type JWTTokenizer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// Option configures a JWTTokenizer
type Option func(*JWTTokenizer)

// WithClock replaces time.Now for both minting and validation
func WithClock(now func() time.Time) Option {
	return func(j *JWTTokenizer) {
		j.now = now
	}
}

// NewJWTTokenizer creates a new JWT tokenizer. It fails when the secret is
// missing or shorter than MinSecretLength.
func NewJWTTokenizer(secret []byte, ttl time.Duration, opts ...Option) (*JWTTokenizer, error) {
	if len(secret) < MinSecretLength {
		return nil, core.ErrMissingSecret
	}
	if ttl <= 0 {
		ttl = DefaultAccessTTL
	}

	j := &JWTTokenizer{
		secret: append([]byte(nil), secret...),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}

	j.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(j.now),
	)
	return j, nil
}

var _ ports.Tokenizer = (*JWTTokenizer)(nil)

// TTL returns the configured token lifetime
func (j *JWTTokenizer) TTL() time.Duration {
	return j.ttl
}

// Mint signs a new access token for subject
func (j *JWTTokenizer) Mint(subject string) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("empty subject: %w", core.ErrInvalidToken)
	}

	now := j.now()
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedToken, err := token.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return signedToken, nil
}

// Verify checks signature and expiry and returns the subject
func (j *JWTTokenizer) Verify(tokenStr string) (string, error) {
	if tokenStr == "" {
		return "", core.ErrInvalidToken
	}

	claims := &AccessClaims{}
	token, err := j.parser.ParseWithClaims(tokenStr, claims, j.keyFunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", core.ErrTokenExpired
		}
		return "", core.ErrInvalidToken
	}

	if !token.Valid || claims.Subject == "" {
		return "", core.ErrInvalidToken
	}

	return claims.Subject, nil
}

// ExpiresAt decodes the exp claim without verifying the signature
func (j *JWTTokenizer) ExpiresAt(tokenStr string) (time.Time, error) {
	claims := &AccessClaims{}
	if _, _, err := j.parser.ParseUnverified(tokenStr, claims); err != nil {
		return time.Time{}, core.ErrInvalidToken
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, core.ErrInvalidToken
	}
	return claims.ExpiresAt.Time, nil
}

func (j *JWTTokenizer) keyFunc(token *jwt.Token) (interface{}, error) {
	// Validate the signing method
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return j.secret, nil
}
