// Package session implements the PIN lock: a correct PIN buys a signed
// token that stays valid for the lock timeout.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const issuer = "tally"

var (
	ErrInvalidPIN   = errors.New("invalid PIN")
	ErrInvalidToken = errors.New("invalid or expired session")
)

type Service struct {
	pinHash []byte
	secret  []byte
	ttl     time.Duration
	now     func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService builds a lock for the bcrypt pinHash. An empty hash disables
// the lock: Enabled reports false and the HTTP layer lets everything through.
func NewService(pinHash, secret string, ttl time.Duration, opts ...Option) *Service {
	s := &Service{
		pinHash: []byte(pinHash),
		secret:  []byte(secret),
		ttl:     ttl,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Service) Enabled() bool {
	return s != nil && len(s.pinHash) > 0
}

// Unlock checks the PIN and returns a session token with its expiry.
func (s *Service) Unlock(pin string) (string, time.Time, error) {
	if err := bcrypt.CompareHashAndPassword(s.pinHash, []byte(pin)); err != nil {
		return "", time.Time{}, ErrInvalidPIN
	}

	now := s.now()
	expires := now.Add(s.ttl)

	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing session token: %w", err)
	}

	return token, expires, nil
}

// Verify accepts tokens issued by Unlock that have not expired.
func (s *Service) Verify(token string) error {
	parser := jwt.NewParser(
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)

	_, err := parser.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	return nil
}

// HashPIN produces the value expected in PIN_HASH.
func HashPIN(pin string) (string, error) {
	if len(pin) < 4 {
		return "", errors.New("PIN must have at least 4 digits")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing PIN: %w", err)
	}

	return string(hash), nil
}
