package service

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrWeakToken    = errors.New("token does not meet requirements")
	ErrInvalidHash  = errors.New("invalid token hash")
)

const minTokenLength = 16

func validateTokenStrength(token string) error {
	if len(token) < minTokenLength {
		return fmt.Errorf("%w: must be at least %d characters", ErrWeakToken, minTokenLength)
	}

	var hasLetter, hasDigit bool
	for _, r := range token {
		switch {
		case unicode.IsSpace(r):
			return fmt.Errorf("%w: must not contain whitespace", ErrWeakToken)
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	var missing []string
	if !hasLetter {
		missing = append(missing, "letter")
	}
	if !hasDigit {
		missing = append(missing, "digit")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: must contain at least one %s", ErrWeakToken, strings.Join(missing, " and one "))
	}
	return nil
}

// HashToken returns the bcrypt hash to configure as API_TOKEN_HASH.
func HashToken(token string) (string, error) {
	if err := validateTokenStrength(token); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// AuthService checks bearer tokens against a single bcrypt hash. A zero
// AuthService (no hash configured) accepts every request.
type AuthService struct {
	hash []byte

	mu       sync.RWMutex
	verified map[[sha256.Size]byte]struct{}
}

func NewAuthService(tokenHash string) (*AuthService, error) {
	s := &AuthService{verified: make(map[[sha256.Size]byte]struct{})}
	if tokenHash == "" {
		return s, nil
	}
	if _, err := bcrypt.Cost([]byte(tokenHash)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidHash, err)
	}
	s.hash = []byte(tokenHash)
	return s, nil
}

func (s *AuthService) Enabled() bool {
	return len(s.hash) > 0
}

// ValidateToken compares token with the configured hash. Accepted tokens are
// remembered by digest so bcrypt runs once per distinct token.
func (s *AuthService) ValidateToken(token string) error {
	if !s.Enabled() {
		return nil
	}
	if token == "" {
		return ErrInvalidToken
	}

	digest := sha256.Sum256([]byte(token))
	s.mu.RLock()
	_, ok := s.verified[digest]
	s.mu.RUnlock()
	if ok {
		return nil
	}

	if err := bcrypt.CompareHashAndPassword(s.hash, []byte(token)); err != nil {
		return ErrInvalidToken
	}

	s.mu.Lock()
	s.verified[digest] = struct{}{}
	s.mu.Unlock()
	return nil
}
