package secret

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	digits   = "0123456789"
	alphanum = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	minPasswordLength = 8
	maxPasswordLength = 72 // bcrypt input limit
)

// decoyHash is a valid bcrypt hash of a random throwaway password. Verify
// runs against it when no real hash is available so that lookups for unknown
// emails cost the same as a failed password check.
const decoyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Provider wraps password hashing, password policy checks and random string
// generation behind one collaborator.
type Provider struct {
	cost int
}

func NewProvider() *Provider {
	return &Provider{cost: bcrypt.DefaultCost}
}

// Hash returns the bcrypt hash of password.
func (p *Provider) Hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// Verify reports whether password matches hash. The comparison is
// constant-time (bcrypt). When hash is empty a decoy hash is compared
// instead so the caller's timing does not reveal whether the account exists.
func (p *Provider) Verify(password, hash string) bool {
	if hash == "" {
		_ = bcrypt.CompareHashAndPassword([]byte(decoyHash), []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidatePolicy checks password against the account password policy.
// The returned error carries the human-readable detail.
func (p *Provider) ValidatePolicy(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	if len(password) > maxPasswordLength {
		return fmt.Errorf("password must be at most %d characters", maxPasswordLength)
	}
	numeric := true
	for _, r := range password {
		if !unicode.IsDigit(r) {
			numeric = false
			break
		}
	}
	if numeric {
		return fmt.Errorf("password cannot be entirely numeric")
	}
	return nil
}

// RandomDigits returns a string of length crypto-random decimal digits.
// Leading zeros and repeats are allowed.
func (p *Provider) RandomDigits(length int) (string, error) {
	return randomFrom(digits, length)
}

// RandomToken returns a string of length crypto-random alphanumerics,
// used for per-user token keys.
func (p *Provider) RandomToken(length int) (string, error) {
	return randomFrom(alphanum, length)
}

func randomFrom(charset string, length int) (string, error) {
	b := make([]byte, length)
	max := big.NewInt(int64(len(charset)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("random string: %w", err)
		}
		b[i] = charset[idx.Int64()]
	}
	return string(b), nil
}
