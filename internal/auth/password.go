package auth

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/labbook/internal/config"
)

// DefaultBcryptCost applies when AUTH_BCRYPT_COST is unset or outside the
// range bcrypt accepts.
const DefaultBcryptCost = 12

// PasswordHasher hashes account and booking passwords with the bcrypt cost
// taken from the auth configuration.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher builds a hasher from cfg.BcryptCost.
func NewPasswordHasher(cfg config.AuthConfig) *PasswordHasher {
	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &PasswordHasher{cost: cost}
}

// Cost is the effective bcrypt work factor.
func (h *PasswordHasher) Cost() int {
	return h.cost
}

// Hash returns the bcrypt hash of a plaintext password.
func (h *PasswordHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Compare returns nil when plain matches hashed.
func (h *PasswordHasher) Compare(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
