package auth

import (
	"crypto/rand"
	"math/big"
)

// credentialAlphabet omits characters that are easy to confuse (0/O, 1/I/L).
const credentialAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	AccessCodeLength      = 16
	BookingPasswordLength = 8
	SecretLength          = 12
)

// RandomString returns n characters drawn uniformly from the credential alphabet.
func RandomString(n int) (string, error) {
	limit := big.NewInt(int64(len(credentialAlphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		out[i] = credentialAlphabet[idx.Int64()]
	}
	return string(out), nil
}

// NewAccessCode returns a reservation access code.
func NewAccessCode() (string, error) {
	return RandomString(AccessCodeLength)
}

// NewBookingPassword returns a one-time booking password in plaintext.
func NewBookingPassword() (string, error) {
	return RandomString(BookingPasswordLength)
}

// NewSecret returns a generated connection secret.
func NewSecret() (string, error) {
	return RandomString(SecretLength)
}
