package platform

import (
	"crypto/rand"

	"github.com/google/uuid"
)

const shortIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
const shortIDLength = 10
const secretLength = 32

func NewID() string {
	return uuid.New().String()
}

func NewName(prefix string) string {
	return prefix + randomString(shortIDLength)
}

// NewSecret generates a per-tenant API secret.
func NewSecret() string {
	return randomString(secretLength)
}

func randomString(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand: " + err.Error())
	}
	for i := range b {
		b[i] = shortIDAlphabet[b[i]%byte(len(shortIDAlphabet))]
	}
	return string(b)
}
