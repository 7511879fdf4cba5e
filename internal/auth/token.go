package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// RefreshTokenBytes gives 256 bits of entropy per refresh secret.
const RefreshTokenBytes = 32

type RandomTokenGenerator struct {
	n int
}

func NewRandomTokenGenerator() *RandomTokenGenerator {
	return &RandomTokenGenerator{n: RefreshTokenBytes}
}

// Generate returns a URL-safe, unpadded base64 string drawn from crypto/rand.
func (g *RandomTokenGenerator) Generate() (string, error) {
	return GenerateRawToken(g.n)
}

func GenerateRawToken(nBytes int) (string, error) {
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashToken is the deterministic at-rest digest for refresh secrets.
// It must stay unsalted: the store looks records up by equality on it.
// Passwords go through BcryptHasher instead.
func HashToken(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}
