package auth

import (
	"encoding/base64"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var urlSafe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func TestRandomTokenGenerator_Generate(t *testing.T) {
	t.Parallel()
	g := NewRandomTokenGenerator()

	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		raw, err := g.Generate()
		require.NoError(t, err)
		require.Len(t, raw, 43)
		require.Regexp(t, urlSafe, raw)

		b, err := base64.RawURLEncoding.DecodeString(raw)
		require.NoError(t, err)
		require.Len(t, b, RefreshTokenBytes)

		_, dup := seen[raw]
		require.False(t, dup, "duplicate token generated")
		seen[raw] = struct{}{}
	}
}

func TestHashToken(t *testing.T) {
	t.Parallel()

	a := HashToken("token-a")
	assert.Equal(t, a, HashToken("token-a"))
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, HashToken("token-b"))
	assert.NotContains(t, a, "token-a")
}

func TestVerifyLink(t *testing.T) {
	assert.Equal(t, "http://localhost:8080/api/v1/users/verify-email/a.b_c",
		VerifyLink("http://localhost:8080/api/v1/users/verify-email/", "a.b_c"))
	assert.Equal(t, "http://x/a%2Fb", VerifyLink("http://x", "a/b"))
}
