package secrets_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ttalvitie/retrojsvice/internal/secrets"
)

func TestCSRFTokenShapeAndFreshness(t *testing.T) {
	g := secrets.NewGenerator()

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		tok := g.CSRFToken()
		require.Len(t, tok, 20)
		for _, c := range tok {
			require.Regexp(t, `[0-9A-Za-z]`, string(c))
		}
		require.False(t, seen[tok], "tokens must not repeat across 100 draws")
		seen[tok] = true
	}
}

func TestSnakeOilCipherKeyShape(t *testing.T) {
	g := secrets.NewGenerator()
	for i := 0; i < 20; i++ {
		key := g.SnakeOilCipherKey()
		require.GreaterOrEqual(t, len(key), 5000)
		require.LessOrEqual(t, len(key), 6000)
	}
}

func TestEqualConstantTime(t *testing.T) {
	require.True(t, secrets.Equal("abc", "abc"))
	require.False(t, secrets.Equal("abc", "abd"))
	require.False(t, secrets.Equal("abc", "abcd"))
	require.True(t, secrets.Equal("", ""))
}
