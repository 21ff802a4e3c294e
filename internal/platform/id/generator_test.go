package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomGenerator_NewID(t *testing.T) {
	t.Parallel()

	g := NewRandomGenerator()
	a, err := g.NewID()
	require.NoError(t, err)
	b, err := g.NewID()
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}

func TestRandomGenerator_NewCode(t *testing.T) {
	t.Parallel()

	g := NewRandomGenerator()
	for i := 0; i < 50; i++ {
		code, err := g.NewCode(8)
		require.NoError(t, err)
		require.Len(t, code, 8)
		for _, r := range code {
			require.True(t, strings.ContainsRune(InviteAlphabet, r), "unexpected rune %q in %s", r, code)
		}
		assert.True(t, IsCode(code))
	}

	short, err := g.NewCode(2)
	require.NoError(t, err)
	assert.Len(t, short, minInviteCodeLength)
}

func TestIsCode(t *testing.T) {
	t.Parallel()

	assert.False(t, IsCode(""))
	assert.False(t, IsCode("ABC"))
	assert.False(t, IsCode("ABCD0EFG"), "zero is not in the alphabet")
	assert.False(t, IsCode("abcdefgh"), "codes are uppercase")
	assert.True(t, IsCode("K7QW9MZP"))
}
