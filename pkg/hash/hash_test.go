package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hashed, err := HashPassword("correct horse")
	require.NoError(t, err)

	assert.NotEqual(t, "correct horse", hashed)
	assert.True(t, CheckPasswordHash("correct horse", hashed))
	assert.False(t, CheckPasswordHash("battery staple", hashed))
	assert.False(t, CheckPasswordHash("correct horse", "not-a-bcrypt-hash"))
}
