package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheck(t *testing.T) {
	hash, err := Hash("correct horse")
	require.NoError(t, err)

	assert.NotEqual(t, "correct horse", hash)
	assert.True(t, Check(hash, "correct horse"))
	assert.False(t, Check(hash, "wrong horse"))

	again, err := Hash("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again, "hashes must be salted")
}

func TestCheckEmptyHash(t *testing.T) {
	assert.False(t, Check("", ""))
	assert.False(t, Check("", "anything"))
}
