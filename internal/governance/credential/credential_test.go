package credential

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestVerifyPlainSecret(t *testing.T) {
	v := New("top-secret")
	assert.True(t, v.Verify("top-secret"))
	assert.False(t, v.Verify("top-secret "))
	assert.False(t, v.Verify(""))
}

func TestVerifyBcryptSecret(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("top-secret"), bcrypt.MinCost)
	require.NoError(t, err)

	v := New(string(hash))
	assert.True(t, v.Verify("top-secret"))
	assert.False(t, v.Verify("other"))
}

func TestUnsetSecretRejectsEverything(t *testing.T) {
	v := New("  ")
	assert.False(t, v.Verify(""))
	assert.False(t, v.Verify("anything"))
}
