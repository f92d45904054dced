package sea

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecretIsSymmetricBetweenTwoPairs(t *testing.T) {
	alice, err := Pair()
	require.NoError(t, err)
	bob, err := Pair()
	require.NoError(t, err)

	s1, err := Secret(bob.EPub, alice.EPriv, alice.EPub)
	require.NoError(t, err)
	s2, err := Secret(alice.EPub, bob.EPriv, bob.EPub)
	require.NoError(t, err)

	assert.Equal(t, s1, s2)
}

func TestSecretRejectsMalformedPeerKey(t *testing.T) {
	alice, err := Pair()
	require.NoError(t, err)

	_, err = Secret("not-a-valid-point", alice.EPriv, alice.EPub)
	require.Error(t, err)
}
