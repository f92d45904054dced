package sea

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptThenDecryptSelfRoundTrips(t *testing.T) {
	pair, err := Pair()
	require.NoError(t, err)

	enc, err := Encrypt(map[string]any{"secret": "value"}, pair, nil)
	require.NoError(t, err)

	out, err := Decrypt(enc, pair, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"secret": "value"}, out)
}

func TestEncryptThenDecryptBetweenTwoPairsViaECDH(t *testing.T) {
	alice, err := Pair()
	require.NoError(t, err)
	bob, err := Pair()
	require.NoError(t, err)

	enc, err := Encrypt("hello bob", alice, &bob.EPub)
	require.NoError(t, err)

	out, err := Decrypt(enc, bob, &alice.EPub)
	require.NoError(t, err)
	assert.Equal(t, "hello bob", out)
}

func TestDecryptFailsWithWrongRecipient(t *testing.T) {
	alice, err := Pair()
	require.NoError(t, err)
	bob, err := Pair()
	require.NoError(t, err)
	eve, err := Pair()
	require.NoError(t, err)

	enc, err := Encrypt("for bob only", alice, &bob.EPub)
	require.NoError(t, err)

	_, err = Decrypt(enc, eve, &alice.EPub)
	require.Error(t, err)
}

func TestEncryptProducesFreshIVAndSaltEachCall(t *testing.T) {
	pair, err := Pair()
	require.NoError(t, err)

	enc1, err := Encrypt("same plaintext", pair, nil)
	require.NoError(t, err)
	enc2, err := Encrypt("same plaintext", pair, nil)
	require.NoError(t, err)

	assert.NotEqual(t, enc1.IV, enc2.IV)
	assert.NotEqual(t, enc1.S, enc2.S)
	assert.NotEqual(t, enc1.CT, enc2.CT)
}

func TestEncryptRequiresEPriv(t *testing.T) {
	pair := &KeyPair{}
	_, err := Encrypt("data", pair, nil)
	require.Error(t, err)
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	pair, err := Pair()
	require.NoError(t, err)

	enc, err := Encrypt("data", pair, nil)
	require.NoError(t, err)
	enc.CT = b64.EncodeToString([]byte("not the original ciphertext bytes"))

	_, err = Decrypt(enc, pair, nil)
	require.Error(t, err)
}
