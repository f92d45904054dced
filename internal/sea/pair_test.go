package sea

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairProducesNonEmptyFields(t *testing.T) {
	pair, err := Pair()
	require.NoError(t, err)

	assert.NotEmpty(t, pair.Pub)
	assert.NotEmpty(t, pair.Priv)
	assert.NotEmpty(t, pair.EPub)
	assert.NotEmpty(t, pair.EPriv)
}

func TestPairProducesDistinctKeysEachCall(t *testing.T) {
	p1, err := Pair()
	require.NoError(t, err)
	p2, err := Pair()
	require.NoError(t, err)

	assert.NotEqual(t, p1.Pub, p2.Pub)
	assert.NotEqual(t, p1.EPub, p2.EPub)
}

func TestPairPubKeyRoundTripsThroughDecodeXY(t *testing.T) {
	pair, err := Pair()
	require.NoError(t, err)

	x, y, err := decodeXY(pair.Pub)
	require.NoError(t, err)
	assert.Equal(t, pair.Pub, encodeXY(x, y))
}

func TestPairEPubRoundTripsThroughUncompressedPoint(t *testing.T) {
	pair, err := Pair()
	require.NoError(t, err)

	point, err := uncompressedFromXY(pair.EPub)
	require.NoError(t, err)
	assert.Equal(t, pair.EPub, encodeUncompressed(point))
}

func TestDecodeXYRejectsMalformedKey(t *testing.T) {
	_, _, err := decodeXY("not-a-valid-key")
	require.Error(t, err)
}
