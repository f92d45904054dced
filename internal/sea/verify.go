package sea

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"encoding/json"
	"math/big"

	"github.com/gundb/gun-go/internal/gunerr"
)

// Verify checks signed's signature against pubKey (Gun.js "x.y" format)
// and returns the verified, JSON-decoded message data.
func Verify(signed *Signed, pubKey string) (any, error) {
	x, y, err := decodeXY(pubKey)
	if err != nil {
		return nil, gunerr.Wrap(gunerr.KindInvalidData, "sea.Verify", err)
	}
	pub := &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}

	sigBytes, err := b64.DecodeString(signed.S)
	if err != nil || len(sigBytes) != 64 {
		return nil, gunerr.New(gunerr.KindVerificationFailed, "sea.Verify", "malformed signature")
	}
	r := new(big.Int).SetBytes(sigBytes[:32])
	s := new(big.Int).SetBytes(sigBytes[32:])

	digest := sha256.Sum256([]byte(signed.M))
	if !ecdsa.Verify(pub, digest[:], r, s) {
		return nil, gunerr.New(gunerr.KindVerificationFailed, "sea.Verify", "signature does not match")
	}

	var out any
	if err := json.Unmarshal([]byte(signed.M), &out); err != nil {
		return nil, gunerr.Wrap(gunerr.KindInvalidData, "sea.Verify", err)
	}
	return out, nil
}
