package sea

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"math/big"

	"github.com/gundb/gun-go/internal/gunerr"
)

// Signed is the {m, s} envelope SEA.sign produces: the JSON-serialized
// message and its base64 ECDSA signature (spec §5, original_source
// src/sea/sign.rs).
type Signed struct {
	M string `json:"m"`
	S string `json:"s"`
}

// Sign serializes data to canonical JSON and signs it with pair's private
// key (ECDSA P-256, SHA-256 digest).
func Sign(data any, pair *KeyPair) (*Signed, error) {
	message, err := json.Marshal(data)
	if err != nil {
		return nil, gunerr.Wrap(gunerr.KindCrypto, "sea.Sign", err)
	}

	privBytes, err := b64.DecodeString(pair.Priv)
	if err != nil || len(privBytes) != 32 {
		return nil, gunerr.New(gunerr.KindCrypto, "sea.Sign", "invalid private key")
	}

	priv := new(ecdsa.PrivateKey)
	priv.Curve = elliptic.P256()
	priv.D = new(big.Int).SetBytes(privBytes)
	priv.PublicKey.X, priv.PublicKey.Y = priv.Curve.ScalarBaseMult(privBytes)

	digest := sha256.Sum256(message)
	r, s, err := ecdsa.Sign(rand.Reader, priv, digest[:])
	if err != nil {
		return nil, gunerr.Wrap(gunerr.KindCrypto, "sea.Sign", err)
	}

	sigBytes := make([]byte, 64)
	r.FillBytes(sigBytes[:32])
	s.FillBytes(sigBytes[32:])

	return &Signed{M: string(message), S: b64.EncodeToString(sigBytes)}, nil
}
