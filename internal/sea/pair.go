// Package sea implements Gun's Security, Encryption, Authorization layer:
// ECDSA P-256 signatures, ECDH P-256 key agreement, AES-256-GCM
// encryption, PBKDF2 user authentication, and certificate-based access
// control. Grounded on original_source/src/sea/*.rs (itself a port of
// Gun.js's sea/ directory), translated from the p256/aes-gcm/pbkdf2 Rust
// crates to Go's standard crypto/ecdsa, crypto/ecdh, crypto/aes and
// golang.org/x/crypto/pbkdf2 — the same pbkdf2 import the teacher's
// internal/security package already depends on.
package sea

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"math/big"
	"strings"

	"github.com/gundb/gun-go/internal/gunerr"
)

// b64 is Gun.js's wire encoding for key material and signatures:
// unpadded, URL-safe base64.
var b64 = base64.RawURLEncoding

// KeyPair holds both the ECDSA signing pair and the ECDH encryption pair a
// Gun user needs. Pub/Priv sign and verify; EPub/EPriv agree on shared
// secrets for SEA.encrypt/decrypt. Matches Gun.js's {pub, priv, epub,
// epriv} shape (spec §5).
type KeyPair struct {
	Pub   string
	Priv  string
	EPub  string
	EPriv string
}

// Pair generates a fresh signing + encryption key pair (spec §5 SEA.pair).
func Pair() (*KeyPair, error) {
	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, gunerr.Wrap(gunerr.KindCrypto, "sea.Pair", err)
	}
	pub := encodeXY(signKey.PublicKey.X, signKey.PublicKey.Y)
	priv := b64.EncodeToString(signKey.D.FillBytes(make([]byte, 32)))

	ecdhKey, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, gunerr.Wrap(gunerr.KindCrypto, "sea.Pair", err)
	}
	epub := encodeUncompressed(ecdhKey.PublicKey().Bytes())
	epriv := b64.EncodeToString(ecdhKey.Bytes())

	return &KeyPair{Pub: pub, Priv: priv, EPub: epub, EPriv: epriv}, nil
}

// encodeXY renders an ECDSA/ECDH public point as Gun.js's "x.y" base64 pair.
func encodeXY(x, y *big.Int) string {
	xb := x.FillBytes(make([]byte, 32))
	yb := y.FillBytes(make([]byte, 32))
	return b64.EncodeToString(xb) + "." + b64.EncodeToString(yb)
}

// encodeUncompressed splits an uncompressed SEC1 point (0x04 || x || y)
// into Gun.js's "x.y" base64 pair.
func encodeUncompressed(point []byte) string {
	if len(point) != 65 || point[0] != 0x04 {
		return ""
	}
	return b64.EncodeToString(point[1:33]) + "." + b64.EncodeToString(point[33:65])
}

// decodeXY parses Gun.js's "x.y" base64 format back into coordinates.
func decodeXY(key string) (x, y *big.Int, err error) {
	parts := strings.SplitN(key, ".", 2)
	if len(parts) != 2 {
		return nil, nil, gunerr.New(gunerr.KindCrypto, "sea.decodeXY", "malformed key, expected x.y")
	}
	xb, err := b64.DecodeString(parts[0])
	if err != nil {
		return nil, nil, gunerr.Wrap(gunerr.KindCrypto, "sea.decodeXY", err)
	}
	yb, err := b64.DecodeString(parts[1])
	if err != nil {
		return nil, nil, gunerr.Wrap(gunerr.KindCrypto, "sea.decodeXY", err)
	}
	return new(big.Int).SetBytes(xb), new(big.Int).SetBytes(yb), nil
}

// uncompressedFromXY rebuilds a SEC1 uncompressed point from x.y coordinates.
func uncompressedFromXY(key string) ([]byte, error) {
	x, y, err := decodeXY(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 65)
	out[0] = 0x04
	x.FillBytes(out[1:33])
	y.FillBytes(out[33:65])
	return out, nil
}
