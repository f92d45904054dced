package sea

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"

	"golang.org/x/crypto/pbkdf2"

	"github.com/gundb/gun-go/internal/gunerr"
)

// Encrypted is the {ct, iv, s} envelope SEA.encrypt produces (spec §5,
// original_source src/sea/encrypt.rs).
type Encrypted struct {
	CT string `json:"ct"`
	IV string `json:"iv"`
	S  string `json:"s"`
}

const (
	pbkdf2Iterations = 100_000
	aesKeyLen        = 32
)

// Encrypt serializes data to JSON and encrypts it with AES-256-GCM. When
// theirEPub is set, the AES key is derived via ECDH(pair, theirEPub); when
// nil, pair.EPriv is used directly (self-encryption, matching Gun.js's
// behavior when no recipient is given).
func Encrypt(data any, pair *KeyPair, theirEPub *string) (*Encrypted, error) {
	msg, err := json.Marshal(data)
	if err != nil {
		return nil, gunerr.Wrap(gunerr.KindEncryption, "sea.Encrypt", err)
	}

	salt := make([]byte, 9)
	iv := make([]byte, 12)
	if _, err := rand.Read(salt); err != nil {
		return nil, gunerr.Wrap(gunerr.KindEncryption, "sea.Encrypt", err)
	}
	if _, err := rand.Read(iv); err != nil {
		return nil, gunerr.Wrap(gunerr.KindEncryption, "sea.Encrypt", err)
	}

	secret, err := resolveSecret(pair, theirEPub)
	if err != nil {
		return nil, gunerr.Wrap(gunerr.KindEncryption, "sea.Encrypt", err)
	}
	key := deriveAESKey(secret, salt)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, gunerr.Wrap(gunerr.KindEncryption, "sea.Encrypt", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, gunerr.Wrap(gunerr.KindEncryption, "sea.Encrypt", err)
	}

	ct := gcm.Seal(nil, iv, msg, nil)
	return &Encrypted{
		CT: b64.EncodeToString(ct),
		IV: b64.EncodeToString(iv),
		S:  b64.EncodeToString(salt),
	}, nil
}

func resolveSecret(pair *KeyPair, theirEPub *string) (string, error) {
	if pair.EPriv == "" {
		return "", gunerr.New(gunerr.KindEncryption, "sea.resolveSecret", "missing epriv key")
	}
	if theirEPub == nil {
		return pair.EPriv, nil
	}
	if pair.EPub == "" {
		return "", gunerr.New(gunerr.KindEncryption, "sea.resolveSecret", "missing epub key")
	}
	return Secret(*theirEPub, pair.EPriv, pair.EPub)
}

// deriveAESKey stretches secret with PBKDF2-HMAC-SHA256 (100k iterations,
// matching Gun.js), salted per-message (original_source
// src/sea/encrypt.rs derive_aes_key).
func deriveAESKey(secret string, salt []byte) []byte {
	secretBytes, err := b64.DecodeString(secret)
	if err != nil {
		secretBytes = []byte(secret)
	}
	return pbkdf2.Key(secretBytes, salt, pbkdf2Iterations, aesKeyLen, sha256.New)
}
