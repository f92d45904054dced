package sea

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/json"

	"github.com/gundb/gun-go/internal/gunerr"
)

// Decrypt reverses Encrypt: derives the same AES key (via ECDH if
// theirEPub is given, else pair.EPriv directly) and decrypts enc.CT with
// AES-256-GCM, returning the JSON-decoded plaintext.
func Decrypt(enc *Encrypted, pair *KeyPair, theirEPub *string) (any, error) {
	ct, err := b64.DecodeString(enc.CT)
	if err != nil {
		return nil, gunerr.Wrap(gunerr.KindDecryption, "sea.Decrypt", err)
	}
	iv, err := b64.DecodeString(enc.IV)
	if err != nil {
		return nil, gunerr.Wrap(gunerr.KindDecryption, "sea.Decrypt", err)
	}
	salt, err := b64.DecodeString(enc.S)
	if err != nil {
		return nil, gunerr.Wrap(gunerr.KindDecryption, "sea.Decrypt", err)
	}

	secret, err := resolveSecret(pair, theirEPub)
	if err != nil {
		return nil, gunerr.Wrap(gunerr.KindDecryption, "sea.Decrypt", err)
	}
	key := deriveAESKey(secret, salt)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, gunerr.Wrap(gunerr.KindDecryption, "sea.Decrypt", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, gunerr.Wrap(gunerr.KindDecryption, "sea.Decrypt", err)
	}

	plain, err := gcm.Open(nil, iv, ct, nil)
	if err != nil {
		return nil, gunerr.Wrap(gunerr.KindDecryption, "sea.Decrypt", err)
	}

	var out any
	if err := json.Unmarshal(plain, &out); err != nil {
		return nil, gunerr.Wrap(gunerr.KindDecryption, "sea.Decrypt", err)
	}
	return out, nil
}
