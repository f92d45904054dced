package sea

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"

	"golang.org/x/crypto/pbkdf2"

	"github.com/gundb/gun-go/internal/gunerr"
)

// UserRecord is what's stored in the graph for a registered user: the
// public half of their key pair plus their password verifier, never the
// password or private keys themselves (spec §5 SEA.user; grounded on
// original_source src/sea/user.rs UserAuth, extended with a persisted
// salt+hash since the Rust original left full auth storage as future
// work).
type UserRecord struct {
	Alias string
	Pub   string
	EPub  string
	Salt  string
	Hash  string
}

// CreateUser mints a fresh key pair for alias, hashes password with a
// random salt, and returns both the record to persist and the full
// KeyPair the caller needs to sign/decrypt as this user.
func CreateUser(alias, password string) (*UserRecord, *KeyPair, error) {
	pair, err := Pair()
	if err != nil {
		return nil, nil, err
	}
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, nil, gunerr.Wrap(gunerr.KindCrypto, "sea.CreateUser", err)
	}
	hash := hashPassword(password, salt)

	rec := &UserRecord{
		Alias: alias,
		Pub:   pair.Pub,
		EPub:  pair.EPub,
		Salt:  b64.EncodeToString(salt),
		Hash:  hash,
	}
	return rec, pair, nil
}

// VerifyPassword checks password against rec's stored salt+hash in
// constant time.
func VerifyPassword(rec *UserRecord, password string) (bool, error) {
	salt, err := b64.DecodeString(rec.Salt)
	if err != nil {
		return false, gunerr.Wrap(gunerr.KindCrypto, "sea.VerifyPassword", err)
	}
	computed := hashPassword(password, salt)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(rec.Hash)) == 1, nil
}

// hashPassword derives a PBKDF2-HMAC-SHA256 hash (100k iterations,
// matching Gun.js's SEA.work default and original_source
// src/sea/user.rs hash_password).
func hashPassword(password string, salt []byte) string {
	hash := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, 32, sha256.New)
	return b64.EncodeToString(hash)
}
