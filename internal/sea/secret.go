package sea

import (
	"crypto/ecdh"

	"github.com/gundb/gun-go/internal/gunerr"
)

// Secret derives the ECDH shared secret between ourEPriv/ourEPub and
// theirEPub, returning it base64-encoded (spec §5 SEA.secret; matches
// original_source src/sea/secret.rs — Gun.js uses the raw shared x
// coordinate as the secret, which is exactly what crypto/ecdh's ECDH()
// returns for P-256).
func Secret(theirEPub, ourEPriv, ourEPub string) (string, error) {
	theirPoint, err := uncompressedFromXY(theirEPub)
	if err != nil {
		return "", err
	}
	theirKey, err := ecdh.P256().NewPublicKey(theirPoint)
	if err != nil {
		return "", gunerr.Wrap(gunerr.KindCrypto, "sea.Secret", err)
	}

	privBytes, err := b64.DecodeString(ourEPriv)
	if err != nil {
		return "", gunerr.Wrap(gunerr.KindCrypto, "sea.Secret", err)
	}
	ourKey, err := ecdh.P256().NewPrivateKey(privBytes)
	if err != nil {
		return "", gunerr.Wrap(gunerr.KindCrypto, "sea.Secret", err)
	}

	shared, err := ourKey.ECDH(theirKey)
	if err != nil {
		return "", gunerr.Wrap(gunerr.KindCrypto, "sea.Secret", err)
	}
	return b64.EncodeToString(shared), nil
}
