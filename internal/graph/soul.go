package graph

import (
	"crypto/rand"
	"math/big"
	"strconv"
)

const soulAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// NewSoul mints a soul: base36(state) followed by length random alphanumeric
// characters (spec §3: "usually <base36(state)><random>").
func NewSoul(clock *Clock, length int) string {
	state := clock.Next()
	return strconv.FormatInt(int64(state), 36) + RandomID(length)
}

// RandomID returns a length-character random alphanumeric string, used for
// soul suffixes and DAM message ids (spec §6: 9-char message ids).
func RandomID(length int) string {
	out := make([]byte, length)
	max := big.NewInt(int64(len(soulAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand failure is not recoverable; fall back to a fixed
			// index rather than panicking across a library boundary.
			out[i] = soulAlphabet[0]
			continue
		}
		out[i] = soulAlphabet[n.Int64()]
	}
	return string(out)
}
