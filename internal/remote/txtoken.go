package remote

import (
	"strings"
	"time"
)

// Alphabet without the look-alikes 0, O, I and l, as the backend expects.
const txAlphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// TxToken derives the per-request X-TxToken nonce from the current unix-milli
// timestamp: base-58 digits least significant first, left-padded with '1' to
// at least eight characters.
func TxToken(now time.Time) string {
	n := now.UnixMilli()
	var b strings.Builder
	for n > 0 {
		b.WriteByte(txAlphabet[n%int64(len(txAlphabet))])
		n /= int64(len(txAlphabet))
	}
	token := b.String()
	if pad := 8 - len(token); pad > 0 {
		return strings.Repeat("1", pad) + token
	}
	return token
}
