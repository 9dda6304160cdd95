package crypto

import (
	"crypto/sha256"
	"encoding/hex"

	domaintypes "yumsg/internal/domain/types"
)

const fingerprintHexLength = 32

// Fingerprint computes the 32-hex-character stable chat identifier
// from both peers' public KEM keys and the negotiated symmetric
// algorithm tag. Order-invariant in the two keys, so both
// peers compute the same string regardless of who initiated.
func Fingerprint(ownPublic, peerPublic []byte, symmetric domaintypes.SymmetricAlgorithm) string {
	first, second := sortSecrets(ownPublic, peerPublic)

	buf := make([]byte, 0, len(first)+len(second)+len(symmetric))
	buf = append(buf, first...)
	buf = append(buf, second...)
	buf = append(buf, []byte(symmetric)...)

	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:])[:fingerprintHexLength]
}

// FormatFingerprint renders a raw fingerprint string grouped by 4
// characters with spaces for human comparison.
func FormatFingerprint(fp string) string {
	var out []byte
	for i := 0; i < len(fp); i += 4 {
		end := i + 4
		if end > len(fp) {
			end = len(fp)
		}
		if i > 0 {
			out = append(out, ' ')
		}
		out = append(out, fp[i:end]...)
	}
	return string(out)
}
