package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	domaintypes "yumsg/internal/domain/types"
)

// NewAEAD constructs the cipher.AEAD named by alg over key. Content
// message encryption itself is out of scope for this module;
// this exists so ChatKeyRing.Symmetric is provably usable the moment a
// handshake establishes it, and so tests can round-trip a message
// under the negotiated algorithm the way the seed scenarios expect.
func NewAEAD(alg domaintypes.SymmetricAlgorithm, key []byte) (cipher.AEAD, error) {
	switch alg {
	case domaintypes.SymmetricAES256GCM:
		if len(key) != 32 {
			return nil, fmt.Errorf("%s key: want 32 bytes, got %d", alg, len(key))
		}
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, fmt.Errorf("aes cipher: %w", err)
		}
		return cipher.NewGCM(block)
	case domaintypes.SymmetricChaCha20Poly1305:
		return chacha20poly1305.New(key)
	default:
		return nil, fmt.Errorf("symmetric algorithm %q has no AEAD backend", alg)
	}
}
