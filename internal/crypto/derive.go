package crypto

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	domaintypes "yumsg/internal/domain/types"
)

const symmetricKeySize = 32

const derivationLabel = "yumsg/chat-key/v1"

// sortSecrets returns a and b in a deterministic order so that callers
// on either side of a handshake feed HKDF the same input regardless of
// which one is "self" and which is "peer".
func sortSecrets(a, b []byte) (first, second []byte) {
	if bytes.Compare(a, b) > 0 {
		return b, a
	}
	return a, b
}

// DeriveSymmetric derives the chat's symmetric key from the two KEM
// shared secrets. Order-invariant: DeriveSymmetric(a, b, alg) equals
// DeriveSymmetric(b, a, alg) for all inputs.
func DeriveSymmetric(secretA, secretB []byte, alg domaintypes.SymmetricAlgorithm) ([]byte, error) {
	first, second := sortSecrets(secretA, secretB)

	ikm := make([]byte, 0, len(first)+len(second)+len(alg))
	ikm = append(ikm, first...)
	ikm = append(ikm, second...)
	ikm = append(ikm, []byte(alg)...)

	reader := hkdf.New(sha256.New, ikm, nil, []byte(derivationLabel))
	key := make([]byte, symmetricKeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("derive symmetric key: %w", err)
	}
	return key, nil
}
