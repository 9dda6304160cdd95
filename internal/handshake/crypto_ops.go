package handshake

import (
	"errors"

	"yumsg/internal/crypto"
	domaintypes "yumsg/internal/domain/types"
	"yumsg/internal/protocolerr"
)

// kemEncapsulate and kemDecapsulate pass straight through to
// internal/crypto's KEM operations and return its errors unchanged;
// callers reattach the chat_uuid with withChatUUID (internal/crypto has
// no notion of chat_uuid — it is a pure cryptography layer, one level
// below the handshake state machine).
func kemEncapsulate(alg domaintypes.KEMAlgorithm, peerPublic []byte) (capsule, secret []byte, err error) {
	capsule, secret, err = crypto.Encapsulate(alg, peerPublic)
	return capsule, secret, err
}

func kemDecapsulate(alg domaintypes.KEMAlgorithm, ownPrivate, capsule []byte) ([]byte, error) {
	return crypto.Decapsulate(alg, ownPrivate, capsule)
}

// withChatUUID reattaches chatID to a protocolerr.Error raised by a
// lower layer that has no chat context of its own.
func withChatUUID(chatID string, err error) error {
	if err == nil {
		return nil
	}
	var pe *protocolerr.Error
	if errors.As(err, &pe) {
		return protocolerr.Wrap(pe.Kind, chatID, pe.Cause)
	}
	return err
}

// cryptoZeroizeAll zeroizes every buffer passed to it.
func cryptoZeroizeAll(buffers ...[]byte) {
	for _, b := range buffers {
		crypto.Zeroize(b)
	}
}
