package handshake

import (
	"context"

	"github.com/sirupsen/logrus"

	"yumsg/internal/crypto"
	domaintypes "yumsg/internal/domain/types"
	"yumsg/internal/protocolerr"
)

// PeerKeyResolver looks up a peer's organization signature public key
// by peer id, out of band from the handshake itself. The organization
// signature key implies a directory this module does not own — the
// in-scope KEM keypair in ChatKeyRing is unrelated to this identity
// key.
type PeerKeyResolver interface {
	SigningPublicKey(peerID string) ([]byte, bool)
}

// SetSigningIdentity attaches this engine's own signing keypair and a
// resolver for peers' signing public keys, enabling SignFingerprint and
// HandleInitSignature. A nil resolver leaves the signature leg
// unusable; callers that never exercise organization-mediated identity
// assertions may skip this.
func (e *Engine) SetSigningIdentity(alg domaintypes.SignatureAlgorithm, ownPrivate []byte, resolver PeerKeyResolver) {
	e.signAlg = alg
	e.ownSigningKey = ownPrivate
	e.peerKeys = resolver
}

// SignFingerprint produces the optional CHAT_INIT_SIGNATURE payload
// for an already-ESTABLISHED chat: a detached signature over the
// chat's fingerprint using this engine's organization signing key.
func (e *Engine) SignFingerprint(chat domaintypes.Chat) (domaintypes.HandshakeMessage, error) {
	if len(e.ownSigningKey) == 0 {
		return domaintypes.HandshakeMessage{}, protocolerr.New(protocolerr.InvalidSignature, chat.ID)
	}
	sig, err := crypto.Sign(e.signAlg, e.ownSigningKey, []byte(chat.Fingerprint))
	if err != nil {
		return domaintypes.HandshakeMessage{}, withChatUUID(chat.ID, err)
	}
	return domaintypes.HandshakeMessage{
		Type:     domaintypes.MsgChatInitSignature,
		ChatUUID: chat.ID,
		UserSig:  sig,
	}, nil
}

// HandleInitSignature verifies a peer's organization-identity
// signature over the chat's fingerprint. Verification
// failure is logged only — the session is already cryptographically
// established, so this does not tear anything down.
func (e *Engine) HandleInitSignature(_ context.Context, fromPeer string, msg domaintypes.HandshakeMessage) error {
	if msg.ChatUUID == "" || len(msg.UserSig) == 0 {
		e.log.WithField("chat_uuid", msg.ChatUUID).Warn("init signature missing required fields, dropping")
		return nil
	}
	if e.peerKeys == nil {
		e.log.WithField("chat_uuid", msg.ChatUUID).Warn("no peer signing key resolver configured, dropping init signature")
		return nil
	}

	chat, found, err := e.store.Get(msg.ChatUUID)
	if err != nil {
		return protocolerr.Wrap(protocolerr.StoreFailure, msg.ChatUUID, err)
	}
	if !found || !chat.IsEstablished() {
		e.log.WithField("chat_uuid", msg.ChatUUID).Info("init signature for unestablished or unknown chat, dropping")
		return nil
	}

	pub, ok := e.peerKeys.SigningPublicKey(fromPeer)
	if !ok {
		e.log.WithFields(logrus.Fields{"chat_uuid": msg.ChatUUID, "peer_id": fromPeer}).
			Warn("no signing public key on file for peer, cannot verify init signature")
		return nil
	}

	if err := crypto.Verify(chat.Keys.Algorithms.Signature, pub, []byte(chat.Fingerprint), msg.UserSig); err != nil {
		e.log.WithField("chat_uuid", msg.ChatUUID).WithError(err).
			Warn("peer identity signature failed verification; session remains established")
		return nil
	}

	chat.PeerCrypto.Verified = true
	if err := e.store.Save(chat); err != nil {
		return protocolerr.Wrap(protocolerr.StoreFailure, chat.ID, err)
	}
	return nil
}
