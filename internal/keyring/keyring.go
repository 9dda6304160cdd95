// Package keyring implements lifecycle operations over a chat's
// in-memory key material (the ChatKeyRing state machine:
// empty -> has-keypair -> has-peer-key -> established). The ring's
// state predicates (HasKeypair, HasPeerKey, IsComplete) live on the
// type itself in internal/domain/types; the operations that need the
// crypto package — generation, completion, and wiping — live here
// instead, since Go methods can only be declared in the type's own
// package and types must not import crypto.
package keyring

import (
	"fmt"

	"yumsg/internal/crypto"
	domaintypes "yumsg/internal/domain/types"
)

// GenerateKeypair creates a fresh KEM keypair for the ring's algorithm
// triple and stores it as the own public/private halves.
func GenerateKeypair(ring *domaintypes.ChatKeyRing) error {
	pub, priv, err := crypto.GenerateKEMKeypair(ring.Algorithms.KEM)
	if err != nil {
		return fmt.Errorf("generate keypair: %w", err)
	}
	ring.OwnPublic = pub
	ring.OwnPrivate = priv
	return nil
}

// SetPeerKey records the peer's public KEM key on the ring.
func SetPeerKey(ring *domaintypes.ChatKeyRing, peerPublic []byte) {
	ring.PeerPublic = append([]byte(nil), peerPublic...)
}

// Complete derives the ring's symmetric key from the two KEM secrets
// and stores it, completing the ring.
func Complete(ring *domaintypes.ChatKeyRing, secretA, secretB []byte) error {
	symmetric, err := crypto.DeriveSymmetric(secretA, secretB, ring.Algorithms.Symmetric)
	if err != nil {
		return fmt.Errorf("complete ring: %w", err)
	}
	ring.Symmetric = symmetric
	return nil
}

// Fingerprint computes the ring's fingerprint from its own and peer
// public keys. Valid once HasPeerKey is true.
func Fingerprint(ring domaintypes.ChatKeyRing) string {
	return crypto.Fingerprint(ring.OwnPublic, ring.PeerPublic, ring.Algorithms.Symmetric)
}

// Wipe zeroizes OwnPrivate, OwnPublic and PeerPublic in place and sets
// them to nil. Symmetric and the algorithm triple are left untouched,
// so a ring returned by Cleaned keeps its symmetric key. Call exactly
// once, at the INITIALIZING -> ESTABLISHED or INITIALIZING -> FAILED
// transition.
func Wipe(ring *domaintypes.ChatKeyRing) {
	crypto.Zeroize(ring.OwnPrivate)
	crypto.Zeroize(ring.OwnPublic)
	crypto.Zeroize(ring.PeerPublic)
	ring.OwnPrivate = nil
	ring.OwnPublic = nil
	ring.PeerPublic = nil
}

// Cleaned returns the post-establishment ring: only the symmetric key
// and algorithm triple survive. Callers must Wipe the original ring's
// private fields before or after
// calling this; Cleaned does not mutate its argument.
func Cleaned(ring domaintypes.ChatKeyRing) domaintypes.ChatKeyRing {
	return domaintypes.ChatKeyRing{
		Algorithms: ring.Algorithms,
		Symmetric:  ring.Symmetric,
	}
}
