package types

// ChatKeyRing is the in-memory key material for one chat. Fields are
// present or absent depending on lifecycle stage (see HasKeypair,
// HasPeerKey, IsComplete below); OwnPrivate must never be populated
// once a chat reaches StatusEstablished.
type ChatKeyRing struct {
	Algorithms AlgorithmTriple

	OwnPublic  []byte
	OwnPrivate []byte
	PeerPublic []byte
	Symmetric  []byte
}

// HasKeypair reports whether both halves of our own KEM keypair are present.
func (r ChatKeyRing) HasKeypair() bool {
	return len(r.OwnPublic) > 0 && len(r.OwnPrivate) > 0
}

// HasPeerKey reports whether the peer's public KEM key has been stored.
func (r ChatKeyRing) HasPeerKey() bool {
	return len(r.PeerPublic) > 0
}

// IsComplete reports whether the ring holds a derived symmetric key in
// addition to both keypairs.
func (r ChatKeyRing) IsComplete() bool {
	return r.HasKeypair() && r.HasPeerKey() && len(r.Symmetric) > 0
}
