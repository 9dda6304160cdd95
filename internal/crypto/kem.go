package crypto

import (
	"fmt"

	"github.com/cloudflare/circl/kem"
	"github.com/cloudflare/circl/kem/kyber/kyber1024"
	"github.com/cloudflare/circl/kem/kyber/kyber512"
	"github.com/cloudflare/circl/kem/kyber/kyber768"

	domaintypes "yumsg/internal/domain/types"
	"yumsg/internal/protocolerr"
)

// kemSchemes maps a recognized KEM identifier to its circl backend.
// CLASSIC-MCELIECE is deliberately absent: it is recognized by the
// domain types but resolves to AlgorithmUnsupported below.
var kemSchemes = map[domaintypes.KEMAlgorithm]kem.Scheme{
	domaintypes.KEMKyber512:  kyber512.Scheme(),
	domaintypes.KEMKyber768:  kyber768.Scheme(),
	domaintypes.KEMKyber1024: kyber1024.Scheme(),
}

func kemScheme(alg domaintypes.KEMAlgorithm) (kem.Scheme, error) {
	scheme, ok := kemSchemes[alg]
	if !ok {
		return nil, protocolerr.Wrap(protocolerr.AlgorithmUnsupported, "", fmt.Errorf("kem algorithm %q", alg))
	}
	return scheme, nil
}

// GenerateKEMKeypair creates a fresh public/private keypair for alg.
func GenerateKEMKeypair(alg domaintypes.KEMAlgorithm) (public, private []byte, err error) {
	scheme, err := kemScheme(alg)
	if err != nil {
		return nil, nil, err
	}
	pub, priv, err := scheme.GenerateKeyPair()
	if err != nil {
		return nil, nil, fmt.Errorf("generate %s keypair: %w", alg, err)
	}
	pubBytes, err := pub.MarshalBinary()
	if err != nil {
		return nil, nil, fmt.Errorf("marshal %s public key: %w", alg, err)
	}
	privBytes, err := priv.MarshalBinary()
	if err != nil {
		return nil, nil, fmt.Errorf("marshal %s private key: %w", alg, err)
	}
	return pubBytes, privBytes, nil
}

// Encapsulate generates a fresh shared secret under peerPublic, returning
// the secret and the capsule to send the peer.
func Encapsulate(alg domaintypes.KEMAlgorithm, peerPublic []byte) (capsule, secret []byte, err error) {
	scheme, err := kemScheme(alg)
	if err != nil {
		return nil, nil, err
	}
	if len(peerPublic) != scheme.PublicKeySize() {
		return nil, nil, protocolerr.Wrap(protocolerr.InvalidKey, "",
			fmt.Errorf("%s public key: want %d bytes, got %d", alg, scheme.PublicKeySize(), len(peerPublic)))
	}
	pub, err := scheme.UnmarshalBinaryPublicKey(peerPublic)
	if err != nil {
		return nil, nil, protocolerr.Wrap(protocolerr.InvalidKey, "", err)
	}
	ct, ss, err := scheme.Encapsulate(pub)
	if err != nil {
		return nil, nil, fmt.Errorf("encapsulate %s: %w", alg, err)
	}
	return ct, ss, nil
}

// Decapsulate recovers the shared secret carried in capsule using
// ownPrivate.
func Decapsulate(alg domaintypes.KEMAlgorithm, ownPrivate, capsule []byte) (secret []byte, err error) {
	scheme, err := kemScheme(alg)
	if err != nil {
		return nil, err
	}
	if len(ownPrivate) != scheme.PrivateKeySize() {
		return nil, protocolerr.Wrap(protocolerr.InvalidKey, "",
			fmt.Errorf("%s private key: want %d bytes, got %d", alg, scheme.PrivateKeySize(), len(ownPrivate)))
	}
	priv, err := scheme.UnmarshalBinaryPrivateKey(ownPrivate)
	if err != nil {
		return nil, protocolerr.Wrap(protocolerr.InvalidKey, "", err)
	}
	if len(capsule) != scheme.CiphertextSize() {
		return nil, protocolerr.Wrap(protocolerr.InvalidKey, "",
			fmt.Errorf("%s capsule: want %d bytes, got %d", alg, scheme.CiphertextSize(), len(capsule)))
	}
	ss, err := scheme.Decapsulate(priv, capsule)
	if err != nil {
		return nil, protocolerr.Wrap(protocolerr.DecapsulationFailed, "", err)
	}
	return ss, nil
}

// KEMSupported reports whether alg has a backing implementation.
func KEMSupported(alg domaintypes.KEMAlgorithm) bool {
	_, ok := kemSchemes[alg]
	return ok
}
