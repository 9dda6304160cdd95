package crypto

import (
	"crypto/rand"
	"fmt"

	"github.com/cloudflare/circl/sign/dilithium/mode2"
	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"github.com/cloudflare/circl/sign/dilithium/mode5"

	domaintypes "yumsg/internal/domain/types"
	"yumsg/internal/protocolerr"
)

// sigScheme collects the fixed sizes and operations of one signature
// backend. Each dilithium mode has its own concrete key types, so the
// backend functions close over the mode package instead of going
// through a shared interface (mirrors how every caller in the corpus
// that touches dilithium does so against one concrete mode).
type sigScheme struct {
	pubSize, privSize, sigSize int
	generate                   func() (pub, priv []byte, err error)
	sign                       func(priv, msg []byte) []byte
	verify                     func(pub, msg, sig []byte) bool
}

var sigSchemes = map[domaintypes.SignatureAlgorithm]sigScheme{
	domaintypes.SignatureDilithium2: {
		pubSize: mode2.PublicKeySize, privSize: mode2.PrivateKeySize, sigSize: mode2.SignatureSize,
		generate: func() ([]byte, []byte, error) {
			pub, priv, err := mode2.GenerateKey(rand.Reader)
			if err != nil {
				return nil, nil, err
			}
			return pub.Bytes(), priv.Bytes(), nil
		},
		sign: func(priv, msg []byte) []byte {
			var sk mode2.PrivateKey
			_ = sk.UnmarshalBinary(priv)
			sig := make([]byte, mode2.SignatureSize)
			mode2.SignTo(&sk, msg, sig)
			return sig
		},
		verify: func(pub, msg, sig []byte) bool {
			var pk mode2.PublicKey
			_ = pk.UnmarshalBinary(pub)
			return mode2.Verify(&pk, msg, sig)
		},
	},
	domaintypes.SignatureDilithium3: {
		pubSize: mode3.PublicKeySize, privSize: mode3.PrivateKeySize, sigSize: mode3.SignatureSize,
		generate: func() ([]byte, []byte, error) {
			pub, priv, err := mode3.GenerateKey(rand.Reader)
			if err != nil {
				return nil, nil, err
			}
			return pub.Bytes(), priv.Bytes(), nil
		},
		sign: func(priv, msg []byte) []byte {
			var sk mode3.PrivateKey
			_ = sk.UnmarshalBinary(priv)
			sig := make([]byte, mode3.SignatureSize)
			mode3.SignTo(&sk, msg, sig)
			return sig
		},
		verify: func(pub, msg, sig []byte) bool {
			var pk mode3.PublicKey
			_ = pk.UnmarshalBinary(pub)
			return mode3.Verify(&pk, msg, sig)
		},
	},
	domaintypes.SignatureDilithium5: {
		pubSize: mode5.PublicKeySize, privSize: mode5.PrivateKeySize, sigSize: mode5.SignatureSize,
		generate: func() ([]byte, []byte, error) {
			pub, priv, err := mode5.GenerateKey(rand.Reader)
			if err != nil {
				return nil, nil, err
			}
			return pub.Bytes(), priv.Bytes(), nil
		},
		sign: func(priv, msg []byte) []byte {
			var sk mode5.PrivateKey
			_ = sk.UnmarshalBinary(priv)
			sig := make([]byte, mode5.SignatureSize)
			mode5.SignTo(&sk, msg, sig)
			return sig
		},
		verify: func(pub, msg, sig []byte) bool {
			var pk mode5.PublicKey
			_ = pk.UnmarshalBinary(pub)
			return mode5.Verify(&pk, msg, sig)
		},
	},
}

func lookupSigScheme(alg domaintypes.SignatureAlgorithm) (sigScheme, error) {
	s, ok := sigSchemes[alg]
	if !ok {
		return sigScheme{}, protocolerr.Wrap(protocolerr.AlgorithmUnsupported, "", fmt.Errorf("signature algorithm %q", alg))
	}
	return s, nil
}

// GenerateSignatureKeypair creates a fresh signing keypair for alg.
func GenerateSignatureKeypair(alg domaintypes.SignatureAlgorithm) (public, private []byte, err error) {
	s, err := lookupSigScheme(alg)
	if err != nil {
		return nil, nil, err
	}
	pub, priv, err := s.generate()
	if err != nil {
		return nil, nil, fmt.Errorf("generate %s keypair: %w", alg, err)
	}
	return pub, priv, nil
}

// Sign produces a detached signature over msg using the private key priv.
func Sign(alg domaintypes.SignatureAlgorithm, priv, msg []byte) (signature []byte, err error) {
	s, err := lookupSigScheme(alg)
	if err != nil {
		return nil, err
	}
	if len(priv) != s.privSize {
		return nil, protocolerr.Wrap(protocolerr.InvalidKey, "",
			fmt.Errorf("%s private key: want %d bytes, got %d", alg, s.privSize, len(priv)))
	}
	return s.sign(priv, msg), nil
}

// Verify checks a detached signature over msg against the public key pub.
// Fails InvalidSignature on mismatch or a wrong signature length, and
// InvalidKey on a wrong public-key length.
func Verify(alg domaintypes.SignatureAlgorithm, pub, msg, signature []byte) error {
	s, err := lookupSigScheme(alg)
	if err != nil {
		return err
	}
	if len(pub) != s.pubSize {
		return protocolerr.Wrap(protocolerr.InvalidKey, "",
			fmt.Errorf("%s public key: want %d bytes, got %d", alg, s.pubSize, len(pub)))
	}
	if len(signature) != s.sigSize {
		return protocolerr.Wrap(protocolerr.InvalidSignature, "",
			fmt.Errorf("%s signature: want %d bytes, got %d", alg, s.sigSize, len(signature)))
	}
	if !s.verify(pub, msg, signature) {
		return protocolerr.New(protocolerr.InvalidSignature, "")
	}
	return nil
}

// SignatureSupported reports whether alg has a backing implementation.
func SignatureSupported(alg domaintypes.SignatureAlgorithm) bool {
	_, ok := sigSchemes[alg]
	return ok
}
