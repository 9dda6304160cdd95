package types

// KEMAlgorithm names a key-encapsulation mechanism.
type KEMAlgorithm string

// Recognized KEM identifiers. CodeBasedMcEliece is a real, named
// algorithm that CryptoEngine recognizes but cannot wire to an
// implementation in this build (see kemSchemes in internal/crypto/kem.go) — it
// always fails with AlgorithmUnsupported, by design.
const (
	KEMKyber512          KEMAlgorithm = "KYBER512"
	KEMKyber768          KEMAlgorithm = "KYBER768"
	KEMKyber1024         KEMAlgorithm = "KYBER1024"
	KEMCodeBasedMcEliece KEMAlgorithm = "CLASSIC-MCELIECE"
)

// SymmetricAlgorithm names a 256-bit AEAD cipher.
type SymmetricAlgorithm string

const (
	SymmetricAES256GCM        SymmetricAlgorithm = "AES-256-GCM"
	SymmetricChaCha20Poly1305 SymmetricAlgorithm = "CHACHA20-POLY1305"
)

// SignatureAlgorithm names a post-quantum signature scheme.
type SignatureAlgorithm string

// SignatureFalcon512 is recognized but unimplemented; see KEMCodeBasedMcEliece.
const (
	SignatureDilithium2 SignatureAlgorithm = "DILITHIUM2"
	SignatureDilithium3 SignatureAlgorithm = "DILITHIUM3"
	SignatureDilithium5 SignatureAlgorithm = "DILITHIUM5"
	SignatureFalcon512  SignatureAlgorithm = "FALCON-512"
)

// AlgorithmTriple is the (kem, symmetric, signature) triple governing a
// single chat's handshake. Immutable once constructed.
type AlgorithmTriple struct {
	KEM       KEMAlgorithm
	Symmetric SymmetricAlgorithm
	Signature SignatureAlgorithm
}

// Empty reports whether any leg of the triple is unset.
func (t AlgorithmTriple) Empty() bool {
	return t.KEM == "" || t.Symmetric == "" || t.Signature == ""
}

// Equal reports whether two triples name the same three algorithms.
func (t AlgorithmTriple) Equal(o AlgorithmTriple) bool {
	return t.KEM == o.KEM && t.Symmetric == o.Symmetric && t.Signature == o.Signature
}
