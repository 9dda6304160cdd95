// Package crypto implements CryptoEngine: KEM keypair generation,
// encapsulation/decapsulation, order-invariant symmetric key
// derivation, signing/verification, fingerprint computation, and
// zeroization of ephemeral key material.
//
// # Contents
//
//   - KEM registry over circl's kyber512/kyber768/kyber1024 schemes
//     (GenerateKEMKeypair, Encapsulate, Decapsulate)
//   - Signature registry over circl's dilithium mode2/mode3/mode5
//     (Sign, Verify)
//   - HKDF-based order-invariant key derivation (DeriveSymmetric)
//   - SHA-256 fingerprint computation (Fingerprint)
//   - AEAD construction for AES-256-GCM and ChaCha20-Poly1305 (NewAEAD)
//   - Best-effort memory wiping for sensitive byte slices (Zeroize)
//
// # Notes
//
// Two algorithm identifiers — CLASSIC-MCELIECE and FALCON-512 — are
// recognized by the registries but have no backing implementation in
// this build; selecting either always returns protocolerr.AlgorithmUnsupported.
// Callers never import a concrete circl package directly; everything
// routes through the registries in this package.
package crypto
