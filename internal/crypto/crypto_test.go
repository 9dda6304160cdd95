package crypto_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yumsg/internal/crypto"
	domaintypes "yumsg/internal/domain/types"
	"yumsg/internal/protocolerr"
)

func TestKEMRoundTrip(t *testing.T) {
	algs := []domaintypes.KEMAlgorithm{
		domaintypes.KEMKyber512,
		domaintypes.KEMKyber768,
		domaintypes.KEMKyber1024,
	}
	for _, alg := range algs {
		t.Run(string(alg), func(t *testing.T) {
			pub, priv, err := crypto.GenerateKEMKeypair(alg)
			require.NoError(t, err)
			require.NotEmpty(t, pub)
			require.NotEmpty(t, priv)

			capsule, secretA, err := crypto.Encapsulate(alg, pub)
			require.NoError(t, err)

			secretB, err := crypto.Decapsulate(alg, priv, capsule)
			require.NoError(t, err)
			assert.Equal(t, secretA, secretB)
		})
	}
}

func TestEncapsulateRejectsMalformedPublicKey(t *testing.T) {
	_, _, err := crypto.Encapsulate(domaintypes.KEMKyber768, []byte("too short"))
	require.Error(t, err)
	assert.True(t, protocolerr.Is(err, protocolerr.InvalidKey))
}

func TestKEMUnsupportedAlgorithm(t *testing.T) {
	_, _, err := crypto.GenerateKEMKeypair(domaintypes.KEMCodeBasedMcEliece)
	require.Error(t, err)
	assert.True(t, protocolerr.Is(err, protocolerr.AlgorithmUnsupported))
	assert.False(t, crypto.KEMSupported(domaintypes.KEMCodeBasedMcEliece))
}

func TestSignatureRoundTrip(t *testing.T) {
	algs := []domaintypes.SignatureAlgorithm{
		domaintypes.SignatureDilithium2,
		domaintypes.SignatureDilithium3,
		domaintypes.SignatureDilithium5,
	}
	for _, alg := range algs {
		t.Run(string(alg), func(t *testing.T) {
			pub, priv, err := crypto.GenerateSignatureKeypair(alg)
			require.NoError(t, err)

			msg := []byte("fingerprint-confirmation")
			sig, err := crypto.Sign(alg, priv, msg)
			require.NoError(t, err)

			require.NoError(t, crypto.Verify(alg, pub, msg, sig))
		})
	}
}

func TestVerifyRejectsTamperedMessage(t *testing.T) {
	pub, priv, err := crypto.GenerateSignatureKeypair(domaintypes.SignatureDilithium3)
	require.NoError(t, err)

	sig, err := crypto.Sign(domaintypes.SignatureDilithium3, priv, []byte("original"))
	require.NoError(t, err)

	err = crypto.Verify(domaintypes.SignatureDilithium3, pub, []byte("tampered"), sig)
	require.Error(t, err)
	assert.True(t, protocolerr.Is(err, protocolerr.InvalidSignature))
}

func TestSignatureUnsupportedAlgorithm(t *testing.T) {
	_, _, err := crypto.GenerateSignatureKeypair(domaintypes.SignatureFalcon512)
	require.Error(t, err)
	assert.True(t, protocolerr.Is(err, protocolerr.AlgorithmUnsupported))
	assert.False(t, crypto.SignatureSupported(domaintypes.SignatureFalcon512))
}

func TestDeriveSymmetricIsOrderInvariant(t *testing.T) {
	secretA := []byte("secret-from-alice-side-of-handshake")
	secretB := []byte("secret-from-bob-side-of-the-exchange")

	keyAB, err := crypto.DeriveSymmetric(secretA, secretB, domaintypes.SymmetricAES256GCM)
	require.NoError(t, err)

	keyBA, err := crypto.DeriveSymmetric(secretB, secretA, domaintypes.SymmetricAES256GCM)
	require.NoError(t, err)

	assert.Equal(t, keyAB, keyBA)
	assert.Len(t, keyAB, 32)
}

func TestDeriveSymmetricDiffersByAlgorithmTag(t *testing.T) {
	secretA := []byte("shared-secret-one")
	secretB := []byte("shared-secret-two")

	aesKey, err := crypto.DeriveSymmetric(secretA, secretB, domaintypes.SymmetricAES256GCM)
	require.NoError(t, err)

	chachaKey, err := crypto.DeriveSymmetric(secretA, secretB, domaintypes.SymmetricChaCha20Poly1305)
	require.NoError(t, err)

	assert.NotEqual(t, aesKey, chachaKey)
}

func TestFingerprintIsOrderInvariantAndStable(t *testing.T) {
	pubA := []byte("alice-kem-public-key-bytes")
	pubB := []byte("bob-kem-public-key-bytes")

	fpAB := crypto.Fingerprint(pubA, pubB, domaintypes.SymmetricAES256GCM)
	fpBA := crypto.Fingerprint(pubB, pubA, domaintypes.SymmetricAES256GCM)

	assert.Equal(t, fpAB, fpBA)
	assert.Len(t, fpAB, 32)
}

func TestFormatFingerprintGroupsByFour(t *testing.T) {
	formatted := crypto.FormatFingerprint("a1b2c3d4e5f60718a1b2c3d4e5f60718")
	assert.Equal(t, "a1b2 c3d4 e5f6 0718 a1b2 c3d4 e5f6 0718", formatted)
}

func TestZeroizeOverwritesBuffer(t *testing.T) {
	secret := []byte("do-not-leave-this-lying-around!")
	crypto.Zeroize(secret)

	for _, b := range secret {
		assert.Zero(t, b)
	}
}

func TestNewAEADRoundTrip(t *testing.T) {
	for _, alg := range []domaintypes.SymmetricAlgorithm{
		domaintypes.SymmetricAES256GCM,
		domaintypes.SymmetricChaCha20Poly1305,
	} {
		t.Run(string(alg), func(t *testing.T) {
			key, err := crypto.DeriveSymmetric([]byte("a"), []byte("b"), alg)
			require.NoError(t, err)

			aead, err := crypto.NewAEAD(alg, key)
			require.NoError(t, err)

			nonce := make([]byte, aead.NonceSize())
			ciphertext := aead.Seal(nil, nonce, []byte("hello chat"), nil)
			plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
			require.NoError(t, err)
			assert.Equal(t, "hello chat", string(plaintext))
		})
	}
}
