package store

import (
	"bytes"
	"encoding/binary"
	"fmt"

	domaintypes "yumsg/internal/domain/types"
)

// keysBlobVersion is the current on-disk format of an encoded
// ChatKeyRing: a 2-byte version tag followed by length-prefixed fields
// for each present member of the ring.
const keysBlobVersion uint16 = 1

const algorithmTagWidth = 24

func packAlgorithmTag(tag string) ([algorithmTagWidth]byte, error) {
	var out [algorithmTagWidth]byte
	if len(tag) > algorithmTagWidth {
		return out, fmt.Errorf("algorithm tag %q exceeds %d bytes", tag, algorithmTagWidth)
	}
	copy(out[:], tag)
	return out, nil
}

func unpackAlgorithmTag(tag [algorithmTagWidth]byte) string {
	return string(bytes.TrimRight(tag[:], "\x00"))
}

func writeLengthPrefixed(buf *bytes.Buffer, field []byte) {
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(field)))
	buf.Write(length[:])
	buf.Write(field)
}

func readLengthPrefixed(r *bytes.Reader) ([]byte, error) {
	var length [4]byte
	if _, err := r.Read(length[:]); err != nil {
		return nil, fmt.Errorf("read field length: %w", err)
	}
	n := binary.BigEndian.Uint32(length[:])
	if n == 0 {
		return nil, nil
	}
	field := make([]byte, n)
	if _, err := r.Read(field); err != nil {
		return nil, fmt.Errorf("read field of %d bytes: %w", n, err)
	}
	return field, nil
}

// encodeKeyRing serializes a ChatKeyRing to its versioned on-disk form.
func encodeKeyRing(ring domaintypes.ChatKeyRing) ([]byte, error) {
	kemTag, err := packAlgorithmTag(string(ring.Algorithms.KEM))
	if err != nil {
		return nil, err
	}
	symTag, err := packAlgorithmTag(string(ring.Algorithms.Symmetric))
	if err != nil {
		return nil, err
	}
	sigTag, err := packAlgorithmTag(string(ring.Algorithms.Signature))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	var version [2]byte
	binary.BigEndian.PutUint16(version[:], keysBlobVersion)
	buf.Write(version[:])
	buf.Write(kemTag[:])
	buf.Write(symTag[:])
	buf.Write(sigTag[:])
	writeLengthPrefixed(&buf, ring.OwnPublic)
	writeLengthPrefixed(&buf, ring.OwnPrivate)
	writeLengthPrefixed(&buf, ring.PeerPublic)
	writeLengthPrefixed(&buf, ring.Symmetric)
	return buf.Bytes(), nil
}

// decodeKeyRing parses the versioned on-disk form back into a ChatKeyRing.
func decodeKeyRing(blob []byte) (domaintypes.ChatKeyRing, error) {
	var ring domaintypes.ChatKeyRing
	minLen := 2 + 3*algorithmTagWidth
	if len(blob) < minLen {
		return ring, fmt.Errorf("keys_blob too short: %d bytes", len(blob))
	}

	version := binary.BigEndian.Uint16(blob[0:2])
	if version != keysBlobVersion {
		return ring, fmt.Errorf("unsupported keys_blob version %d", version)
	}

	offset := 2
	var kemTag, symTag, sigTag [algorithmTagWidth]byte
	copy(kemTag[:], blob[offset:offset+algorithmTagWidth])
	offset += algorithmTagWidth
	copy(symTag[:], blob[offset:offset+algorithmTagWidth])
	offset += algorithmTagWidth
	copy(sigTag[:], blob[offset:offset+algorithmTagWidth])
	offset += algorithmTagWidth

	ring.Algorithms = domaintypes.AlgorithmTriple{
		KEM:       domaintypes.KEMAlgorithm(unpackAlgorithmTag(kemTag)),
		Symmetric: domaintypes.SymmetricAlgorithm(unpackAlgorithmTag(symTag)),
		Signature: domaintypes.SignatureAlgorithm(unpackAlgorithmTag(sigTag)),
	}

	r := bytes.NewReader(blob[offset:])
	var err error
	if ring.OwnPublic, err = readLengthPrefixed(r); err != nil {
		return ring, err
	}
	if ring.OwnPrivate, err = readLengthPrefixed(r); err != nil {
		return ring, err
	}
	if ring.PeerPublic, err = readLengthPrefixed(r); err != nil {
		return ring, err
	}
	if ring.Symmetric, err = readLengthPrefixed(r); err != nil {
		return ring, err
	}
	return ring, nil
}
