package crypto

import "yumsg/internal/util/memzero"

// Zeroize overwrites b with zeros in place, in a way that must not be
// optimized away. Delegates to the constant-time wipe primitive shared
// across the module.
func Zeroize(b []byte) {
	memzero.Zero(b)
}
