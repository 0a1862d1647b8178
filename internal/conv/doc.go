// Package conv provides bounds-checked integer conversions and the
// little-endian float32 packing used by every persisted vector.
//
// Use these when handling untrusted data from disk (dimensions, counts,
// blob sizes). Conversions that are safe by construction use plain casts.
package conv
