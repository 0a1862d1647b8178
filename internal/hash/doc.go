// Package hash provides the hashing used for data integrity and for deriving
// record ids from vector content.
//
// # CRC32-Castagnoli (CRC32C)
//
// Compressed blobs carry a CRC32C of their uncompressed payload so that a
// truncated or bit-flipped file is reported as corrupt instead of decoding
// into garbage.
//
//	checksum := hash.CRC32C(data)
//
// # Content IDs
//
// Records upserted without an id are keyed by ContentID(vector): a 64-bit
// xxhash over the little-endian float32 encoding, rendered as 16 hex digits.
// Identical vectors always produce identical ids.
package hash
