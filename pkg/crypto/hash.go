// Package crypto provides the hashing primitives used by powledger.
package crypto

import (
	"encoding/hex"

	"github.com/minio/sha256-simd"
	"github.com/zeebo/blake3"
)

// DigestSize is the length of a block digest in bytes.
const DigestSize = sha256.Size

// ChecksumSize is the length of a storage checksum in bytes.
const ChecksumSize = 32

// Sum256 computes the SHA-256 digest of data.
func Sum256(data []byte) [DigestSize]byte {
	return sha256.Sum256(data)
}

// HexDigest returns the lowercase hex-encoded SHA-256 digest of data.
func HexDigest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// LeadingZeroNibbles counts the leading zero hex characters of sum,
// without hex-encoding it.
func LeadingZeroNibbles(sum [DigestSize]byte) int {
	n := 0
	for _, b := range sum {
		if b == 0 {
			n += 2
			continue
		}
		if b < 0x10 {
			n++
		}
		break
	}
	return n
}

// Checksum computes a BLAKE3-256 checksum of data.
// Used to detect records corrupted at rest, never for block hashes.
func Checksum(data []byte) [ChecksumSize]byte {
	return blake3.Sum256(data)
}
