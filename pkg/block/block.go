// Package block defines the block record and its digest scheme.
package block

import (
	"strconv"

	"github.com/Klingon-tech/powledger/pkg/crypto"
)

// Proof-of-work constants. The prefix is part of the validation rules and
// is not configurable at runtime.
const (
	Difficulty = 4      // Leading hex zeros a mined hash must carry.
	Prefix     = "0000" // Textual form of Difficulty.
)

// Block is one immutable unit of ledger data.
// No component mutates a Block after it has been constructed.
type Block struct {
	ID           uint64 `json:"id"`
	Nonce        uint64 `json:"nonce"`
	Data         string `json:"data"`
	PreviousHash string `json:"previous_hash"`
	Timestamp    int64  `json:"timestamp"`
	Hash         string `json:"hash"`
}

// ComputeHash recomputes the digest of the block's stored fields.
func (b *Block) ComputeHash() string {
	return Digest(b.ID, b.PreviousHash, b.Data, b.Timestamp, b.Nonce)
}

// Equal reports whether two blocks carry identical fields.
func (b *Block) Equal(o *Block) bool {
	if b == nil || o == nil {
		return b == o
	}
	return *b == *o
}

// PreimagePrefix appends everything hashed into a block except the nonce.
// Miners compute it once and only append the nonce per attempt.
func PreimagePrefix(buf []byte, id uint64, previousHash, data string, timestamp int64) []byte {
	buf = strconv.AppendUint(buf, id, 10)
	buf = append(buf, previousHash...)
	buf = append(buf, data...)
	buf = strconv.AppendInt(buf, timestamp, 10)
	return buf
}

// Preimage returns the canonical text hashed into a block hash.
// Format: id | previous_hash | data | timestamp | nonce, integers in decimal,
// no separators. Changing it changes every derived hash.
func Preimage(id uint64, previousHash, data string, timestamp int64, nonce uint64) []byte {
	buf := make([]byte, 0, 20+len(previousHash)+len(data)+20+20)
	buf = PreimagePrefix(buf, id, previousHash, data, timestamp)
	return strconv.AppendUint(buf, nonce, 10)
}

// Digest computes the hex SHA-256 digest of the block fields.
func Digest(id uint64, previousHash, data string, timestamp int64, nonce uint64) string {
	return crypto.HexDigest(Preimage(id, previousHash, data, timestamp, nonce))
}

// HasLeadingZeros reports whether hash starts with n '0' characters.
func HasLeadingZeros(hash string, n int) bool {
	if n > len(hash) {
		return false
	}
	for i := 0; i < n; i++ {
		if hash[i] != '0' {
			return false
		}
	}
	return true
}
