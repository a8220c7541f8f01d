package block

import "strings"

// Genesis block constants. The genesis record is hard-coded, never mined,
// and its hash is taken as given: GenesisHash is not the digest of the
// other genesis fields, and no timestamp makes it one. Validation never
// re-hashes the first block, so the pair is used as is.
const (
	GenesisID        = 1
	GenesisNonce     = 11316
	GenesisData      = "I am a first or genesis block"
	GenesisHash      = "000015783b764259d382017d91a36d206d0600e2cbb3567748f46a33fe9297cf"
	GenesisTimestamp = 1700000000
)

// GenesisPreviousHash is the sentinel previous hash of the genesis block.
var GenesisPreviousHash = strings.Repeat("0", 64)

// Genesis returns a fresh copy of the genesis block.
func Genesis() *Block {
	return &Block{
		ID:           GenesisID,
		Nonce:        GenesisNonce,
		Data:         GenesisData,
		PreviousHash: GenesisPreviousHash,
		Timestamp:    GenesisTimestamp,
		Hash:         GenesisHash,
	}
}

// IsGenesis reports whether b is exactly the genesis record.
func IsGenesis(b *Block) bool {
	return Genesis().Equal(b)
}
