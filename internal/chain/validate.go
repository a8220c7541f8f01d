package chain

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/powledger/internal/consensus"
	"github.com/Klingon-tech/powledger/internal/log"
	"github.com/Klingon-tech/powledger/pkg/block"
)

// Validation errors. Rejections are reported wrapped with detail;
// match them with errors.Is.
var (
	ErrEmptyChain       = errors.New("chain is empty")
	ErrBrokenLink       = errors.New("previous hash does not match tip hash")
	ErrInsufficientWork = consensus.ErrInsufficientWork
	ErrNonSequentialID  = errors.New("block id is not sequential")
	ErrHashMismatch     = errors.New("hash does not match block contents")
	ErrNilBlock         = consensus.ErrNilBlock
	ErrAlreadySeeded    = errors.New("chain already seeded")
	ErrGenesisMismatch  = errors.New("first block is not the genesis block")
)

// work enforces the ledger's fixed "0000" prefix.
var work = consensus.Default()

// ValidateBlock checks candidate against its predecessor. Checks run in a
// fixed order and the first failure is returned:
//
//	link -> proof of work -> id -> digest
//
// A nil previous block means there is nothing to append to.
func ValidateBlock(candidate, previous *block.Block) error {
	if previous == nil {
		return ErrEmptyChain
	}
	if candidate == nil {
		return ErrNilBlock
	}
	if candidate.PreviousHash != previous.Hash {
		return fmt.Errorf("%w: block %d links to %s, tip is %s",
			ErrBrokenLink, candidate.ID, candidate.PreviousHash, previous.Hash)
	}
	if err := work.Verify(candidate); err != nil {
		return err
	}
	if candidate.ID != previous.ID+1 {
		return fmt.Errorf("%w: got %d, want %d", ErrNonSequentialID, candidate.ID, previous.ID+1)
	}
	if computed := candidate.ComputeHash(); computed != candidate.Hash {
		return fmt.Errorf("%w: block %d stored %s, computed %s",
			ErrHashMismatch, candidate.ID, candidate.Hash, computed)
	}
	return nil
}

// ValidateChain checks every adjacent pair of blocks. A chain of zero or one
// blocks is valid. The first block is taken as given and never re-hashed.
func ValidateChain(blocks []*block.Block) error {
	switch len(blocks) {
	case 0:
		log.Chain.Debug().Msg("Chain is empty")
		return nil
	case 1:
		log.Chain.Debug().Msg("Chain only contains a single block")
		return nil
	}

	for i := 1; i < len(blocks); i++ {
		if blocks[i-1] == nil {
			return fmt.Errorf("block at index %d: %w", i-1, ErrNilBlock)
		}
		if err := ValidateBlock(blocks[i], blocks[i-1]); err != nil {
			log.Chain.Debug().Int("index", i).Err(err).Msg("Chain is invalid")
			return fmt.Errorf("block at index %d: %w", i, err)
		}
	}
	log.Chain.Debug().Int("length", len(blocks)).Msg("Chain is valid")
	return nil
}

// IsChainValid reports whether ValidateChain accepts blocks.
func IsChainValid(blocks []*block.Block) bool {
	return ValidateChain(blocks) == nil
}

// RejectReason maps a validation error to a stable label.
func RejectReason(err error) string {
	switch {
	case errors.Is(err, ErrEmptyChain):
		return "empty_chain"
	case errors.Is(err, ErrBrokenLink):
		return "broken_link"
	case errors.Is(err, ErrInsufficientWork):
		return "insufficient_work"
	case errors.Is(err, ErrNonSequentialID):
		return "non_sequential_id"
	case errors.Is(err, ErrHashMismatch):
		return "hash_mismatch"
	default:
		return "other"
	}
}
