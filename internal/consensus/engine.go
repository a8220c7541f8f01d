// Package consensus implements the proof-of-work block search.
package consensus

import (
	"context"

	"github.com/Klingon-tech/powledger/pkg/block"
)

// Engine produces and checks sealed blocks.
type Engine interface {
	Mine(ctx context.Context, id uint64, previousHash, data string) (*block.Block, error)
	Verify(blk *block.Block) error
}
