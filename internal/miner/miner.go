// Package miner implements block production for the ledger.
package miner

import (
	"context"
	"errors"
	"fmt"

	"github.com/Klingon-tech/powledger/internal/consensus"
	"github.com/Klingon-tech/powledger/internal/log"
	"github.com/Klingon-tech/powledger/pkg/block"
)

// ErrNoTip is returned when the chain has no block to build on.
var ErrNoTip = errors.New("chain has no tip (seed genesis first)")

// ChainState provides read access to the chain tip.
type ChainState interface {
	Tip() (*block.Block, bool)
}

// Chain is a ChainState that also accepts new blocks.
type Chain interface {
	ChainState
	TryAppend(candidate *block.Block) error
}

// Miner produces new blocks on top of the current tip.
type Miner struct {
	chain  ChainState
	engine consensus.Engine
}

// New creates a new block producer. A nil engine uses the ledger's
// default proof of work.
func New(chain ChainState, engine consensus.Engine) *Miner {
	if engine == nil {
		engine = consensus.Default()
	}
	return &Miner{chain: chain, engine: engine}
}

// ProduceBlock mines a block carrying data that extends the current tip.
// The block is NOT applied to the chain; the caller must call TryAppend.
// When the context is cancelled, mining stops and ctx.Err() is returned.
func (m *Miner) ProduceBlock(ctx context.Context, data string) (*block.Block, error) {
	tip, ok := m.chain.Tip()
	if !ok {
		return nil, ErrNoTip
	}
	blk, err := m.engine.Mine(ctx, tip.ID+1, tip.Hash, data)
	if err != nil {
		return nil, fmt.Errorf("mine block %d: %w", tip.ID+1, err)
	}
	return blk, nil
}

// Extend mines a block for data and appends it to the chain. The chain
// must implement Chain.
func (m *Miner) Extend(ctx context.Context, data string) (*block.Block, error) {
	c, ok := m.chain.(Chain)
	if !ok {
		return nil, fmt.Errorf("chain %T does not accept blocks", m.chain)
	}
	blk, err := m.ProduceBlock(ctx, data)
	if err != nil {
		return nil, err
	}
	if err := c.TryAppend(blk); err != nil {
		return nil, fmt.Errorf("append block %d: %w", blk.ID, err)
	}
	log.Miner.Info().
		Uint64("id", blk.ID).
		Uint64("nonce", blk.Nonce).
		Int("data_len", len(blk.Data)).
		Msg("Block produced")
	return blk, nil
}
