// Package chain implements the append-only block ledger.
package chain

import (
	"fmt"
	"sync"

	"github.com/Klingon-tech/powledger/internal/log"
	"github.com/Klingon-tech/powledger/internal/metrics"
	"github.com/Klingon-tech/powledger/pkg/block"
)

// Chain is an ordered, append-only sequence of blocks.
type Chain struct {
	mu      sync.RWMutex // Protects blocks.
	blocks  []*block.Block
	store   *BlockStore      // nil = in-memory only.
	metrics *metrics.Metrics // nil = not recorded.
}

// Option configures a Chain.
type Option func(*Chain)

// WithStore persists every accepted change to store.
func WithStore(store *BlockStore) Option {
	return func(c *Chain) { c.store = store }
}

// WithMetrics records appends and rejections.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Chain) { c.metrics = m }
}

// New creates an empty chain. Call SeedGenesis before appending.
func New(opts ...Option) *Chain {
	c := &Chain{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open rebuilds a chain from store. The stored blocks must start with the
// genesis block and form a valid chain. An empty store yields an empty chain.
func Open(store *BlockStore, opts ...Option) (*Chain, error) {
	if store == nil {
		return nil, fmt.Errorf("block store is nil")
	}
	blocks, err := store.LoadBlocks()
	if err != nil {
		return nil, fmt.Errorf("load blocks: %w", err)
	}
	if len(blocks) > 0 && !block.IsGenesis(blocks[0]) {
		return nil, fmt.Errorf("open chain: %w", ErrGenesisMismatch)
	}
	if err := ValidateChain(blocks); err != nil {
		return nil, fmt.Errorf("stored chain is invalid: %w", err)
	}

	c := New(append(opts, WithStore(store))...)
	c.blocks = blocks
	if n := len(blocks); n > 0 {
		c.metrics.SetHeight(blocks[n-1].ID)
	}
	log.Chain.Info().Int("length", len(blocks)).Msg("Opened chain")
	return c, nil
}

// SeedGenesis appends the genesis block. A chain is seeded exactly once.
func (c *Chain) SeedGenesis() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.blocks) > 0 {
		return fmt.Errorf("%w: length %d", ErrAlreadySeeded, len(c.blocks))
	}
	if err := c.push(block.Genesis()); err != nil {
		return fmt.Errorf("seed genesis: %w", err)
	}
	log.Chain.Info().Str("hash", block.GenesisHash).Msg("Seeded genesis block")
	return nil
}

// TryAppend validates candidate against the tip and appends it. On any
// error the chain is left unchanged.
func (c *Chain) TryAppend(candidate *block.Block) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.blocks) == 0 {
		return c.reject(candidate, ErrEmptyChain)
	}
	if err := ValidateBlock(candidate, c.blocks[len(c.blocks)-1]); err != nil {
		return c.reject(candidate, err)
	}
	if err := c.push(candidate); err != nil {
		return err
	}
	log.Chain.Info().
		Uint64("id", candidate.ID).
		Str("hash", candidate.Hash).
		Msg("Appended block")
	return nil
}

// push appends a copy of blk and persists it. Caller must hold c.mu.
func (c *Chain) push(blk *block.Block) error {
	cp := *blk
	c.blocks = append(c.blocks, &cp)
	if c.store != nil {
		if err := c.store.PutBlock(&cp); err != nil {
			c.blocks[len(c.blocks)-1] = nil
			c.blocks = c.blocks[:len(c.blocks)-1]
			return fmt.Errorf("persist block %d: %w", cp.ID, err)
		}
	}
	c.metrics.BlockAppended(cp.ID)
	return nil
}

func (c *Chain) reject(candidate *block.Block, err error) error {
	c.metrics.BlockRejected(RejectReason(err))
	ev := log.Chain.Warn().Err(err)
	if candidate != nil {
		ev = ev.Uint64("id", candidate.ID)
	}
	ev.Msg("Rejected block")
	return err
}

// Adopt replaces the local blocks with remote when fork choice selects
// remote and remote is strictly longer. It reports whether the chain changed.
// A chain backed by a store only adopts chains rooted at genesis. Chains too
// large for one storage transaction are written in several, tip last.
func (c *Chain) Adopt(remote []*block.Block) (bool, error) {
	for i, b := range remote {
		if b == nil {
			return false, fmt.Errorf("adopt: block at index %d: %w", i, ErrNilBlock)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	selected, ok := SelectChain(c.blocks, remote)
	if !ok || !sameChain(selected, remote) || len(remote) <= len(c.blocks) {
		log.Chain.Info().
			Int("local_len", len(c.blocks)).
			Int("remote_len", len(remote)).
			Msg("Kept local chain")
		return false, nil
	}
	if c.store != nil && !block.IsGenesis(remote[0]) {
		return false, fmt.Errorf("adopt: %w", ErrGenesisMismatch)
	}

	adopted := make([]*block.Block, len(remote))
	for i, b := range remote {
		cp := *b
		adopted[i] = &cp
	}
	if c.store != nil {
		if err := c.store.ReplaceAll(adopted); err != nil {
			return false, fmt.Errorf("persist adopted chain: %w", err)
		}
	}

	old := len(c.blocks)
	c.blocks = adopted
	c.metrics.SetHeight(adopted[len(adopted)-1].ID)
	log.Chain.Info().
		Int("old_len", old).
		Int("new_len", len(adopted)).
		Msg("Adopted remote chain")
	return true, nil
}

// Validate checks the chain's own blocks.
func (c *Chain) Validate() error {
	return ValidateChain(c.Blocks())
}

// IsChainValid reports whether blocks form a valid chain.
func (c *Chain) IsChainValid(blocks []*block.Block) bool {
	return IsChainValid(blocks)
}

// SelectChain runs fork choice between local and remote.
func (c *Chain) SelectChain(local, remote []*block.Block) ([]*block.Block, bool) {
	return SelectChain(local, remote)
}

// Blocks returns a snapshot of the chain's blocks in order.
func (c *Chain) Blocks() []*block.Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*block.Block, len(c.blocks))
	copy(out, c.blocks)
	return out
}

// Len returns the number of blocks.
func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.blocks)
}

// Tip returns the last block, or false if the chain is empty.
func (c *Chain) Tip() (*block.Block, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.blocks) == 0 {
		return nil, false
	}
	return c.blocks[len(c.blocks)-1], true
}

// Height returns the tip's ID, or 0 for an empty chain.
func (c *Chain) Height() uint64 {
	tip, ok := c.Tip()
	if !ok {
		return 0
	}
	return tip.ID
}

// Block returns the block with the given ID.
func (c *Chain) Block(id uint64) (*block.Block, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.blocks) == 0 {
		return nil, false
	}
	first := c.blocks[0].ID
	if id < first || id-first >= uint64(len(c.blocks)) {
		return nil, false
	}
	return c.blocks[id-first], true
}
