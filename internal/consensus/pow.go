package consensus

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Klingon-tech/powledger/internal/log"
	"github.com/Klingon-tech/powledger/internal/metrics"
	"github.com/Klingon-tech/powledger/pkg/block"
	"github.com/Klingon-tech/powledger/pkg/crypto"
)

// PoW errors.
var (
	ErrInsufficientWork  = errors.New("hash does not meet difficulty prefix")
	ErrBadDifficulty     = errors.New("difficulty out of range")
	ErrAttemptsExhausted = errors.New("nonce attempts exhausted")
	ErrNilBlock          = errors.New("nil block")
)

// MaxDifficulty is the number of hex characters in a digest.
const MaxDifficulty = crypto.DigestSize * 2

// cancelCheckMask sets how often the search polls its context.
const cancelCheckMask = 0xFFFF

// errFound stops the remaining workers once a nonce is found.
var errFound = errors.New("nonce found")

// PoW implements the leading-zero proof-of-work search.
// The zero value is not usable; use Default or NewPoW.
type PoW struct {
	// Difficulty is the number of leading hex zeros a hash must carry.
	Difficulty int

	// MaxAttempts bounds the highest nonce tried. 0 = unbounded.
	MaxAttempts uint64

	// Threads controls the number of parallel search goroutines.
	// 0 or 1 = single-threaded, which always yields the smallest
	// satisfying nonce. Each extra goroutine searches a strided
	// partition of the nonce space.
	Threads int

	// Now supplies block timestamps. Defaults to time.Now.
	Now func() time.Time

	// Metrics, when set, records attempts and mining time.
	Metrics *metrics.Metrics
}

// Default returns a PoW engine with the ledger's fixed difficulty.
func Default() *PoW {
	return &PoW{Difficulty: block.Difficulty}
}

// NewPoW creates a PoW engine with the given difficulty.
func NewPoW(difficulty int) (*PoW, error) {
	if difficulty < 1 || difficulty > MaxDifficulty {
		return nil, fmt.Errorf("%w: %d, want 1..%d", ErrBadDifficulty, difficulty, MaxDifficulty)
	}
	return &PoW{Difficulty: difficulty}, nil
}

// CreateBlock mines a block with the ledger's fixed difficulty and the
// current time. It blocks until a nonce is found and cannot fail.
func CreateBlock(id uint64, previousHash, data string) *block.Block {
	blk, err := Default().Mine(context.Background(), id, previousHash, data)
	if err != nil {
		// Unreachable: the default engine is unbounded and uncancellable.
		panic(fmt.Sprintf("consensus: default mining failed: %v", err))
	}
	return blk
}

// Prefix returns the textual hash prefix required by this engine.
func (p *PoW) Prefix() string {
	return strings.Repeat("0", p.Difficulty)
}

// Verify checks that the block's stored hash carries the required prefix.
// It does not recompute the digest; chain validation does that.
func (p *PoW) Verify(blk *block.Block) error {
	if blk == nil {
		return ErrNilBlock
	}
	if !block.HasLeadingZeros(blk.Hash, p.Difficulty) {
		return fmt.Errorf("%w: block %d hash %s, want prefix %q", ErrInsufficientWork, blk.ID, blk.Hash, p.Prefix())
	}
	return nil
}

// Mine captures the current time and searches for a nonce.
func (p *PoW) Mine(ctx context.Context, id uint64, previousHash, data string) (*block.Block, error) {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	return p.MineAt(ctx, id, previousHash, data, now().Unix())
}

// MineAt searches for a nonce, starting at 1, for the given fields.
// When the context is cancelled, mining stops and ctx.Err() is returned.
func (p *PoW) MineAt(ctx context.Context, id uint64, previousHash, data string, timestamp int64) (*block.Block, error) {
	if p.Difficulty < 1 || p.Difficulty > MaxDifficulty {
		return nil, fmt.Errorf("%w: %d, want 1..%d", ErrBadDifficulty, p.Difficulty, MaxDifficulty)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log.Consensus.Debug().Uint64("id", id).Int("difficulty", p.Difficulty).Msg("Mining block")
	defer log.Benchmark("mine")()
	start := time.Now()

	prefix := block.PreimagePrefix(nil, id, previousHash, data, timestamp)

	var (
		nonce    uint64
		attempts uint64
		err      error
	)
	if p.Threads <= 1 {
		nonce, attempts, err = p.searchSingle(ctx, prefix)
	} else {
		nonce, attempts, err = p.searchParallel(ctx, prefix, p.Threads)
	}
	p.Metrics.Mined(attempts, time.Since(start))
	if err != nil {
		return nil, err
	}

	blk := &block.Block{
		ID:           id,
		Nonce:        nonce,
		Data:         data,
		PreviousHash: previousHash,
		Timestamp:    timestamp,
		Hash:         block.Digest(id, previousHash, data, timestamp, nonce),
	}
	log.Consensus.Info().
		Uint64("id", id).
		Uint64("nonce", nonce).
		Str("hash", blk.Hash).
		Msg("Mined block")
	return blk, nil
}

// searchSingle walks nonces 1, 2, 3, ... and returns the first match.
func (p *PoW) searchSingle(ctx context.Context, prefix []byte) (uint64, uint64, error) {
	buf := make([]byte, len(prefix), len(prefix)+20)
	copy(buf, prefix)

	for nonce := uint64(1); ; nonce++ {
		if nonce&cancelCheckMask == 0 {
			select {
			case <-ctx.Done():
				return 0, nonce - 1, ctx.Err()
			default:
			}
		}
		if p.MaxAttempts > 0 && nonce > p.MaxAttempts {
			return 0, p.MaxAttempts, fmt.Errorf("%w: %d", ErrAttemptsExhausted, p.MaxAttempts)
		}

		buf = strconv.AppendUint(buf[:len(prefix)], nonce, 10)
		if crypto.LeadingZeroNibbles(crypto.Sum256(buf)) >= p.Difficulty {
			return nonce, nonce, nil
		}
		if nonce == ^uint64(0) {
			return 0, nonce, fmt.Errorf("%w: nonce space", ErrAttemptsExhausted)
		}
	}
}

// searchParallel runs one goroutine per thread; goroutine i starts at
// nonce i+1 and steps by threads.
func (p *PoW) searchParallel(ctx context.Context, prefix []byte, threads int) (uint64, uint64, error) {
	g, gctx := errgroup.WithContext(ctx)

	var (
		once     sync.Once
		found    bool
		result   uint64
		attempts atomic.Uint64
	)

	stride := uint64(threads)
	for i := 0; i < threads; i++ {
		start := uint64(i) + 1
		g.Go(func() error {
			buf := make([]byte, len(prefix), len(prefix)+20)
			copy(buf, prefix)
			var tried uint64
			defer func() { attempts.Add(tried) }()

			for nonce := start; ; nonce += stride {
				if tried&cancelCheckMask == 0 {
					select {
					case <-gctx.Done():
						return gctx.Err()
					default:
					}
				}
				if p.MaxAttempts > 0 && nonce > p.MaxAttempts {
					return nil
				}
				tried++

				buf = strconv.AppendUint(buf[:len(prefix)], nonce, 10)
				if crypto.LeadingZeroNibbles(crypto.Sum256(buf)) >= p.Difficulty {
					once.Do(func() {
						found = true
						result = nonce
					})
					return errFound
				}
				// Overflow: would wrap around past max uint64.
				if nonce > ^uint64(0)-stride {
					return nil
				}
			}
		})
	}

	err := g.Wait()
	if found {
		return result, attempts.Load(), nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return 0, attempts.Load(), ctxErr
	}
	if err != nil && !errors.Is(err, errFound) {
		return 0, attempts.Load(), err
	}
	return 0, attempts.Load(), fmt.Errorf("%w: %d", ErrAttemptsExhausted, p.MaxAttempts)
}
