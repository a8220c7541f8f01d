// Package node assembles a ledger instance (storage, chain, miner, metrics,
// RPC) that can be embedded in any binary.
package node

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/Klingon-tech/powledger/config"
	"github.com/Klingon-tech/powledger/internal/chain"
	"github.com/Klingon-tech/powledger/internal/consensus"
	klog "github.com/Klingon-tech/powledger/internal/log"
	"github.com/Klingon-tech/powledger/internal/metrics"
	"github.com/Klingon-tech/powledger/internal/miner"
	"github.com/Klingon-tech/powledger/internal/rpc"
	"github.com/Klingon-tech/powledger/internal/storage"
	"github.com/Klingon-tech/powledger/pkg/block"
)

// ErrNotInitialized is returned when an operation needs a seeded chain.
var ErrNotInitialized = errors.New("chain not initialized (run init first)")

// Node is a fully-initialized ledger.
type Node struct {
	cfg    *config.Config
	logger zerolog.Logger

	db      storage.DB
	ch      *chain.Chain
	engine  *consensus.PoW
	miner   *miner.Miner
	metrics *metrics.Metrics

	metricsServer *http.Server
	rpcServer     *rpc.Server
}

// New opens the on-disk ledger under cfg.ChainDir(). The chain is not
// seeded; call Init for that.
func New(cfg *config.Config) (*Node, error) {
	if err := config.EnsureDataDirs(cfg); err != nil {
		return nil, fmt.Errorf("creating data dirs: %w", err)
	}
	db, err := storage.NewBadger(cfg.ChainDir())
	if err != nil {
		return nil, err
	}
	n, err := newNode(cfg, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	n.logger.Info().Str("path", cfg.ChainDir()).Int("length", n.ch.Len()).Msg("Database opened")
	return n, nil
}

// NewInMemory creates a ledger that keeps nothing on disk.
func NewInMemory(cfg *config.Config) (*Node, error) {
	return newNode(cfg, storage.NewMemory())
}

func newNode(cfg *config.Config, db storage.DB) (*Node, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	n := &Node{
		cfg:    cfg,
		logger: klog.WithComponent("node"),
		db:     db,
	}

	// ── Metrics ─────────────────────────────────────────────────────
	if cfg.Metrics.Enabled {
		n.metrics = metrics.New()
		srv, err := metrics.Serve(n.metrics, cfg.Metrics.Addr)
		if err != nil {
			return nil, fmt.Errorf("start metrics server: %w", err)
		}
		n.metricsServer = srv
	}

	// ── Chain ───────────────────────────────────────────────────────
	ch, err := chain.Open(chain.NewBlockStore(db), chain.WithMetrics(n.metrics))
	if err != nil {
		n.stopMetrics()
		return nil, fmt.Errorf("open chain: %w", err)
	}
	n.ch = ch

	// ── Consensus + miner ───────────────────────────────────────────
	n.engine = &consensus.PoW{
		Difficulty:  block.Difficulty,
		MaxAttempts: cfg.Mining.MaxAttempts,
		Threads:     cfg.Mining.Threads,
		Metrics:     n.metrics,
	}
	n.miner = miner.New(ch, n.engine)
	return n, nil
}

// Init seeds the genesis block if the chain is empty. It reports whether
// genesis was written.
func (n *Node) Init() (bool, error) {
	err := n.ch.SeedGenesis()
	if errors.Is(err, chain.ErrAlreadySeeded) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Mine mines and appends one block per entry in data, in order. onBlock,
// when set, is called after each append. Blocks appended before an error
// stay on the chain.
func (n *Node) Mine(ctx context.Context, data []string, onBlock func(*block.Block)) ([]*block.Block, error) {
	if n.ch.Len() == 0 {
		return nil, ErrNotInitialized
	}
	mined := make([]*block.Block, 0, len(data))
	for _, d := range data {
		blk, err := n.miner.Extend(ctx, d)
		if err != nil {
			return mined, err
		}
		mined = append(mined, blk)
		if onBlock != nil {
			onBlock(blk)
		}
	}
	return mined, nil
}

// StartRPC starts the JSON-RPC API on cfg.RPC.Addr. Calling it twice is
// an error.
func (n *Node) StartRPC() error {
	if n.rpcServer != nil {
		return fmt.Errorf("rpc server already running on %s", n.rpcServer.Addr())
	}
	m := n.miner
	if n.cfg.RPC.NoMining {
		m = nil
	}
	srv := rpc.New(n.cfg.RPC.Addr, n.ch, m, n.cfg.RPC.AllowedIPs)
	if err := srv.Start(); err != nil {
		return err
	}
	n.rpcServer = srv
	return nil
}

// RPCAddr returns the address the RPC server is listening on, or "" when
// it is not running.
func (n *Node) RPCAddr() string {
	if n.rpcServer == nil {
		return ""
	}
	return n.rpcServer.Addr()
}

// Chain returns the ledger's chain.
func (n *Node) Chain() *chain.Chain {
	return n.ch
}

// Miner returns the block producer.
func (n *Node) Miner() *miner.Miner {
	return n.miner
}

// Metrics returns the metrics collectors, or nil when disabled.
func (n *Node) Metrics() *metrics.Metrics {
	return n.metrics
}

// MetricsAddr returns the address the metrics server is listening on.
func (n *Node) MetricsAddr() string {
	if n.metricsServer == nil {
		return ""
	}
	return n.metricsServer.Addr
}

// Height returns the current chain height.
func (n *Node) Height() uint64 {
	return n.ch.Height()
}

// Stop shuts down the RPC and metrics servers and closes storage.
func (n *Node) Stop() {
	if n.rpcServer != nil {
		if err := n.rpcServer.Stop(); err != nil {
			n.logger.Warn().Err(err).Msg("Stopping RPC server")
		}
		n.rpcServer = nil
	}
	n.stopMetrics()
	if n.db != nil {
		if err := n.db.Close(); err != nil {
			n.logger.Warn().Err(err).Msg("Closing database")
		}
	}
	n.logger.Debug().Msg("Goodbye!")
}

func (n *Node) stopMetrics() {
	if n.metricsServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := n.metricsServer.Shutdown(ctx); err != nil {
		n.logger.Warn().Err(err).Msg("Stopping metrics server")
	}
	n.metricsServer = nil
}
