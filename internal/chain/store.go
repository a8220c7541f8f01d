package chain

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Klingon-tech/powledger/internal/log"
	"github.com/Klingon-tech/powledger/internal/storage"
	"github.com/Klingon-tech/powledger/pkg/block"
	"github.com/Klingon-tech/powledger/pkg/crypto"
)

// ErrCorruptRecord is returned when a stored record fails its integrity check.
var ErrCorruptRecord = errors.New("corrupt block record")

// Key prefixes and state keys for the block store.
var (
	prefixBlock = []byte("b/") // b/<id(8)> -> checksum(32) + block JSON
	keyTip      = []byte("s/tip")
)

// BlockStore persists blocks and the tip pointer to a storage.DB.
type BlockStore struct {
	db storage.DB
}

// NewBlockStore creates a block store backed by the given database.
func NewBlockStore(db storage.DB) *BlockStore {
	return &BlockStore{db: db}
}

// PutBlock stores a block and moves the tip to it in one batch.
func (bs *BlockStore) PutBlock(blk *block.Block) error {
	rec, err := encodeRecord(blk)
	if err != nil {
		return err
	}
	batch := storage.NewBatch(bs.db)
	if err := batch.Put(blockKey(blk.ID), rec); err != nil {
		return fmt.Errorf("block put: %w", err)
	}
	if err := batch.Put(keyTip, encodeID(blk.ID)); err != nil {
		return fmt.Errorf("tip put: %w", err)
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("block commit: %w", err)
	}
	return nil
}

// GetBlock retrieves a block by its ID.
func (bs *BlockStore) GetBlock(id uint64) (*block.Block, error) {
	raw, err := bs.db.Get(blockKey(id))
	if err != nil {
		return nil, fmt.Errorf("block get %d: %w", id, err)
	}
	blk, err := decodeRecord(raw)
	if err != nil {
		return nil, fmt.Errorf("block %d: %w", id, err)
	}
	if blk.ID != id {
		return nil, fmt.Errorf("%w: key %d holds block %d", ErrCorruptRecord, id, blk.ID)
	}
	return blk, nil
}

// Tip returns the ID of the last stored block. ok is false for an empty store.
func (bs *BlockStore) Tip() (id uint64, ok bool, err error) {
	raw, err := bs.db.Get(keyTip)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("tip get: %w", err)
	}
	if len(raw) != 8 {
		return 0, false, fmt.Errorf("%w: tip is %d bytes, want 8", ErrCorruptRecord, len(raw))
	}
	return binary.BigEndian.Uint64(raw), true, nil
}

// LoadBlocks returns every stored block from genesis up to the tip.
func (bs *BlockStore) LoadBlocks() ([]*block.Block, error) {
	tip, ok, err := bs.Tip()
	if err != nil || !ok {
		return nil, err
	}
	if tip < block.GenesisID {
		return nil, fmt.Errorf("%w: tip %d below genesis", ErrCorruptRecord, tip)
	}

	// The tip record carries no checksum; confirm it names a stored block
	// before walking up to it.
	has, err := bs.db.Has(blockKey(tip))
	if err != nil {
		return nil, fmt.Errorf("tip block has: %w", err)
	}
	if !has {
		return nil, fmt.Errorf("%w: tip %d has no stored block", ErrCorruptRecord, tip)
	}

	var blocks []*block.Block
	for id := uint64(block.GenesisID); id <= tip; id++ {
		blk, err := bs.GetBlock(id)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, blk)
	}
	log.Storage.Debug().Uint64("tip", tip).Msg("Loaded blocks")
	return blocks, nil
}

// ReplaceAll overwrites the stored chain with blocks. Blocks must carry
// sequential IDs starting at genesis.
func (bs *BlockStore) ReplaceAll(blocks []*block.Block) error {
	for i, blk := range blocks {
		if want := uint64(block.GenesisID + i); blk.ID != want {
			return fmt.Errorf("%w: block at index %d has id %d, want %d", ErrNonSequentialID, i, blk.ID, want)
		}
	}

	// Collect keys beyond the new tip so shorter replacements leave no tail.
	var stale [][]byte
	newTip := uint64(len(blocks))
	err := bs.db.ForEach(prefixBlock, func(key, _ []byte) error {
		if len(key) == len(prefixBlock)+8 && binary.BigEndian.Uint64(key[len(prefixBlock):]) > newTip {
			stale = append(stale, key)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan blocks: %w", err)
	}

	batch := storage.NewBatch(bs.db)
	for _, key := range stale {
		if err := batch.Delete(key); err != nil {
			return fmt.Errorf("block delete: %w", err)
		}
	}
	for _, blk := range blocks {
		rec, err := encodeRecord(blk)
		if err != nil {
			return err
		}
		if err := batch.Put(blockKey(blk.ID), rec); err != nil {
			return fmt.Errorf("block put: %w", err)
		}
	}
	if len(blocks) == 0 {
		err = batch.Delete(keyTip)
	} else {
		err = batch.Put(keyTip, encodeID(newTip))
	}
	if err != nil {
		return fmt.Errorf("tip update: %w", err)
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("replace commit: %w", err)
	}
	log.Storage.Debug().Int("blocks", len(blocks)).Int("removed", len(stale)).Msg("Replaced stored chain")
	return nil
}

// encodeRecord returns checksum(json) followed by json.
func encodeRecord(blk *block.Block) ([]byte, error) {
	data, err := json.Marshal(blk)
	if err != nil {
		return nil, fmt.Errorf("block marshal: %w", err)
	}
	sum := crypto.Checksum(data)
	rec := make([]byte, 0, crypto.ChecksumSize+len(data))
	rec = append(rec, sum[:]...)
	return append(rec, data...), nil
}

func decodeRecord(rec []byte) (*block.Block, error) {
	if len(rec) < crypto.ChecksumSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrCorruptRecord, len(rec))
	}
	data := rec[crypto.ChecksumSize:]
	sum := crypto.Checksum(data)
	if !bytes.Equal(sum[:], rec[:crypto.ChecksumSize]) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorruptRecord)
	}
	var blk block.Block
	if err := json.Unmarshal(data, &blk); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return &blk, nil
}

func blockKey(id uint64) []byte {
	key := make([]byte, len(prefixBlock)+8)
	copy(key, prefixBlock)
	binary.BigEndian.PutUint64(key[len(prefixBlock):], id)
	return key
}

func encodeID(id uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], id)
	return buf[:]
}
