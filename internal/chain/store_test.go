package chain

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/Klingon-tech/powledger/internal/storage"
	"github.com/Klingon-tech/powledger/pkg/block"
)

func TestBlockStore_RoundTrip(t *testing.T) {
	bs := NewBlockStore(storage.NewMemory())

	if _, ok, err := bs.Tip(); ok || err != nil {
		t.Fatalf("Tip on empty store = %v, %v", ok, err)
	}
	blocks, err := bs.LoadBlocks()
	if err != nil || len(blocks) != 0 {
		t.Fatalf("LoadBlocks on empty store = %d, %v", len(blocks), err)
	}

	want := seededChain(t, "a", "b").Blocks()
	for _, b := range want {
		if err := bs.PutBlock(b); err != nil {
			t.Fatalf("PutBlock(%d): %v", b.ID, err)
		}
	}
	tip, ok, err := bs.Tip()
	if err != nil || !ok || tip != 3 {
		t.Fatalf("Tip = %d, %v, %v; want 3", tip, ok, err)
	}
	got, err := bs.LoadBlocks()
	if err != nil {
		t.Fatalf("LoadBlocks: %v", err)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("block %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestBlockStore_GetMissing(t *testing.T) {
	bs := NewBlockStore(storage.NewMemory())
	if _, err := bs.GetBlock(4); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetBlock error = %v, want ErrNotFound", err)
	}
}

func TestBlockStore_Corruption(t *testing.T) {
	db := storage.NewMemory()
	bs := NewBlockStore(db)
	bs.PutBlock(block.Genesis())

	t.Run("Checksum", func(t *testing.T) {
		raw, _ := db.Get(blockKey(1))
		raw[len(raw)-3] ^= 0x01
		db.Put(blockKey(1), raw)
		if _, err := bs.GetBlock(1); !errors.Is(err, ErrCorruptRecord) {
			t.Errorf("GetBlock error = %v, want ErrCorruptRecord", err)
		}
	})

	t.Run("Short", func(t *testing.T) {
		db.Put(blockKey(1), []byte{1, 2, 3})
		if _, err := bs.GetBlock(1); !errors.Is(err, ErrCorruptRecord) {
			t.Errorf("GetBlock error = %v, want ErrCorruptRecord", err)
		}
	})

	t.Run("WrongKey", func(t *testing.T) {
		rec, _ := encodeRecord(block.Genesis())
		db.Put(blockKey(2), rec)
		if _, err := bs.GetBlock(2); !errors.Is(err, ErrCorruptRecord) {
			t.Errorf("GetBlock error = %v, want ErrCorruptRecord", err)
		}
	})

	t.Run("Tip", func(t *testing.T) {
		db.Put(keyTip, []byte{1})
		if _, _, err := bs.Tip(); !errors.Is(err, ErrCorruptRecord) {
			t.Errorf("Tip error = %v, want ErrCorruptRecord", err)
		}
	})
}

func TestBlockStore_ReplaceAll(t *testing.T) {
	db := storage.NewMemory()
	bs := NewBlockStore(db)
	for _, b := range seededChain(t, "a", "b", "c").Blocks() {
		bs.PutBlock(b)
	}

	shorter := seededChain(t, "x").Blocks()
	if err := bs.ReplaceAll(shorter); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	got, err := bs.LoadBlocks()
	if err != nil {
		t.Fatalf("LoadBlocks: %v", err)
	}
	if len(got) != 2 || got[1].Data != "x" {
		t.Fatalf("LoadBlocks = %d blocks, want 2 ending in x", len(got))
	}
	for _, id := range []uint64{3, 4} {
		if ok, _ := db.Has(blockKey(id)); ok {
			t.Errorf("stale block %d left behind", id)
		}
	}

	if err := bs.ReplaceAll(got[1:]); !errors.Is(err, ErrNonSequentialID) {
		t.Errorf("ReplaceAll without genesis error = %v, want ErrNonSequentialID", err)
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	db, err := storage.NewBadger(dir)
	if err != nil {
		t.Fatalf("NewBadger: %v", err)
	}

	c := New(WithStore(NewBlockStore(db)))
	if err := c.SeedGenesis(); err != nil {
		t.Fatalf("SeedGenesis: %v", err)
	}
	tip, _ := c.Tip()
	if err := c.TryAppend(mineNext(t, tip, "Ayush")); err != nil {
		t.Fatalf("TryAppend: %v", err)
	}
	db.Close()

	db2, err := storage.NewBadger(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db2.Close()

	reopened, err := Open(NewBlockStore(db2))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if reopened.Len() != 2 {
		t.Fatalf("Len = %d, want 2", reopened.Len())
	}
	b, _ := reopened.Block(2)
	if b.Data != "Ayush" {
		t.Errorf("block 2 Data = %q", b.Data)
	}
	if err := reopened.SeedGenesis(); !errors.Is(err, ErrAlreadySeeded) {
		t.Errorf("SeedGenesis on reopened chain = %v, want ErrAlreadySeeded", err)
	}
}

func TestOpen_Rejects(t *testing.T) {
	t.Run("WrongGenesis", func(t *testing.T) {
		bs := NewBlockStore(storage.NewMemory())
		g := block.Genesis()
		g.Data = "someone else's genesis"
		bs.PutBlock(g)
		if _, err := Open(bs); !errors.Is(err, ErrGenesisMismatch) {
			t.Errorf("Open error = %v, want ErrGenesisMismatch", err)
		}
	})

	t.Run("InvalidChain", func(t *testing.T) {
		bs := NewBlockStore(storage.NewMemory())
		blocks := seededChain(t, "a", "b").Blocks()
		bad := *blocks[2]
		bad.Data = "rewritten"
		blocks[2] = &bad
		for _, b := range blocks {
			bs.PutBlock(b)
		}
		if _, err := Open(bs); !errors.Is(err, ErrHashMismatch) {
			t.Errorf("Open error = %v, want ErrHashMismatch", err)
		}
	})

	for _, tip := range []uint64{math.MaxUint64, 1_000_000_000, 2} {
		t.Run(fmt.Sprintf("BogusTip%d", tip), func(t *testing.T) {
			db := storage.NewMemory()
			bs := NewBlockStore(db)
			bs.PutBlock(block.Genesis())
			db.Put(keyTip, encodeID(tip))

			if _, err := Open(bs); !errors.Is(err, ErrCorruptRecord) {
				t.Errorf("Open error = %v, want ErrCorruptRecord", err)
			}
		})
	}
}

// failingDB fails every write after the first n.
type failingDB struct {
	*storage.MemoryDB
	n int
}

func (f *failingDB) Put(key, value []byte) error {
	if f.n <= 0 {
		return errors.New("disk full")
	}
	f.n--
	return f.MemoryDB.Put(key, value)
}

func TestTryAppend_PersistFailureRollsBack(t *testing.T) {
	// Not a Batcher, so PutBlock goes through Put and fails on the next write.
	db := struct{ storage.DB }{&failingDB{MemoryDB: storage.NewMemory(), n: 2}}
	c := New(WithStore(NewBlockStore(db)))
	if err := c.SeedGenesis(); err != nil {
		t.Fatalf("SeedGenesis: %v", err)
	}
	tip, _ := c.Tip()
	if err := c.TryAppend(mineNext(t, tip, "lost")); err == nil {
		t.Fatal("TryAppend succeeded with failing store")
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d after failed persist, want 1", c.Len())
	}
}

func TestAdopt_Persists(t *testing.T) {
	db := storage.NewMemory()
	local := New(WithStore(NewBlockStore(db)))
	local.SeedGenesis()

	remote := seededChain(t, "a", "b").Blocks()
	changed, err := local.Adopt(remote)
	if err != nil || !changed {
		t.Fatalf("Adopt = %v, %v", changed, err)
	}
	reopened, err := Open(NewBlockStore(db))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if reopened.Len() != 3 {
		t.Errorf("stored Len = %d, want 3", reopened.Len())
	}
}

func TestAdopt_StoreRequiresGenesis(t *testing.T) {
	local := New(WithStore(NewBlockStore(storage.NewMemory())))
	local.SeedGenesis()

	foreign := seededChain(t, "a", "b").Blocks()[1:]
	if changed, err := local.Adopt(foreign); changed || !errors.Is(err, ErrGenesisMismatch) {
		t.Errorf("Adopt = %v, %v; want false, ErrGenesisMismatch", changed, err)
	}
}
