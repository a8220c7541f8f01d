package chain

import (
	"testing"

	"github.com/Klingon-tech/powledger/pkg/block"
)

func TestSelectChain(t *testing.T) {
	short := seededChain(t, "a").Blocks()
	long := seededChain(t, "a", "b").Blocks()
	other := seededChain(t, "x").Blocks()

	invalid := seededChain(t, "a", "b", "c").Blocks()
	forged := *invalid[1]
	forged.Data = "forged"
	invalid[1] = &forged

	tests := []struct {
		name   string
		local  []*block.Block
		remote []*block.Block
		want   []*block.Block
		ok     bool
	}{
		{"LocalLonger", long, short, long, true},
		{"RemoteLonger", short, long, long, true},
		{"TieGoesToRemote", short, other, other, true},
		{"OnlyLocalValid", short, invalid, short, true},
		{"OnlyRemoteValid", invalid, short, short, true},
		{"NeitherValid", invalid, invalid, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SelectChain(tt.local, tt.remote)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !sameChain(got, tt.want) {
				t.Errorf("SelectChain returned len %d, want len %d", len(got), len(tt.want))
			}
		})
	}
}

func TestSelectChain_DoesNotMutate(t *testing.T) {
	local := seededChain(t, "a").Blocks()
	remote := seededChain(t, "a", "b").Blocks()
	l0, r0 := len(local), len(remote)

	c := New()
	c.SelectChain(local, remote)
	if len(local) != l0 || len(remote) != r0 {
		t.Error("inputs changed length")
	}
	if c.Len() != 0 {
		t.Error("SelectChain modified the receiver")
	}
}

func TestSelectChain_Self(t *testing.T) {
	blocks := seededChain(t, "a").Blocks()
	got, ok := SelectChain(blocks, blocks)
	if !ok || !sameChain(got, blocks) {
		t.Errorf("SelectChain(self, self) = %d blocks, %v", len(got), ok)
	}
}
