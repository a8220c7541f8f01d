package chain

import (
	"github.com/Klingon-tech/powledger/internal/log"
	"github.com/Klingon-tech/powledger/pkg/block"
)

// SelectChain picks between a local and a remote chain.
//
// When both are valid the strictly longer local chain wins and anything else
// selects remote, so equal lengths favour remote. When only one is valid it
// wins. When neither is valid nothing is selected and ok is false.
// Neither input is modified; the returned slice is one of the arguments.
func SelectChain(local, remote []*block.Block) (selected []*block.Block, ok bool) {
	localValid := IsChainValid(local)
	remoteValid := IsChainValid(remote)

	ev := log.Chain.Debug().
		Int("local_len", len(local)).
		Bool("local_valid", localValid).
		Int("remote_len", len(remote)).
		Bool("remote_valid", remoteValid)

	switch {
	case localValid && remoteValid:
		if len(local) > len(remote) {
			ev.Str("selected", "local").Msg("Fork choice")
			return local, true
		}
		ev.Str("selected", "remote").Msg("Fork choice")
		return remote, true
	case localValid:
		ev.Str("selected", "local").Msg("Fork choice")
		return local, true
	case remoteValid:
		ev.Str("selected", "remote").Msg("Fork choice")
		return remote, true
	default:
		ev.Msg("Fork choice: neither chain is valid")
		return nil, false
	}
}

// sameChain reports whether a and b are the same slice.
func sameChain(a, b []*block.Block) bool {
	if len(a) != len(b) {
		return false
	}
	return len(a) == 0 || &a[0] == &b[0]
}
