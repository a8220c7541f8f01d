package rpc

import (
	"context"
	"errors"
	"fmt"

	"github.com/Klingon-tech/powledger/internal/chain"
	"github.com/Klingon-tech/powledger/internal/miner"
	"github.com/Klingon-tech/powledger/pkg/block"
)

// ── Chain endpoints ─────────────────────────────────────────────────────

func (s *Server) handleChainGetInfo(_ *Request) (interface{}, *Error) {
	info := &InfoResult{
		Length: s.chain.Len(),
		Height: s.chain.Height(),
		Prefix: block.Prefix,
	}
	if tip, ok := s.chain.Tip(); ok {
		info.TipHash = tip.Hash
	}
	return info, nil
}

func (s *Server) handleChainGetChain(_ *Request) (interface{}, *Error) {
	doc := chain.NewDocument(s.chain.Blocks())
	return &doc, nil
}

func (s *Server) handleChainGetBlock(req *Request) (interface{}, *Error) {
	var params IDParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	blk, ok := s.chain.Block(params.ID)
	if !ok {
		return nil, &Error{Code: CodeNotFound, Message: fmt.Sprintf("block %d not found", params.ID)}
	}
	return blk, nil
}

func (s *Server) handleChainIsValid(_ *Request) (interface{}, *Error) {
	if err := s.chain.Validate(); err != nil {
		return &ValidResult{Valid: false, Reason: err.Error()}, nil
	}
	return &ValidResult{Valid: true}, nil
}

func (s *Server) handleChainMineBlock(ctx context.Context, req *Request) (interface{}, *Error) {
	if s.miner == nil {
		return nil, &Error{Code: CodeInvalidRequest, Message: "mining is disabled on this server"}
	}
	var params DataParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}

	s.mineMu.Lock()
	defer s.mineMu.Unlock()

	blk, err := s.miner.Extend(ctx, params.Data)
	if err != nil {
		if errors.Is(err, miner.ErrNoTip) {
			return nil, &Error{Code: CodeRejected, Message: err.Error()}
		}
		if ctx.Err() != nil {
			return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("mining aborted: %v", err)}
		}
		return nil, &Error{Code: CodeRejected, Message: fmt.Sprintf("block rejected: %v", err)}
	}
	return &MineResult{Message: "Congratulations, you have mined a block", Block: blk}, nil
}

func (s *Server) handleChainSubmitBlock(req *Request) (interface{}, *Error) {
	var params BlockParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.Block == nil {
		return nil, &Error{Code: CodeInvalidParams, Message: "block is required"}
	}
	if err := s.chain.TryAppend(params.Block); err != nil {
		return nil, &Error{
			Code:    CodeRejected,
			Message: fmt.Sprintf("block rejected: %v", err),
			Data:    chain.RejectReason(err),
		}
	}
	return &MineResult{Message: "Block accepted", Block: params.Block}, nil
}

func (s *Server) handleChainSelectChain(req *Request) (interface{}, *Error) {
	var params ChainParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	local := s.chain.Blocks()
	selected, ok := s.chain.SelectChain(local, params.Chain)
	switch {
	case !ok:
		return &SelectResult{Selected: "none"}, nil
	case len(selected) == len(params.Chain) && (len(selected) == 0 || selected[0] == params.Chain[0]):
		return &SelectResult{Selected: "remote", Length: len(selected)}, nil
	default:
		return &SelectResult{Selected: "local", Length: len(selected)}, nil
	}
}

func (s *Server) handleChainAdopt(req *Request) (interface{}, *Error) {
	var params ChainParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	for i, b := range params.Chain {
		if b == nil {
			return nil, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("block at index %d is null", i)}
		}
	}
	replaced, err := s.chain.Adopt(params.Chain)
	if err != nil {
		return nil, &Error{Code: CodeRejected, Message: err.Error()}
	}
	return &AdoptResult{Replaced: replaced, Length: s.chain.Len()}, nil
}
