package chain

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/Klingon-tech/powledger/pkg/block"
)

// ErrLengthMismatch is returned when a document's length field disagrees
// with the number of blocks it carries.
var ErrLengthMismatch = errors.New("document length does not match block count")

// Document is the exchange format for a whole chain.
type Document struct {
	Chain  []*block.Block `json:"chain"`
	Length int            `json:"length"`
}

// NewDocument wraps blocks in a Document.
func NewDocument(blocks []*block.Block) Document {
	if blocks == nil {
		blocks = []*block.Block{}
	}
	return Document{Chain: blocks, Length: len(blocks)}
}

// Export writes blocks to w as an indented JSON document.
func Export(w io.Writer, blocks []*block.Block) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewDocument(blocks)); err != nil {
		return fmt.Errorf("encode chain document: %w", err)
	}
	return nil
}

// Import reads a JSON document from r and returns its blocks.
// The blocks are not validated.
func Import(r io.Reader) ([]*block.Block, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode chain document: %w", err)
	}
	if doc.Length != len(doc.Chain) {
		return nil, fmt.Errorf("%w: length %d, %d blocks", ErrLengthMismatch, doc.Length, len(doc.Chain))
	}
	for i, b := range doc.Chain {
		if b == nil {
			return nil, fmt.Errorf("block at index %d: %w", i, ErrNilBlock)
		}
	}
	return doc.Chain, nil
}
