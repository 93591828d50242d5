// Package model defines the ledger's domain records.
package model

import "bytes"

// Block is a height-indexed, hash-linked ledger record.
type Block struct {
	Height       uint64 `json:"height"`
	Timestamp    int64  `json:"time"`
	PreviousHash string `json:"previousBlockHash,omitempty"`
	Hash         string `json:"hash"`
	Body         []byte `json:"body"`
}

// IsGenesis reports whether b sits at height 0.
func (b Block) IsGenesis() bool {
	return b.Height == 0
}

// Clone returns a copy that shares no memory with b.
func (b Block) Clone() Block {
	out := b
	if b.Body != nil {
		out.Body = bytes.Clone(b.Body)
	}
	return out
}

// CloneBlocks deep-copies a block sequence.
func CloneBlocks(blocks []Block) []Block {
	out := make([]Block, len(blocks))
	for i := range blocks {
		out[i] = blocks[i].Clone()
	}
	return out
}
