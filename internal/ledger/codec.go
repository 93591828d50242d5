package ledger

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/goodnatureofminers/starregistry/internal/model"
	"github.com/goodnatureofminers/starregistry/pkg/jsonx"
)

// content is the hashed view of a block. It has no hash field, so a block's
// digest can never depend on its own stored hash.
type content struct {
	Height       uint64 `json:"height"`
	Timestamp    int64  `json:"time"`
	PreviousHash string `json:"previousBlockHash"`
	Body         []byte `json:"body"`
}

// Digest returns the hex double-SHA256 of the block's canonical content.
func Digest(b model.Block) (string, error) {
	raw, err := jsonx.Marshal(content{
		Height:       b.Height,
		Timestamp:    b.Timestamp,
		PreviousHash: b.PreviousHash,
		Body:         b.Body,
	})
	if err != nil {
		return "", fmt.Errorf("marshal block content: %w", err)
	}
	return chainhash.DoubleHashH(raw).String(), nil
}

// EncodeBody serializes a block payload.
func EncodeBody(body model.Body) ([]byte, error) {
	if err := checkBody(body); err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	raw, err := jsonx.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	return raw, nil
}

// DecodeBody parses a block payload produced by EncodeBody.
func DecodeBody(raw []byte) (model.Body, error) {
	var body model.Body
	if err := jsonx.Unmarshal(raw, &body); err != nil {
		return model.Body{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if err := checkBody(body); err != nil {
		return model.Body{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return body, nil
}

func checkBody(body model.Body) error {
	switch body.Kind {
	case model.BodyGenesis:
		if body.Claim != nil {
			return fmt.Errorf("genesis body carries a star claim")
		}
	case model.BodyStarClaim:
		if body.Claim == nil {
			return fmt.Errorf("star claim body has no claim")
		}
		if body.Data != "" {
			return fmt.Errorf("star claim body carries genesis data")
		}
	default:
		return fmt.Errorf("unknown body kind %q", body.Kind)
	}
	return nil
}
