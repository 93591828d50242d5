package ledger

import (
	"fmt"

	"github.com/goodnatureofminers/starregistry/internal/model"
	"go.uber.org/zap"
)

// BodyAt decodes the payload of the block at height.
func (s *Store) BodyAt(height int64) (model.Body, error) {
	block, err := s.BlockByHeight(height)
	if err != nil {
		return model.Body{}, err
	}
	body, err := DecodeBody(block.Body)
	if err != nil {
		return model.Body{}, fmt.Errorf("block %d: %w", block.Height, err)
	}
	return body, nil
}

// StarsByAddress returns the star payloads registered by address, oldest first.
func (s *Store) StarsByAddress(address string) []model.Star {
	claims := s.ClaimsByAddress(address)
	stars := make([]model.Star, 0, len(claims))
	for _, c := range claims {
		stars = append(stars, c.Claim.Star)
	}
	return stars
}

// ClaimsByAddress returns the claims registered by address with their heights, oldest first.
// Blocks whose body cannot be decoded are skipped and logged.
func (s *Store) ClaimsByAddress(address string) []model.OwnedStar {
	out := make([]model.OwnedStar, 0)
	for _, b := range s.snapshot() {
		body, err := DecodeBody(b.Body)
		if err != nil {
			s.metrics.ObserveDecodeFailure()
			s.logger.Warn("skip undecodable block", zap.Uint64("height", b.Height), zap.Error(err))
			continue
		}
		if !body.OwnedBy(address) {
			continue
		}
		out = append(out, model.OwnedStar{Height: b.Height, Claim: *body.Claim})
	}
	return out
}
