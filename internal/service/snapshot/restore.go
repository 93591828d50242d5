package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/goodnatureofminers/starregistry/internal/ledger"
	"github.com/goodnatureofminers/starregistry/internal/model"
	"go.uber.org/zap"
)

// ErrIncompleteSnapshot is returned when the stored chain lacks its genesis block.
var ErrIncompleteSnapshot = errors.New("incomplete snapshot")

// Restore rebuilds the ledger from repo. An empty repository yields a fresh
// chain holding only genesis. A stored chain is restored up to its first missing
// or unlinked height. opts apply to the returned store either way.
func Restore(ctx context.Context, repo Repository, metrics Metrics, logger *zap.Logger, opts ...ledger.Option) (*ledger.Store, error) {
	logger = logger.Named("snapshot_restore")

	maxHeight, ok, err := repo.MaxBlockHeight(ctx)
	if err != nil {
		return nil, fmt.Errorf("read snapshot height: %w", err)
	}
	if !ok {
		store := ledger.New(opts...)
		if err := store.Initialize(); err != nil {
			return nil, err
		}
		metrics.ObserveRestore(0)
		logger.Info("snapshot empty, starting a new chain")
		return store, nil
	}

	blocks, err := repo.Blocks(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	restored := linkedPrefix(blocks)
	if len(restored) == 0 {
		return nil, fmt.Errorf("%w: genesis block is missing", ErrIncompleteSnapshot)
	}
	if len(restored) != len(blocks) || uint64(len(blocks)) != maxHeight+1 {
		logger.Warn("snapshot has a gap, restoring up to it",
			zap.Int("restored", len(restored)),
			zap.Int("skipped", len(blocks)-len(restored)),
			zap.Uint64("stored_height", maxHeight),
		)
	}

	store, err := ledger.Import(restored, opts...)
	if err != nil {
		return nil, fmt.Errorf("import snapshot: %w", err)
	}

	metrics.ObserveRestore(len(restored))
	logger.Info("snapshot restored", zap.Int("blocks", len(restored)), zap.Uint64("height", restored[len(restored)-1].Height))
	return store, nil
}

// linkedPrefix returns the leading blocks that sit at their own position and link
// to their predecessor. A block lost by the writer ends the prefix, and so do stale
// rows left above it by an earlier run.
func linkedPrefix(blocks []model.Block) []model.Block {
	for i, b := range blocks {
		if b.Height != uint64(i) || (i > 0 && b.PreviousHash != blocks[i-1].Hash) {
			return blocks[:i]
		}
	}
	return blocks
}
