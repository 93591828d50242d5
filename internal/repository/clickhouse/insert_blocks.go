package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/starregistry/internal/model"
)

const insertBlocksQuery = `
INSERT INTO star_blocks (
	height,
	hash,
	previous_hash,
	timestamp,
	body
) VALUES`

// InsertBlocks stores block rows in ClickHouse.
func (r *Repository) InsertBlocks(ctx context.Context, blocks []model.Block) error {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("insert_blocks", err, start)
	}()

	if len(blocks) == 0 {
		return nil
	}

	batch, err := r.conn.PrepareBatch(ctx, insertBlocksQuery)
	if err != nil {
		return fmt.Errorf("prepare blocks batch: %w", err)
	}

	for _, block := range blocks {
		if err = batch.Append(
			block.Height,
			block.Hash,
			block.PreviousHash,
			block.Timestamp,
			string(block.Body),
		); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("append block %d: %w", block.Height, err)
		}
	}

	if err = batch.Send(); err != nil {
		return fmt.Errorf("insert blocks: %w", err)
	}
	return nil
}
