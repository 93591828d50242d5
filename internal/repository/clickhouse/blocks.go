package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/starregistry/internal/model"
)

const blocksQuery = `
SELECT height, hash, previous_hash, timestamp, body
FROM star_blocks FINAL
ORDER BY height`

// Blocks returns every stored block ordered by height.
func (r *Repository) Blocks(ctx context.Context) (blocks []model.Block, err error) {
	start := time.Now()
	defer func() {
		r.metrics.Observe("blocks", err, start)
	}()

	rows, err := r.conn.Query(ctx, blocksQuery)
	if err != nil {
		return nil, fmt.Errorf("query blocks: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close rows: %w", closeErr)
		}
	}()

	for rows.Next() {
		var (
			block model.Block
			body  string
		)
		if err = rows.Scan(&block.Height, &block.Hash, &block.PreviousHash, &block.Timestamp, &body); err != nil {
			return nil, fmt.Errorf("scan block: %w", err)
		}
		block.Body = []byte(body)
		blocks = append(blocks, block)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blocks: %w", err)
	}

	return blocks, nil
}
