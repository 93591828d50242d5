package snapshot

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/goodnatureofminers/starregistry/internal/ledger"
	"github.com/goodnatureofminers/starregistry/internal/model"
)

func testClock() func() time.Time {
	ts := int64(1691239150)
	return func() time.Time {
		ts++
		return time.Unix(ts, 0)
	}
}

func testClaim(i int) model.Body {
	return model.StarClaimBody(model.StarClaim{
		WalletAddress: "owner",
		Message:       fmt.Sprintf("owner:%d:starRegistry", 1691239150+i),
		Signature:     "sig",
		Star:          model.Star{"ra": fmt.Sprintf("%dh", i)},
	})
}

// testChain returns genesis followed by claims valid blocks.
func testChain(t *testing.T, claims int) []model.Block {
	t.Helper()

	store := ledger.New(ledger.WithClock(testClock()))
	if err := store.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	for i := 0; i < claims; i++ {
		if _, err := store.Append(testClaim(i)); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	return store.Export()
}

// memoryRepository keeps the latest row per height, like star_blocks. The first
// failures inserts carrying failHeight are rejected.
type memoryRepository struct {
	mu         sync.Mutex
	rows       map[uint64]model.Block
	failHeight uint64
	failures   int
}

func newMemoryRepository(failHeight uint64, failures int) *memoryRepository {
	return &memoryRepository{rows: make(map[uint64]model.Block), failHeight: failHeight, failures: failures}
}

func (r *memoryRepository) InsertBlocks(_ context.Context, blocks []model.Block) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failures > 0 && slices.ContainsFunc(blocks, func(b model.Block) bool { return b.Height == r.failHeight }) {
		r.failures--
		return errors.New("clickhouse unavailable")
	}
	for _, b := range blocks {
		r.rows[b.Height] = b.Clone()
	}
	return nil
}

func (r *memoryRepository) Blocks(context.Context) ([]model.Block, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	heights := make([]uint64, 0, len(r.rows))
	for h := range r.rows {
		heights = append(heights, h)
	}
	slices.Sort(heights)

	blocks := make([]model.Block, 0, len(heights))
	for _, h := range heights {
		blocks = append(blocks, r.rows[h].Clone())
	}
	return blocks, nil
}

func (r *memoryRepository) MaxBlockHeight(context.Context) (uint64, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.rows) == 0 {
		return 0, false, nil
	}
	var top uint64
	for h := range r.rows {
		top = max(top, h)
	}
	return top, true, nil
}
