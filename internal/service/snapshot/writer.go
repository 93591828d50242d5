package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goodnatureofminers/starregistry/internal/clock"
	"github.com/goodnatureofminers/starregistry/internal/model"
	"github.com/goodnatureofminers/starregistry/pkg/batcher"
	"go.uber.org/zap"
)

const (
	defaultMaxAttempts  = 5
	defaultRetryBackoff = 500 * time.Millisecond
	maxRetryBackoff     = 30 * time.Second
)

// WriterConfig tunes batching and retries of the snapshot writer.
type WriterConfig struct {
	Batch        batcher.Config
	MaxAttempts  int
	RetryBackoff time.Duration
}

// Writer persists committed blocks in the background. Wire Enqueue as the
// ledger commit hook.
type Writer struct {
	logger  *zap.Logger
	repo    Repository
	metrics Metrics
	batcher *batcher.Batcher[model.Block]
	sleep   func(context.Context, time.Duration) error
	ctx     context.Context

	// pending holds blocks whose flush failed; they lead the next flush so the
	// table never skips a height. Only the flush loop touches it while running.
	pending []model.Block

	maxAttempts  int
	retryBackoff time.Duration
}

// NewWriter builds a Writer. Call Start before the first Enqueue.
func NewWriter(repo Repository, metrics Metrics, logger *zap.Logger, cfg WriterConfig) (*Writer, error) {
	if repo == nil {
		return nil, errors.New("snapshot repository is required")
	}
	if metrics == nil {
		return nil, errors.New("snapshot metrics is required")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = defaultRetryBackoff
	}

	w := &Writer{
		logger:       logger.Named("snapshot_writer"),
		repo:         repo,
		metrics:      metrics,
		sleep:        clock.SleepWithContext,
		ctx:          context.Background(),
		maxAttempts:  cfg.MaxAttempts,
		retryBackoff: cfg.RetryBackoff,
	}
	w.batcher = batcher.New(w.logger, cfg.Batch, w.flush, w.hold)
	return w, nil
}

// Start runs the flush loop until ctx is done or Stop is called.
func (w *Writer) Start(ctx context.Context) {
	w.ctx = ctx
	w.batcher.Start(ctx)
}

// Stop flushes buffered blocks and waits for the loop to exit. Blocks still held
// after a last attempt are dropped; Restore recovers the chain up to the first gap.
func (w *Writer) Stop() {
	w.batcher.Stop()
	if len(w.pending) == 0 {
		return
	}
	if err := w.flush(context.WithoutCancel(w.ctx), nil); err != nil {
		held := w.pending
		w.pending = nil
		w.logger.Error("blocks dropped from snapshot",
			zap.Uint64("from_height", held[0].Height),
			zap.Uint64("to_height", held[len(held)-1].Height),
			zap.Error(err),
		)
		w.metrics.ObserveDropped(len(held))
	}
}

// Enqueue buffers a committed block for persistence. It blocks while the
// buffer is full so blocks reach the repository in commit order.
func (w *Writer) Enqueue(block model.Block) {
	if err := w.batcher.Add(w.ctx, block); err != nil {
		w.logger.Error("block not queued for persistence", zap.Uint64("height", block.Height), zap.Error(err))
		w.metrics.ObserveDropped(1)
	}
}

func (w *Writer) flush(ctx context.Context, blocks []model.Block) (err error) {
	batch := append(w.pending[:len(w.pending):len(w.pending)], blocks...)
	started := time.Now()
	defer func() {
		w.metrics.ObserveFlush(err, len(batch), started)
	}()

	backoff := w.retryBackoff
	for attempt := 1; ; attempt++ {
		if err = w.repo.InsertBlocks(ctx, batch); err == nil {
			w.pending = nil
			return nil
		}
		if attempt >= w.maxAttempts {
			w.pending = batch
			return fmt.Errorf("insert %d blocks after %d attempts: %w", len(batch), attempt, err)
		}

		w.logger.Warn("insert blocks failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		if sleepErr := w.sleep(ctx, backoff); sleepErr != nil {
			w.pending = batch
			return fmt.Errorf("insert %d blocks: %w", len(batch), errors.Join(err, sleepErr))
		}
		backoff = min(backoff*2, maxRetryBackoff)
	}
}

func (w *Writer) hold(_ []model.Block, err error) {
	w.logger.Warn("blocks held for the next flush",
		zap.Uint64("from_height", w.pending[0].Height),
		zap.Uint64("to_height", w.pending[len(w.pending)-1].Height),
		zap.Error(err),
	)
}
