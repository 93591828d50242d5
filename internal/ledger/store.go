package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/goodnatureofminers/starregistry/internal/clock"
	"github.com/goodnatureofminers/starregistry/internal/model"
	"github.com/goodnatureofminers/starregistry/pkg/safe"
	"go.uber.org/zap"
)

// Store owns the ordered block sequence. Appends are serialized; readers work on
// immutable snapshots and never observe a staged block.
type Store struct {
	logger    *zap.Logger
	metrics   Metrics
	validator *Validator
	now       clock.Func
	onCommit  func(model.Block)

	writeMu sync.Mutex
	mu      sync.RWMutex
	blocks  []model.Block
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithMetrics sets the metrics sink.
func WithMetrics(metrics Metrics) Option {
	return func(s *Store) { s.metrics = metrics }
}

// WithClock overrides the time source used for block timestamps.
func WithClock(now clock.Func) Option {
	return func(s *Store) { s.now = now }
}

// WithValidator overrides the chain validator.
func WithValidator(v *Validator) Option {
	return func(s *Store) { s.validator = v }
}

// WithCommitHook registers fn to receive every committed block, in commit order.
// fn runs while the append lock is held and must not call back into the store's
// mutating methods.
func WithCommitHook(fn func(model.Block)) Option {
	return func(s *Store) { s.onCommit = fn }
}

// New returns an empty store. Call Initialize to create the genesis block.
func New(opts ...Option) *Store {
	s := &Store{
		logger:    zap.NewNop(),
		metrics:   nopMetrics{},
		validator: NewValidator(1, 0),
		now:       clock.System,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("ledger")
	return s
}

// Import rebuilds a store from an exported sequence, rejecting sequences that fail validation.
func Import(blocks []model.Block, opts ...Option) (*Store, error) {
	s := New(opts...)
	if len(blocks) == 0 {
		return nil, &ViolationError{Err: fmt.Errorf("%w: empty chain", ErrImportValidationFailed)}
	}

	chain := model.CloneBlocks(blocks)
	started := time.Now()
	issues := s.validator.Validate(chain)
	s.metrics.ObserveValidation(issues, started)
	if len(issues) > 0 {
		s.logger.Warn("import rejected", zap.Int("blocks", len(chain)), zap.Int("issues", len(issues)))
		return nil, &ViolationError{Err: ErrImportValidationFailed, Issues: issues}
	}

	s.blocks = chain
	s.metrics.ObserveHeight(chain[len(chain)-1].Height)
	s.logger.Info("chain imported", zap.Int("blocks", len(chain)))
	return s, nil
}

// Initialize appends the genesis block to an empty chain. It is a no-op otherwise.
func (s *Store) Initialize() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if len(s.snapshot()) > 0 {
		return nil
	}
	block, err := s.append(model.GenesisBody())
	if err != nil {
		return fmt.Errorf("create genesis block: %w", err)
	}
	s.logger.Info("genesis block created", zap.String("hash", block.Hash))
	return nil
}

// Append stages body as the next block, validates the staged chain and commits it.
// On a non-empty validation report nothing is committed and a *ViolationError
// wrapping ErrChainIntegrityViolation is returned. An empty chain gets its genesis
// block first, so height 0 is always genesis.
func (s *Store) Append(body model.Body) (model.Block, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if len(s.snapshot()) == 0 && body.Kind != model.BodyGenesis {
		genesis, err := s.append(model.GenesisBody())
		if err != nil {
			return model.Block{}, fmt.Errorf("create genesis block: %w", err)
		}
		s.logger.Info("genesis block created on first append", zap.String("hash", genesis.Hash))
	}
	return s.append(body)
}

func (s *Store) append(body model.Body) (block model.Block, err error) {
	started := time.Now()
	defer func() {
		s.metrics.ObserveAppend(err, started)
	}()

	current := s.snapshot()
	block = model.Block{
		Height:    uint64(len(current)),
		Timestamp: s.now().Unix(),
	}
	if n := len(current); n > 0 {
		block.PreviousHash = current[n-1].Hash
	}
	if block.Body, err = EncodeBody(body); err != nil {
		return model.Block{}, err
	}
	if block.Hash, err = Digest(block); err != nil {
		return model.Block{}, err
	}

	// Full slice expression forces a fresh backing array, so readers holding
	// the current snapshot never see the staged tail.
	staged := append(current[:len(current):len(current)], block)

	validationStarted := time.Now()
	issues := s.validator.Validate(staged)
	s.metrics.ObserveValidation(issues, validationStarted)
	if len(issues) > 0 {
		s.logger.Error("append rolled back",
			zap.Uint64("height", block.Height),
			zap.Int("issues", len(issues)),
			zap.Stringer("first_issue", issues[0]),
		)
		return model.Block{}, &ViolationError{Err: ErrChainIntegrityViolation, Issues: issues}
	}

	s.mu.Lock()
	s.blocks = staged
	s.mu.Unlock()

	s.metrics.ObserveHeight(block.Height)
	s.logger.Debug("block committed", zap.Uint64("height", block.Height), zap.String("hash", block.Hash))
	if s.onCommit != nil {
		s.onCommit(block.Clone())
	}
	return block.Clone(), nil
}

func (s *Store) snapshot() []model.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.blocks
}

// Height returns the highest block index.
func (s *Store) Height() (uint64, error) {
	chain := s.snapshot()
	if len(chain) == 0 {
		return 0, fmt.Errorf("chain is empty: %w", ErrNotFound)
	}
	return uint64(len(chain) - 1), nil
}

// BlockByHeight returns the block at height.
func (s *Store) BlockByHeight(height int64) (model.Block, error) {
	chain := s.snapshot()
	h, err := safe.Uint64(height)
	if err != nil || h >= uint64(len(chain)) {
		return model.Block{}, fmt.Errorf("block at height %d: %w", height, ErrNotFound)
	}
	return chain[h].Clone(), nil
}

// BlockByHash returns the lowest block carrying hash.
func (s *Store) BlockByHash(hash string) (model.Block, error) {
	for _, b := range s.snapshot() {
		if b.Hash == hash {
			return b.Clone(), nil
		}
	}
	return model.Block{}, fmt.Errorf("block with hash %s: %w", hash, ErrNotFound)
}

// BlocksByHash returns every block carrying hash in height order. Uniqueness is not
// enforced, so colliding content would yield more than one match.
func (s *Store) BlocksByHash(hash string) []model.Block {
	var out []model.Block
	for _, b := range s.snapshot() {
		if b.Hash == hash {
			out = append(out, b.Clone())
		}
	}
	return out
}

// Export returns a deep copy of the chain in height order.
func (s *Store) Export() []model.Block {
	return model.CloneBlocks(s.snapshot())
}

// Validate checks the committed chain and returns every defect found.
func (s *Store) Validate() []Issue {
	started := time.Now()
	issues := s.validator.Validate(s.snapshot())
	s.metrics.ObserveValidation(issues, started)
	return issues
}
