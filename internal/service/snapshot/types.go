// Package snapshot mirrors the ledger into durable storage and restores it at startup.
package snapshot

import (
	"context"
	"time"

	"github.com/goodnatureofminers/starregistry/internal/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	// Repository is the durable block store.
	Repository interface {
		InsertBlocks(ctx context.Context, blocks []model.Block) error
		Blocks(ctx context.Context) ([]model.Block, error)
		MaxBlockHeight(ctx context.Context) (uint64, bool, error)
	}
	// Metrics records persistence activity.
	Metrics interface {
		ObserveFlush(err error, blocks int, started time.Time)
		ObserveDropped(blocks int)
		ObserveRestore(blocks int)
	}
)
