// Package transport exposes the registry over REST.
package transport

import (
	"time"

	"github.com/goodnatureofminers/starregistry/internal/ledger"
	"github.com/goodnatureofminers/starregistry/internal/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	// Ledger serves chain reads.
	Ledger interface {
		Height() (uint64, error)
		BlockByHeight(height int64) (model.Block, error)
		BlockByHash(hash string) (model.Block, error)
		ClaimsByAddress(address string) []model.OwnedStar
		Validate() []ledger.Issue
		Export() []model.Block
	}
	// Registrar issues challenges and admits claims.
	Registrar interface {
		RequestChallenge(address string) string
		SubmitClaim(address, message, signature string, star model.Star) (model.Block, error)
	}
	// Metrics records served requests.
	Metrics interface {
		Observe(route, method string, code int, started time.Time)
	}
)
