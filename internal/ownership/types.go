package ownership

import (
	"time"

	"github.com/goodnatureofminers/starregistry/internal/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	// Ledger appends admitted claims.
	Ledger interface {
		Append(body model.Body) (model.Block, error)
	}
	// SignatureVerifier checks that signature over message was produced by the key behind address.
	SignatureVerifier interface {
		Verify(message, address, signature string) (bool, error)
	}
	// Metrics records admission outcomes.
	Metrics interface {
		ObserveSubmission(outcome string, started time.Time)
		ObserveVerification(err error, started time.Time)
	}
)
