// Package ledger holds the hash-linked block chain, its validator and its queries.
package ledger

import "time"

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	// Metrics records ledger activity.
	Metrics interface {
		ObserveAppend(err error, started time.Time)
		ObserveHeight(height uint64)
		ObserveValidation(issues []Issue, started time.Time)
		ObserveDecodeFailure()
	}
)

type nopMetrics struct{}

func (nopMetrics) ObserveAppend(error, time.Time)       {}
func (nopMetrics) ObserveHeight(uint64)                 {}
func (nopMetrics) ObserveValidation([]Issue, time.Time) {}
func (nopMetrics) ObserveDecodeFailure()                {}
