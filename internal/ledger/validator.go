package ledger

import (
	"context"
	"fmt"

	"github.com/goodnatureofminers/starregistry/internal/model"
	"github.com/goodnatureofminers/starregistry/pkg/workerpool"
)

// IssueKind classifies a chain defect.
type IssueKind string

var (
	// IssueTamperedBlock marks a block whose stored hash does not match its content.
	IssueTamperedBlock IssueKind = "TamperedBlock"
	// IssueBrokenLinkage marks a block whose previous hash does not match its predecessor.
	IssueBrokenLinkage IssueKind = "BrokenLinkage"
	// IssueHeightMismatch marks a block whose height differs from its chain position.
	IssueHeightMismatch IssueKind = "HeightMismatch"
)

// Issue is one entry of a validation report. Height is the chain position.
type Issue struct {
	Height uint64    `json:"height"`
	Kind   IssueKind `json:"kind"`
	Detail string    `json:"detail"`
}

func (i Issue) String() string {
	return fmt.Sprintf("height %d: %s: %s", i.Height, i.Kind, i.Detail)
}

const defaultParallelThreshold = 512

// Validator recomputes digests and linkage over a whole chain.
type Validator struct {
	workers   int
	threshold int
}

// NewValidator builds a Validator. Chains of at least parallelThreshold blocks are
// checked by up to workers goroutines; workers <= 1 keeps the scan sequential.
func NewValidator(workers, parallelThreshold int) *Validator {
	if parallelThreshold <= 0 {
		parallelThreshold = defaultParallelThreshold
	}
	return &Validator{workers: workers, threshold: parallelThreshold}
}

// Validate returns every defect in chain, ordered by height. An empty report means
// the chain is healthy. It never mutates chain and never stops at the first defect.
func (v *Validator) Validate(chain []model.Block) []Issue {
	if len(chain) == 0 {
		return nil
	}

	perBlock := make([][]Issue, len(chain))
	if v.workers <= 1 || len(chain) < v.threshold {
		for i := range chain {
			perBlock[i] = checkBlock(chain, i)
		}
	} else {
		// Range joins all workers before returning; perBlock is complete afterwards.
		_ = workerpool.Range(context.Background(), v.workers, len(chain), func(_ context.Context, i int) error {
			perBlock[i] = checkBlock(chain, i)
			return nil
		})
	}

	var report []Issue
	for _, issues := range perBlock {
		report = append(report, issues...)
	}
	return report
}

func checkBlock(chain []model.Block, i int) []Issue {
	b := chain[i]
	position := uint64(i)
	var issues []Issue

	digest, err := Digest(b)
	switch {
	case err != nil:
		issues = append(issues, Issue{Height: position, Kind: IssueTamperedBlock, Detail: err.Error()})
	case digest != b.Hash:
		issues = append(issues, Issue{
			Height: position,
			Kind:   IssueTamperedBlock,
			Detail: fmt.Sprintf("stored hash %s, computed %s", b.Hash, digest),
		})
	}

	if i == 0 {
		if b.PreviousHash != "" {
			issues = append(issues, Issue{
				Height: position,
				Kind:   IssueBrokenLinkage,
				Detail: fmt.Sprintf("genesis references previous hash %s", b.PreviousHash),
			})
		}
	} else if prev := chain[i-1]; b.PreviousHash != prev.Hash {
		issues = append(issues, Issue{
			Height: position,
			Kind:   IssueBrokenLinkage,
			Detail: fmt.Sprintf("previous hash %s, block %d has hash %s", b.PreviousHash, i-1, prev.Hash),
		})
	}

	if b.Height != position {
		issues = append(issues, Issue{
			Height: position,
			Kind:   IssueHeightMismatch,
			Detail: fmt.Sprintf("stored height %d", b.Height),
		})
	}

	return issues
}
