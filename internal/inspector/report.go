// Package inspector scans a stored chain and summarizes its health.
package inspector

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/goodnatureofminers/starregistry/internal/ledger"
	"github.com/goodnatureofminers/starregistry/internal/model"
	"github.com/goodnatureofminers/starregistry/pkg/jsonx"
)

// Report statuses.
const (
	StatusEmpty     = "EMPTY"
	StatusHealthy   = "HEALTHY"
	StatusCorrupted = "CORRUPTED"
)

// Report is the outcome of scanning one chain.
type Report struct {
	ScanTime          time.Time                `json:"scanTime"`
	Source            string                   `json:"source"`
	Blocks            int                      `json:"blocks"`
	TipHeight         uint64                   `json:"tipHeight"`
	Claims            int                      `json:"claims"`
	Owners            int                      `json:"owners"`
	Issues            []ledger.Issue           `json:"issues"`
	IssuesByKind      map[ledger.IssueKind]int `json:"issuesByKind"`
	DuplicateHashes   []string                 `json:"duplicateHashes"`
	UndecodableBodies []uint64                 `json:"undecodableBodies"`
	HealthScore       int                      `json:"healthScore"`
	Status            string                   `json:"status"`
}

// Healthy reports whether the scan found nothing to flag.
func (r Report) Healthy() bool {
	return r.Status == StatusHealthy
}

// Scan validates chain with v and collects ownership and duplicate statistics.
func Scan(source string, chain []model.Block, v *ledger.Validator, scanTime time.Time) Report {
	report := Report{
		ScanTime:          scanTime,
		Source:            source,
		Blocks:            len(chain),
		Issues:            []ledger.Issue{},
		IssuesByKind:      map[ledger.IssueKind]int{},
		DuplicateHashes:   []string{},
		UndecodableBodies: []uint64{},
	}
	if len(chain) == 0 {
		report.Status = StatusEmpty
		return report
	}
	report.TipHeight = chain[len(chain)-1].Height

	bad := map[uint64]struct{}{}
	for _, issue := range v.Validate(chain) {
		report.Issues = append(report.Issues, issue)
		report.IssuesByKind[issue.Kind]++
		bad[issue.Height] = struct{}{}
	}

	seen := make(map[string]int, len(chain))
	owners := map[string]struct{}{}
	for _, b := range chain {
		seen[b.Hash]++
		if seen[b.Hash] == 2 {
			report.DuplicateHashes = append(report.DuplicateHashes, b.Hash)
		}

		body, err := ledger.DecodeBody(b.Body)
		if err != nil {
			report.UndecodableBodies = append(report.UndecodableBodies, b.Height)
			bad[b.Height] = struct{}{}
			continue
		}
		if body.Kind == model.BodyStarClaim && body.Claim != nil {
			report.Claims++
			owners[body.Claim.WalletAddress] = struct{}{}
		}
	}
	report.Owners = len(owners)
	slices.Sort(report.DuplicateHashes)

	report.HealthScore = 100 * (len(chain) - len(bad)) / len(chain)
	if len(bad) == 0 {
		report.Status = StatusHealthy
	} else {
		report.Status = StatusCorrupted
	}
	return report
}

// LoadFile reads a chain in the format served by GET /chain/export.
func LoadFile(path string) ([]model.Block, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read chain file: %w", err)
	}
	var chain []model.Block
	if err := jsonx.Unmarshal(raw, &chain); err != nil {
		return nil, fmt.Errorf("decode chain file %s: %w", path, err)
	}
	return chain, nil
}
