package ledger

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a queried block does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDecode is returned when a block body cannot be decoded.
	ErrDecode = errors.New("decode error")
	// ErrChainIntegrityViolation is returned when an append would leave the chain invalid.
	ErrChainIntegrityViolation = errors.New("chain integrity violation")
	// ErrImportValidationFailed is returned when an imported block sequence is inconsistent.
	ErrImportValidationFailed = errors.New("import validation failed")
)

// ViolationError carries the validator report behind an integrity or import failure.
// It unwraps to ErrChainIntegrityViolation or ErrImportValidationFailed.
type ViolationError struct {
	Err    error
	Issues []Issue
}

func (e *ViolationError) Error() string {
	if len(e.Issues) == 0 {
		return e.Err.Error()
	}
	details := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		details = append(details, issue.String())
	}
	return fmt.Sprintf("%v: %s", e.Err, strings.Join(details, "; "))
}

func (e *ViolationError) Unwrap() error {
	return e.Err
}
