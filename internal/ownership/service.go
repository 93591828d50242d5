// Package ownership gates ledger appends behind a signed, time-boxed ownership challenge.
package ownership

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goodnatureofminers/starregistry/internal/clock"
	"github.com/goodnatureofminers/starregistry/internal/model"
	"go.uber.org/zap"
)

const (
	// ChallengeTag is the last component of every challenge message.
	ChallengeTag = "starRegistry"
	// DefaultWindow is how long a challenge stays valid after it was issued.
	DefaultWindow = 5 * time.Minute
)

var (
	// ErrMalformedMessage is returned when a challenge message cannot be parsed.
	ErrMalformedMessage = errors.New("malformed message")
	// ErrExpiredChallenge is returned when a challenge is older than the window.
	ErrExpiredChallenge = errors.New("expired challenge")
	// ErrInvalidSignature is returned when the signature does not prove ownership of the address.
	ErrInvalidSignature = errors.New("invalid signature")
)

// Submission outcomes reported to Metrics.
const (
	OutcomeAccepted         = "accepted"
	OutcomeMalformed        = "malformed"
	OutcomeExpired          = "expired"
	OutcomeInvalidSignature = "invalid_signature"
	OutcomeRejected         = "rejected"
)

// Service issues challenges and admits star claims whose signatures verify.
type Service struct {
	logger   *zap.Logger
	ledger   Ledger
	verifier SignatureVerifier
	metrics  Metrics
	now      clock.Func
	window   time.Duration
}

// NewService builds a Service. A non-positive window selects DefaultWindow.
func NewService(
	ledger Ledger,
	verifier SignatureVerifier,
	metrics Metrics,
	logger *zap.Logger,
	window time.Duration,
) (*Service, error) {
	if ledger == nil {
		return nil, errors.New("ownership ledger is required")
	}
	if verifier == nil {
		return nil, errors.New("ownership signature verifier is required")
	}
	if metrics == nil {
		return nil, errors.New("ownership metrics is required")
	}
	if window <= 0 {
		window = DefaultWindow
	}

	return &Service{
		logger:   logger.Named("ownership"),
		ledger:   ledger,
		verifier: verifier,
		metrics:  metrics,
		now:      clock.System,
		window:   window,
	}, nil
}

// RequestChallenge returns the message address must sign to register a claim.
func (s *Service) RequestChallenge(address string) string {
	return fmt.Sprintf("%s:%d:%s", address, s.now().Unix(), ChallengeTag)
}

// SubmitClaim admits star for address if message is a fresh challenge for address
// and signature proves control of address. Cheap checks run first; the ledger is
// only touched after the signature verified.
func (s *Service) SubmitClaim(address, message, signature string, star model.Star) (block model.Block, err error) {
	started := time.Now()
	outcome := OutcomeAccepted
	defer func() {
		s.metrics.ObserveSubmission(outcome, started)
	}()

	logger := s.logger.With(zap.String("address", address))

	issuedAt, err := parseChallenge(address, message)
	if err != nil {
		outcome = OutcomeMalformed
		logger.Info("claim rejected", zap.String("reason", outcome), zap.Error(err))
		return model.Block{}, err
	}
	if len(star) == 0 {
		outcome = OutcomeMalformed
		return model.Block{}, fmt.Errorf("%w: star payload is empty", ErrMalformedMessage)
	}

	// Bounds are compared against issuedAt directly; now-issuedAt overflows for
	// timestamps near the int64 limits.
	window := int64(s.window / time.Second)
	now := s.now().Unix()
	if issuedAt < now-window {
		outcome = OutcomeExpired
		logger.Info("claim rejected", zap.String("reason", outcome), zap.Int64("issued_at", issuedAt), zap.Int64("now", now))
		return model.Block{}, fmt.Errorf("%w: issued at %d, window is %ds", ErrExpiredChallenge, issuedAt, window)
	}
	if issuedAt > now+window {
		outcome = OutcomeMalformed
		return model.Block{}, fmt.Errorf("%w: challenge issued in the future", ErrMalformedMessage)
	}

	if err = s.verify(message, address, signature); err != nil {
		outcome = OutcomeInvalidSignature
		logger.Warn("claim rejected", zap.String("reason", outcome), zap.Error(err))
		return model.Block{}, err
	}

	block, err = s.ledger.Append(model.StarClaimBody(model.StarClaim{
		WalletAddress: address,
		Message:       message,
		Signature:     signature,
		Star:          star,
	}))
	if err != nil {
		outcome = OutcomeRejected
		logger.Error("append claim", zap.Error(err))
		return model.Block{}, err
	}

	logger.Info("claim registered", zap.Uint64("height", block.Height), zap.String("hash", block.Hash))
	return block, nil
}

func (s *Service) verify(message, address, signature string) (err error) {
	started := time.Now()
	defer func() {
		s.metrics.ObserveVerification(err, started)
	}()

	ok, verifyErr := s.verifier.Verify(message, address, signature)
	if verifyErr != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, verifyErr)
	}
	if !ok {
		return fmt.Errorf("%w: signature does not match address", ErrInvalidSignature)
	}
	return nil
}

// parseChallenge splits "address:timestamp:tag" and returns the issue time in Unix seconds.
func parseChallenge(address, message string) (int64, error) {
	parts := strings.Split(message, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("%w: want address:timestamp:%s", ErrMalformedMessage, ChallengeTag)
	}
	msgAddress, rawTS, tag := parts[0], parts[1], parts[2]
	if msgAddress == "" || rawTS == "" || tag == "" {
		return 0, fmt.Errorf("%w: empty component", ErrMalformedMessage)
	}

	ts, err := strconv.ParseInt(rawTS, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: timestamp %q is not numeric", ErrMalformedMessage, rawTS)
	}
	if msgAddress != address {
		return 0, fmt.Errorf("%w: message is addressed to %s", ErrMalformedMessage, msgAddress)
	}
	if tag != ChallengeTag {
		return 0, fmt.Errorf("%w: unexpected tag %q", ErrMalformedMessage, tag)
	}
	return ts, nil
}
