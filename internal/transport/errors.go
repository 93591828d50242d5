package transport

import (
	"errors"
	"net/http"

	"github.com/goodnatureofminers/starregistry/internal/ledger"
	"github.com/goodnatureofminers/starregistry/internal/ownership"
)

var errInvalidRequest = errors.New("invalid request")

type badRequestError struct {
	msg string
}

func errBadRequest(msg string) error {
	return &badRequestError{msg: msg}
}

func (e *badRequestError) Error() string { return e.msg }

func (e *badRequestError) Unwrap() error { return errInvalidRequest }

// classify maps a domain error to its HTTP status and error kind.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, errInvalidRequest):
		return http.StatusBadRequest, "InvalidRequest"
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound, "NotFound"
	case errors.Is(err, ownership.ErrMalformedMessage):
		return http.StatusBadRequest, "MalformedMessage"
	case errors.Is(err, ownership.ErrInvalidSignature):
		return http.StatusUnauthorized, "InvalidSignature"
	case errors.Is(err, ownership.ErrExpiredChallenge):
		return http.StatusGone, "ExpiredChallenge"
	case errors.Is(err, ledger.ErrChainIntegrityViolation):
		return http.StatusConflict, "ChainIntegrityViolation"
	case errors.Is(err, ledger.ErrImportValidationFailed):
		return http.StatusConflict, "ImportValidationFailed"
	case errors.Is(err, ledger.ErrDecode):
		return http.StatusBadRequest, "DecodeError"
	default:
		return http.StatusInternalServerError, "Internal"
	}
}
