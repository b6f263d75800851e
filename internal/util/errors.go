// internal/util/errors.go
package util

import (
	"errors"
	"fmt"
)

// Common application-specific errors.
var (
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidInput       = errors.New("invalid input provided")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrSameUserTransfer   = fmt.Errorf("%w: cannot transfer to the same user", ErrInvalidInput)
	ErrStorageConflict    = errors.New("storage conflict")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Kind classifies an error into the ledger's failure taxonomy.
type Kind string

const (
	KindInvalidInput       Kind = "invalid_input"
	KindNotFound           Kind = "not_found"
	KindInsufficientFunds  Kind = "insufficient_funds"
	KindStorageConflict    Kind = "storage_conflict"
	KindStorageUnavailable Kind = "storage_unavailable"
	KindInternal           Kind = "internal"
)

// IsError reports whether err matches target anywhere in its chain.
func IsError(err, target error) bool {
	return errors.Is(err, target)
}

// KindOf returns the taxonomy kind of err. Errors outside the taxonomy are KindInternal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInsufficientFunds):
		return KindInsufficientFunds
	case errors.Is(err, ErrStorageConflict):
		return KindStorageConflict
	case errors.Is(err, ErrStorageUnavailable):
		return KindStorageUnavailable
	default:
		return KindInternal
	}
}

// IsRetryable reports whether the failure came from the storage layer and left no partial write.
func IsRetryable(err error) bool {
	k := KindOf(err)
	return k == KindStorageConflict || k == KindStorageUnavailable
}

// IsBusiness reports whether err is an expected business outcome rather than a fault.
func IsBusiness(err error) bool {
	switch KindOf(err) {
	case KindInvalidInput, KindNotFound, KindInsufficientFunds:
		return true
	}
	return false
}
