package repository

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrDuplicateKey reports a unique constraint violation.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrConcurrentUpdate reports a serialization failure, deadlock or lock timeout.
	// The whole transaction may be retried.
	ErrConcurrentUpdate = errors.New("concurrent update")

	// ErrInsufficientStock reports a guarded stock decrement that matched no row.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Postgres SQLSTATE codes the repositories translate.
const (
	pqUniqueViolation      = "23505"
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
	pqLockNotAvailable     = "55P03"
)

// translateError maps driver errors onto the package sentinels, keeping the original in the chain.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch string(pqErr.Code) {
	case pqUniqueViolation:
		return errors.Join(ErrDuplicateKey, err)
	case pqSerializationFailure, pqDeadlockDetected, pqLockNotAvailable:
		return errors.Join(ErrConcurrentUpdate, err)
	}
	return err
}
