// internal/repository/postgres/errors.go
package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/lib/pq"

	"balance-ledger/internal/util"
)

// SQLSTATE codes that mean "another unit got there first, try again".
var conflictCodes = map[pq.ErrorCode]bool{
	"55P03": true, // lock_not_available (lock_timeout)
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"57014": true, // query_canceled (statement_timeout)
}

// classifyError tags infrastructure failures with util.ErrStorageConflict or
// util.ErrStorageUnavailable. Anything else, business errors included, is returned as is.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if util.IsError(err, util.ErrStorageConflict) || util.IsError(err, util.ErrStorageUnavailable) {
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case conflictCodes[pqErr.Code]:
			return fmt.Errorf("%w: %s: %w", util.ErrStorageConflict, pqErr.Code.Name(), err)
		case pqErr.Code.Class() == "08", pqErr.Code.Class() == "57", pqErr.Code.Class() == "53":
			return fmt.Errorf("%w: %s: %w", util.ErrStorageUnavailable, pqErr.Code.Name(), err)
		}
		return err
	}

	// The unit gave up waiting; nothing was written.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", util.ErrStorageConflict, err)
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%w: %w", util.ErrStorageUnavailable, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", util.ErrStorageUnavailable, err)
	}
	return err
}
