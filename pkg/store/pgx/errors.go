package pgx

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/OFFIS-RIT/nafstore/pkg/layer"
	"github.com/jackc/pgx/v5/pgconn"
)

// classify maps driver errors onto layer.ErrStoreUnavailable and
// layer.ErrWriteFailed. Context errors pass through unchanged.
func classify(err error, write bool) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "23"):
			// integrity constraint violation, e.g. 23505 unique_violation
			return fmt.Errorf("%w: %s (%s)", layer.ErrWriteFailed, pgErr.Message, pgErr.Code)
		case strings.HasPrefix(pgErr.Code, "08"), strings.HasPrefix(pgErr.Code, "53"),
			pgErr.Code == "57P01", pgErr.Code == "57P03", pgErr.Code == "42P01":
			return fmt.Errorf("%w: %s (%s)", layer.ErrStoreUnavailable, pgErr.Message, pgErr.Code)
		}
		if write {
			return fmt.Errorf("%w: %s (%s)", layer.ErrWriteFailed, pgErr.Message, pgErr.Code)
		}
		return fmt.Errorf("%w: %s (%s)", layer.ErrStoreUnavailable, pgErr.Message, pgErr.Code)
	}

	var netErr net.Error
	if pgconn.Timeout(err) || errors.As(err, &netErr) || pgconn.SafeToRetry(err) {
		return fmt.Errorf("%w: %v", layer.ErrStoreUnavailable, err)
	}
	if write {
		return fmt.Errorf("%w: %v", layer.ErrWriteFailed, err)
	}
	return fmt.Errorf("%w: %v", layer.ErrStoreUnavailable, err)
}
