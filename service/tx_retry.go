package service

import (
	"context"
	"fmt"

	"dskdao/database"
	log "github.com/sirupsen/logrus"
)

// withConflictRetry runs fn up to attempts times, retrying from scratch when
// the store reports a serialization failure. Each attempt must be a complete
// read-compute-write cycle with no effects outside its own transaction.
// After exhausting attempts the error surfaces as ErrConflict.
func withConflictRetry(ctx context.Context, attempts int, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(ctx)
		if err == nil || !database.IsSerializationFailure(err) {
			return err
		}

		log.WithFields(log.Fields{
			"attempt":     attempt,
			"maxAttempts": attempts,
			"error":       err,
		}).Warn("Transaction conflict, retrying")
	}

	return fmt.Errorf("%w: gave up after %d attempts: %v", ErrConflict, attempts, err)
}
