package db

import (
	"context"
	"fmt"
	"log"
	"time"
)

// PruneOldData deletes metric and trap rows older than the retention
// window. Both deletes commit together so a crash between them can never
// leave one table pruned and the other not.
func (s *PostgresStore) PruneOldData(ctx context.Context, retention time.Duration) error {
	tx, err := s.begin(ctx)
	if err != nil {
		return err
	}

	return pruneTx(ctx, tx, time.Now().Add(-retention))
}

// pruneTx runs the two retention deletes inside tx, committing on success
// and rolling back on any failure. The return value is named so the
// deferred commit's own error reaches the caller instead of being
// discarded once the delete statements have already returned nil.
func pruneTx(ctx context.Context, tx Transaction, cutoff time.Time) (err error) {
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Printf("db: prune_old_data rollback failed: %v", rbErr)
			}

			return
		}

		if cErr := tx.Commit(); cErr != nil {
			err = fmt.Errorf("%w: commit: %w", ErrFailedToClean, cErr)
			log.Printf("db: prune_old_data commit failed: %v", cErr)
		}
	}()

	if _, err = tx.Exec(ctx, `DELETE FROM transmitter_metrics WHERE timestamp < $1`, cutoff); err != nil {
		return fmt.Errorf("%w: metrics: %w", ErrFailedToClean, err)
	}

	if _, err = tx.Exec(ctx, `DELETE FROM snmp_traps WHERE created_at < $1`, cutoff); err != nil {
		return fmt.Errorf("%w: traps: %w", ErrFailedToClean, err)
	}

	return nil
}
