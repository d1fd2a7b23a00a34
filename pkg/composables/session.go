package composables

import (
	"context"
	"fmt"
	"time"

	"github.com/iota-uz/termstore/pkg/repo"
)

// ApplyStatementTimeout bounds every statement of the current transaction.
// A zero timeout leaves the server default in place.
func ApplyStatementTimeout(ctx context.Context, tx repo.Tx, timeout time.Duration) error {
	if timeout <= 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx, "SELECT set_config('statement_timeout', $1, true)", fmt.Sprintf("%dms", timeout.Milliseconds()))
	if err != nil {
		return fmt.Errorf("failed to set statement timeout: %w", err)
	}
	return nil
}
