package tasks

import (
	"context"
	"fmt"
)

// newHistoryPruneTask drops command history older than the retention window.
func newHistoryPruneTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "history_prune")

	return func(ctx context.Context) error {
		cutoff := deps.Clock.Now().Add(-deps.Retention)

		removed, err := deps.Store.PruneCommands(ctx, cutoff)
		if err != nil {
			log.ErrorContext(ctx, "History prune failed", "error", err, "cutoff", cutoff)
			return fmt.Errorf("history prune failed: %w", err)
		}

		log.InfoContext(ctx, "Pruned command history", "removed", removed, "cutoff", cutoff)
		return nil
	}
}
