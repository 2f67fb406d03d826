// Package tasks implements the bot's periodic housekeeping jobs: database
// maintenance and history pruning.
package tasks

import (
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/edgard/mrprickles/internal/database"
)

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Store  database.Store
	Clock  clockwork.Clock
	// Retention is how long command history is kept.
	Retention time.Duration
}
