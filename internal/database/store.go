package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the history operations. Methods accept context.Context for
// cancellation and timeouts.
type Store interface {
	// SaveCommand inserts a dispatched command.
	SaveCommand(ctx context.Context, record *CommandRecord) error

	// StartCall inserts a new call session.
	StartCall(ctx context.Context, record *CallRecord) error

	// FinishCall stamps the terminal state of a call session.
	FinishCall(ctx context.Context, sessionID, state string, endedAt time.Time) error

	// CountAnsweredCalls returns how many inbound calls were answered.
	CountAnsweredCalls(ctx context.Context) (int, error)

	// PruneCommands deletes command records created before cutoff.
	PruneCommands(ctx context.Context, cutoff time.Time) (int64, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a Store backed by sqlx.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

func (s *sqlxStore) SaveCommand(ctx context.Context, record *CommandRecord) error {
	if record == nil {
		return errors.New("cannot save nil command record")
	}
	if record.Keyword == "" {
		return errors.New("command record must have a keyword")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	record.CreatedAt = record.CreatedAt.UTC()

	query := `
        INSERT INTO commands (friend, keyword, refused, created_at)
        VALUES (:friend, :keyword, :refused, :created_at);
    `
	result, err := s.db.NamedExecContext(ctx, query, record)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving command", "friend", record.Friend, "keyword", record.Keyword, "error", err)
		return fmt.Errorf("failed to save command %q from friend %d: %w", record.Keyword, record.Friend, err)
	}

	if id, err := result.LastInsertId(); err == nil {
		//nolint:gosec // row ids are positive
		record.ID = uint(id)
	}
	return nil
}

func (s *sqlxStore) StartCall(ctx context.Context, record *CallRecord) error {
	if record == nil {
		return errors.New("cannot save nil call record")
	}
	if record.SessionID == "" {
		return errors.New("call record must have a session id")
	}
	if record.StartedAt.IsZero() {
		record.StartedAt = time.Now()
	}
	record.StartedAt = record.StartedAt.UTC()

	query := `
        INSERT INTO calls (session_id, friend, outbound, audio, video, state, started_at, ended_at)
        VALUES (:session_id, :friend, :outbound, :audio, :video, :state, :started_at, :ended_at);
    `
	result, err := s.db.NamedExecContext(ctx, query, record)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving call", "session_id", record.SessionID, "friend", record.Friend, "error", err)
		return fmt.Errorf("failed to save call %s: %w", record.SessionID, err)
	}

	if id, err := result.LastInsertId(); err == nil {
		//nolint:gosec // row ids are positive
		record.ID = uint(id)
	}
	return nil
}

func (s *sqlxStore) FinishCall(ctx context.Context, sessionID, state string, endedAt time.Time) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
			}
		}
	}()

	result, err := tx.ExecContext(ctx,
		`UPDATE calls SET state = ?, ended_at = ? WHERE session_id = ? AND ended_at IS NULL;`,
		state, endedAt.UTC(), sessionID)
	if err != nil {
		return fmt.Errorf("failed to finish call %s: %w", sessionID, err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected != 1 {
		s.logger.WarnContext(ctx, "Unexpected number of rows affected when finishing call",
			"session_id", sessionID, "affected", affected)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil
	return nil
}

func (s *sqlxStore) CountAnsweredCalls(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM calls WHERE outbound = 0;`); err != nil {
		return 0, fmt.Errorf("failed to count calls: %w", err)
	}
	return n, nil
}

func (s *sqlxStore) PruneCommands(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM commands WHERE created_at < ?;`, cutoff.UTC())
	if err != nil {
		s.logger.ErrorContext(ctx, "Error pruning commands", "cutoff", cutoff, "error", err)
		return 0, fmt.Errorf("failed to prune commands: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)")

	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		s.logger.WarnContext(ctx, "Failed to set busy timeout", "error", err)
	}

	// VACUUM must run outside a transaction in SQLite.
	_, err := s.db.ExecContext(ctx, "VACUUM;")
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)
	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	default:
		s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed")
	}
	return nil
}
