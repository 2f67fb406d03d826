package database

import (
	"database/sql"
	"time"
)

// CommandRecord is one dispatched command. Echoed text is never stored.
type CommandRecord struct {
	ID        uint      `db:"id"`
	Friend    uint32    `db:"friend"`
	Keyword   string    `db:"keyword"`
	Refused   bool      `db:"refused"`
	CreatedAt time.Time `db:"created_at"`
}

// CallRecord is one call session, inserted when it starts and closed when it
// reaches a terminal state.
type CallRecord struct {
	ID        uint         `db:"id"`
	SessionID string       `db:"session_id"`
	Friend    uint32       `db:"friend"`
	Outbound  bool         `db:"outbound"`
	Audio     bool         `db:"audio"`
	Video     bool         `db:"video"`
	State     string       `db:"state"`
	StartedAt time.Time    `db:"started_at"`
	EndedAt   sql.NullTime `db:"ended_at"`
}
