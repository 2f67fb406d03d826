// Package identity manages the bot's self-presented name and status text.
package identity

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Defaults used when the configuration leaves them empty.
const (
	DefaultName          = "Mr. Prickles"
	DefaultRefreshPeriod = 6 * time.Hour
)

// DefaultStatuses is the rotation used when none is configured.
var DefaultStatuses = []string{
	"a humorously-named cactus from australia",
	"i am a robot pretending to be a cactus",
}

// Self is the part of the message engine that sets the bot's own identity.
type Self interface {
	SetSelfName(name []byte) error
	SetSelfStatusMessage(status []byte) error
}

// Snapshot is a copy of the identity at one point in time.
type Snapshot struct {
	Name        string
	Status      string
	StatusIndex int
	LastChange  time.Time
}

// Options configures a Manager.
type Options struct {
	Self          Self
	Persist       func() error
	Clock         clockwork.Clock
	Logger        *slog.Logger
	Name          string
	Statuses      []string
	RefreshPeriod time.Duration
}

// Manager owns the identity. Every mutation is pushed to the engine, persisted
// and stamped with the current time.
type Manager struct {
	self     Self
	persist  func() error
	clock    clockwork.Clock
	log      *slog.Logger
	name     string
	statuses []string
	period   time.Duration

	mu  sync.Mutex
	cur Snapshot
}

// NewManager returns a manager at status index 0. Nothing is sent to the
// engine until the first mutation.
func NewManager(opts Options) (*Manager, error) {
	if opts.Self == nil {
		return nil, errors.New("identity: engine is required")
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Name == "" {
		opts.Name = DefaultName
	}
	if len(opts.Statuses) == 0 {
		opts.Statuses = DefaultStatuses
	}
	if opts.RefreshPeriod <= 0 {
		opts.RefreshPeriod = DefaultRefreshPeriod
	}

	statuses := append([]string(nil), opts.Statuses...)
	return &Manager{
		self:     opts.Self,
		persist:  opts.Persist,
		clock:    opts.Clock,
		log:      opts.Logger.With("component", "identity"),
		name:     opts.Name,
		statuses: statuses,
		period:   opts.RefreshPeriod,
		cur: Snapshot{
			Name:       opts.Name,
			Status:     statuses[0],
			LastChange: opts.Clock.Now(),
		},
	}, nil
}

// Refresh restores the default name and advances to the next status.
func (m *Manager) Refresh() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := (m.cur.StatusIndex + 1) % len(m.statuses)
	m.log.Info("Resetting identity", "status_index", idx)

	err := errors.Join(
		m.self.SetSelfName([]byte(m.name)),
		m.self.SetSelfStatusMessage([]byte(m.statuses[idx])),
	)
	m.cur.Name = m.name
	m.cur.Status = m.statuses[idx]
	m.cur.StatusIndex = idx
	return m.commit(err)
}

// SetName changes the display name.
func (m *Manager) SetName(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	err := m.self.SetSelfName([]byte(name))
	if err == nil {
		m.cur.Name = name
	}
	return m.commit(err)
}

// SetStatus changes the status text. The rotation index is left alone, so
// the next refresh continues from where it was.
func (m *Manager) SetStatus(status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	err := m.self.SetSelfStatusMessage([]byte(status))
	if err == nil {
		m.cur.Status = status
	}
	return m.commit(err)
}

// commit stamps and persists the change. The stamp is taken even when the
// engine refused, so a failing scheduled refresh waits a full period before
// trying again. Called with mu held.
func (m *Manager) commit(engineErr error) error {
	if now := m.clock.Now(); now.After(m.cur.LastChange) {
		m.cur.LastChange = now
	}
	if engineErr != nil {
		return fmt.Errorf("failed to update identity: %w", engineErr)
	}
	return m.persistLocked()
}

// Persist saves the engine profile, which carries the identity.
func (m *Manager) Persist() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.persistLocked()
}

func (m *Manager) persistLocked() error {
	if m.persist == nil {
		return nil
	}
	if err := m.persist(); err != nil {
		return fmt.Errorf("failed to persist identity: %w", err)
	}
	return nil
}

// Snapshot returns the current identity.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cur
}

// Due reports whether more than the refresh period has passed since the
// last change.
func (m *Manager) Due(now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return now.Sub(m.cur.LastChange) > m.period
}

// RefreshIfDue is meant to run as a hook on the message loop.
func (m *Manager) RefreshIfDue(now time.Time) {
	if !m.Due(now) {
		return
	}
	if err := m.Refresh(); err != nil {
		m.log.Error("Scheduled identity refresh failed", "error", err)
	}
}
