// Package session provides the handle that binds datasets to an engine.
//
// A Session is passed explicitly to every operation that needs the engine;
// there is no process-wide active session.
package session

import (
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/soundprediction/textencode/pkg/bridge"
)

// ErrNoActiveSession is returned when an operation is given a nil or closed session.
var ErrNoActiveSession = errors.New("no active session")

// Session is a handle on an engine bridge. It is safe for concurrent use.
type Session struct {
	id        string
	name      string
	createdAt time.Time
	bridge    bridge.Bridge
	logger    *slog.Logger
	closed    atomic.Bool
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithID overrides the generated session ID.
func WithID(id string) Option {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}

// New creates an active session on top of b.
func New(name string, b bridge.Bridge, opts ...Option) *Session {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}

	s := &Session{
		id:        id.String(),
		name:      name,
		createdAt: time.Now().UTC(),
		bridge:    b,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("session_id", s.id)
	return s
}

// ID returns the unique session identifier.
func (s *Session) ID() string { return s.id }

// Name returns the human readable session name.
func (s *Session) Name() string { return s.name }

// CreatedAt returns when the session was created.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Bridge returns the engine bridge.
func (s *Session) Bridge() bridge.Bridge { return s.bridge }

// Logger returns the session-scoped logger.
func (s *Session) Logger() *slog.Logger { return s.logger }

// Active reports whether the session is usable. A nil session is never active.
func (s *Session) Active() bool {
	return s != nil && !s.closed.Load() && s.bridge != nil
}

// Close deactivates the session. It does not close the bridge, which the
// caller owns.
func (s *Session) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		s.logger.Debug("Session closed", "name", s.name)
	}
	return nil
}

// Check returns ErrNoActiveSession unless s is active.
func Check(s *Session) error {
	if !s.Active() {
		return ErrNoActiveSession
	}
	return nil
}
