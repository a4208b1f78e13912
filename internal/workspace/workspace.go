// Package workspace owns the temporary files of processing sessions: one
// uniquely named directory per session, removed on every exit path, plus a
// best-effort sweep for directories orphaned by crashed processes.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"vidaudio/internal/media"
)

// DefaultPrefix names every session directory the manager creates.
const DefaultPrefix = "vidaudio-"

// Manager allocates sessions under Root.
type Manager struct {
	root   string
	prefix string
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

type Option func(*Manager)

// WithPrefix overrides DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(m *Manager) {
		if prefix != "" {
			m.prefix = prefix
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock replaces time.Now for sweep age calculations.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates root if needed.
func NewManager(root string, opts ...Option) (*Manager, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("workspace root is required")
	}
	m := &Manager{
		root:   root,
		prefix: DefaultPrefix,
		logger: slog.Default(),
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(m)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace root %s: %w", root, err)
	}
	return m, nil
}

func (m *Manager) Root() string   { return m.root }
func (m *Manager) Prefix() string { return m.prefix }

// Open allocates a new session directory.
func (m *Manager) Open(ctx context.Context) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id := m.newID()
	dir := filepath.Join(m.root, m.prefix+id)
	// Mkdir, not MkdirAll: an existing directory means an id collision.
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}
	return &Session{
		id:        id,
		dir:       dir,
		createdAt: m.now(),
		logger:    m.logger.With("session_id", id),
	}, nil
}

// WithSession opens a session, runs fn, and closes the session whether fn
// returns normally, returns an error or panics. A panic is re-raised after cleanup.
func (m *Manager) WithSession(ctx context.Context, fn func(ctx context.Context, s *Session) error) error {
	s, err := m.Open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(ctx, s)
}

// Session is one request's slice of the workspace.
type Session struct {
	id        string
	dir       string
	createdAt time.Time
	logger    *slog.Logger

	mu      sync.Mutex
	tracked []string
	closed  bool
}

func (s *Session) ID() string           { return s.id }
func (s *Session) Dir() string          { return s.dir }
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Path allocates name inside the session directory and tracks it for removal.
func (s *Session) Path(name string) string {
	p := filepath.Join(s.dir, filepath.Base(name))
	s.mu.Lock()
	s.tracked = append(s.tracked, p)
	s.mu.Unlock()
	return p
}

// Tracked returns the paths allocated so far.
func (s *Session) Tracked() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.tracked...)
}

// Close removes every tracked file and then the directory with whatever else the
// external tools left in it. Safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	tracked := s.tracked
	s.mu.Unlock()

	var errs []error
	for _, p := range tracked {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if err := os.RemoveAll(s.dir); err != nil {
		errs = append(errs, err)
	}
	err := errors.Join(errs...)
	if err != nil {
		s.logger.Error("session cleanup failed", "error", err)
	} else {
		s.logger.Debug("session cleaned up", "files", len(tracked))
	}
	return err
}

var _ media.Workdir = (*Session)(nil)
