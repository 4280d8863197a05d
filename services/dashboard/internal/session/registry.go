package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"statementviewer/services/dashboard/internal/coordinator"
)

// Factory builds the coordinator for a new session.
type Factory func(id string) *coordinator.Coordinator

// Session is one browser's dashboard.
type Session struct {
	id          string
	coordinator *coordinator.Coordinator
	now         func() time.Time
	lastSeen    atomic.Int64
	attached    atomic.Int32
}

// ID returns the cookie value identifying the session.
func (s *Session) ID() string {
	return s.id
}

// Coordinator returns the session's state owner.
func (s *Session) Coordinator() *coordinator.Coordinator {
	return s.coordinator
}

// attach must run under the registry lock so Sweep never sees a session
// between lookup and attach. The returned func detaches and is safe to call
// more than once.
func (s *Session) attach() func() {
	s.attached.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() {
			s.attached.Add(-1)
			s.touch(s.now())
		})
	}
}

func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

func (s *Session) idle(now time.Time, timeout time.Duration) bool {
	if s.attached.Load() > 0 {
		return false
	}
	return now.Sub(time.Unix(0, s.lastSeen.Load())) >= timeout
}

// Options tune a Registry. Zero values select defaults.
type Options struct {
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	Logger        *zap.Logger
}

// Registry maps session ids to sessions.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool

	factory       Factory
	idleTimeout   time.Duration
	sweepInterval time.Duration
	logger        *zap.Logger
	now           func() time.Time
}

// NewRegistry builds an empty registry.
func NewRegistry(factory Factory, opts Options) *Registry {
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 30 * time.Minute
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Registry{
		sessions:      make(map[string]*Session),
		factory:       factory,
		idleTimeout:   opts.IdleTimeout,
		sweepInterval: opts.SweepInterval,
		logger:        opts.Logger,
		now:           time.Now,
	}
}

// Acquire returns a live session attached to the caller, who must call
// release when done with it. An attached session is never swept.
func (r *Registry) Acquire(id string) (*Session, func(), bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, nil, false
	}
	s.touch(r.now())
	return s, s.attach(), true
}

// Create starts a new session with a fresh id, attached like Acquire.
func (r *Registry) Create() (*Session, func(), error) {
	id := uuid.NewString()
	s := &Session{id: id, now: r.now}
	s.touch(r.now())

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, nil, ErrClosed
	}
	s.coordinator = r.factory(id)
	r.sessions[id] = s
	release := s.attach()
	r.mu.Unlock()

	s.coordinator.Start()
	r.logger.Debug("session created", zap.String("session_id", id))
	return s, release, nil
}

// Resolve acquires the session for id, creating one when it is unknown.
// The bool reports whether it was created.
func (r *Registry) Resolve(id string) (*Session, func(), bool, error) {
	if id != "" {
		if s, release, ok := r.Acquire(id); ok {
			return s, release, false, nil
		}
	}
	s, release, err := r.Create()
	return s, release, err == nil, err
}

// Len reports live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes sessions idle for longer than the timeout and returns how many.
func (r *Registry) Sweep() int {
	now := r.now()

	r.mu.Lock()
	var expired []*Session
	for id, s := range r.sessions {
		if s.idle(now, r.idleTimeout) {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		s.coordinator.Close()
		r.logger.Debug("session expired", zap.String("session_id", s.id))
	}
	return len(expired)
}

// Start sweeps idle sessions until ctx is done.
func (r *Registry) Start(ctx context.Context) {
	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.logger.Info("expired idle sessions", zap.Int("count", n))
			}
		}
	}
}

// Close shuts every session down. Later Create calls fail with ErrClosed.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.coordinator.Close()
	}
}
