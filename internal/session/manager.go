// Package session tracks the server-side state of streaming connections for
// the Toolgate gateway.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
)

// ErrSessionNotFound is returned when a session id does not resolve to a
// live session.
var ErrSessionNotFound = errors.New("session not found")

// ReapInterval is the sweep period of the background reap loop. A session
// is removed from the live set within a small multiple of this after it
// enters Closing.
const ReapInterval = 100 * time.Millisecond

// eventBuffer bounds how many undelivered events a session may hold. The
// manifest occupies one slot at open, so a transport that never reads still
// accepts the first push.
const eventBuffer = 16

// State is a session's lifecycle phase. Transitions are monotonic:
// Active -> Closing -> Closed.
type State int

// Session states.
const (
	Active State = iota
	Closing
	Closed
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is the state behind one open streaming connection. The transport
// reads Events and writes frames; the manager owns every state transition.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu     sync.Mutex
	state  State
	events chan []byte
}

// Events is the channel the transport drains to deliver frames. It is
// closed when the session is reaped.
func (s *Session) Events() <-chan []byte {
	return s.events
}

// State returns the session's current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// push enqueues an event without blocking. A full buffer means the client
// is not draining; the session is marked Closing instead of stalling the
// caller.
func (s *Session) push(event []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Active {
		return false
	}
	select {
	case s.events <- event:
		return true
	default:
		s.state = Closing
		return false
	}
}

// markClosing advances the session to Closing. Idempotent; never regresses
// a Closed session.
func (s *Session) markClosing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Active {
		s.state = Closing
	}
}

// Manager owns the live session set. Mutations of the set (open, close,
// reap) are serialized by a mutex that is never held across blocking I/O;
// pushes write into per-session buffered channels.
type Manager struct {
	logger hclog.Logger

	mu       sync.Mutex
	sessions map[string]*Session

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewManager creates a session Manager. Run must be started for sessions to
// be reclaimed.
func NewManager(logger hclog.Logger) *Manager {
	if logger == nil {
		logger = hclog.Default()
	}
	return &Manager{
		logger:   logger.Named("session"),
		sessions: make(map[string]*Session),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Open creates a new Active session and enqueues the manifest payload as its
// first event, before any other event can be pushed. Concurrent opens are
// independent: each gets its own id and channel.
func (m *Manager) Open(manifest []byte) *Session {
	s := &Session{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
		state:     Active,
		events:    make(chan []byte, eventBuffer),
	}
	// The buffer is empty at this point, so the manifest is always first.
	s.events <- manifest

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.logger.Debug("session opened", "session", s.ID)
	return s
}

// Push delivers an event to one session, best effort. A failed push (client
// gone or not draining) transitions the session to Closing.
func (m *Manager) Push(sessionID string, event []byte) error {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	if !s.push(event) {
		m.logger.Debug("push failed, closing session", "session", s.ID)
	}
	return nil
}

// Broadcast pushes an event to every live session.
func (m *Manager) Broadcast(event []byte) {
	m.mu.Lock()
	targets := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		targets = append(targets, s)
	}
	m.mu.Unlock()

	for _, s := range targets {
		s.push(event)
	}
}

// Close marks a session Closing. The reap loop removes it from the live set
// within a bounded delay; the id is never reused.
func (m *Manager) Close(sessionID string) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	m.mu.Unlock()
	if ok {
		s.markClosing()
	}
}

// LiveCount reports the number of sessions not yet Closed.
func (m *Manager) LiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Run executes the reap loop until Stop is called. It sweeps Closing
// sessions into Closed and removes them from the live set.
func (m *Manager) Run() {
	defer close(m.done)
	ticker := time.NewTicker(ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			m.reap()
			return
		case <-ticker.C:
			m.reap()
		}
	}
}

// Stop terminates the reap loop and waits for its final sweep.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
	<-m.done
}

// reap removes Closing sessions from the live set and closes their event
// channels. Only the channel close happens after the set mutation, and it
// never blocks.
func (m *Manager) reap() {
	m.mu.Lock()
	var reaped []*Session
	for id, s := range m.sessions {
		s.mu.Lock()
		if s.state == Closing {
			s.state = Closed
			reaped = append(reaped, s)
			delete(m.sessions, id)
		}
		s.mu.Unlock()
	}
	m.mu.Unlock()

	for _, s := range reaped {
		close(s.events)
		m.logger.Debug("session reaped", "session", s.ID)
	}
}
