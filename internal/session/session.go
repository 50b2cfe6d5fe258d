// Package session records research runs as ordered event logs and persists them.
package session

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Status constants for sessions.
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// Event types for the session log.
const (
	EventResearchStart = "research_start"
	EventPlan          = "plan"
	EventSubTaskStart  = "subtask_start"
	EventSubTaskEnd    = "subtask_end"
	EventToolCall      = "tool_call"
	EventLimitReached  = "limit_reached"
	EventFinalize      = "finalize"
	EventResearchEnd   = "research_end"
)

// Session is one research run.
type Session struct {
	ID           string    `json:"id"`
	Query        string    `json:"query"`
	Status       string    `json:"status"`
	Report       string    `json:"report,omitempty"`
	Error        string    `json:"error,omitempty"`
	Iterations   int       `json:"iterations,omitempty"`
	LimitReached bool      `json:"limit_reached,omitempty"`
	Events       []Event   `json:"events"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Internal state (not persisted)
	seqCounter uint64
	mu         sync.Mutex
}

// Event is a single entry in the session log.
type Event struct {
	SeqID     uint64    `json:"seq"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	Iteration int    `json:"iteration,omitempty"`
	Agent     string `json:"agent,omitempty"` // Role that produced the event
	Task      string `json:"task,omitempty"`  // Delegated sub-task

	Content string                 `json:"content,omitempty"`
	Steps   []string               `json:"steps,omitempty"` // Planned next steps
	Tool    string                 `json:"tool,omitempty"`
	Args    map[string]interface{} `json:"args,omitempty"`

	// Outcome
	Success    *bool  `json:"success,omitempty"` // nil = in progress
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`
}

func (s *Session) nextSeqID() uint64 {
	return atomic.AddUint64(&s.seqCounter, 1)
}

// CurrentSeqID returns the last used sequence ID, or 0 before any event.
func (s *Session) CurrentSeqID() uint64 {
	return atomic.LoadUint64(&s.seqCounter)
}

// AddEvent appends an event with automatic sequencing. Safe for concurrent use.
func (s *Session) AddEvent(event Event) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	event.SeqID = s.nextSeqID()
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	s.Events = append(s.Events, event)
	s.UpdatedAt = time.Now()
	return event.SeqID
}

// Snapshot returns a copy safe to persist while events are still being added.
func (s *Session) Snapshot() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &Session{
		ID:           s.ID,
		Query:        s.Query,
		Status:       s.Status,
		Report:       s.Report,
		Error:        s.Error,
		Iterations:   s.Iterations,
		LimitReached: s.LimitReached,
		Events:       append([]Event(nil), s.Events...),
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
		seqCounter:   s.seqCounter,
	}
}

func (s *Session) restoreSeq() {
	if len(s.Events) > 0 {
		s.seqCounter = s.Events[len(s.Events)-1].SeqID
	}
}

// Store is the interface for session persistence.
type Store interface {
	Save(sess *Session) error
	Load(id string) (*Session, error)
}

// Manager creates and persists sessions.
type Manager struct {
	store Store
	mu    sync.Mutex
}

// NewManager creates a new session manager.
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Create starts and saves a new running session for query.
func (m *Manager) Create(query string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	sess := &Session{
		ID:        uuid.NewString(),
		Query:     query,
		Status:    StatusRunning,
		Events:    []Event{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.Save(sess); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return sess, nil
}

// Get retrieves a session by ID.
func (m *Manager) Get(id string) (*Session, error) {
	return m.store.Load(id)
}

// Update saves a snapshot of the session.
func (m *Manager) Update(sess *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := sess.Snapshot()
	snap.UpdatedAt = time.Now()
	return m.store.Save(snap)
}

// Close releases the underlying store if it holds resources.
func (m *Manager) Close() error {
	if c, ok := m.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
