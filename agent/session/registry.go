package session

import (
	"fmt"
	"sync"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	contractx "github.com/orderai/orderai/agent/contract"
	orderx "github.com/orderai/orderai/agent/order"
)

const defaultMaxHistory = 200

// Session owns one order ledger and one conversation history. Both live
// only as long as the session is registered.
type Session struct {
	ID     string
	Ledger *orderx.Ledger
}

// Registry maps opaque session ids to their sessions. All map accesses are
// atomic; the ledger itself stays unguarded because a session processes one
// chat turn at a time.
type Registry struct {
	mu         sync.RWMutex
	sessions   map[string]*Session
	histories  map[string][]*schema.Message
	maxHistory int
}

// Option customizes Registry.
type Option func(*Registry)

// WithMaxHistory bounds the retained conversation history per session.
// Oldest messages are dropped first.
func WithMaxHistory(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.maxHistory = n
		}
	}
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		sessions:   make(map[string]*Session),
		histories:  make(map[string][]*schema.Message),
		maxHistory: defaultMaxHistory,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Start registers a fresh session with an empty ledger and history.
func (r *Registry) Start() *Session {
	s := &Session{
		ID:     uuid.NewString(),
		Ledger: orderx.NewLedger(),
	}

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.histories[s.ID] = nil
	r.mu.Unlock()

	return s
}

func (r *Registry) Get(sessionID string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[sessionID]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", contractx.ErrSessionNotFound, sessionID)
	}
	return s, nil
}

// End discards the session's ledger and history. Ending an unknown session
// is a no-op.
func (r *Registry) End(sessionID string) {
	r.mu.Lock()
	delete(r.sessions, sessionID)
	delete(r.histories, sessionID)
	r.mu.Unlock()
}

// History returns a copy of the session's conversation history. An unknown
// session yields ErrSessionNotFound.
func (r *Registry) History(sessionID string) ([]*schema.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.sessions[sessionID]; !ok {
		return nil, fmt.Errorf("%w: %s", contractx.ErrSessionNotFound, sessionID)
	}
	return append([]*schema.Message(nil), r.histories[sessionID]...), nil
}

// AppendHistory extends the session's conversation history, trimming the
// oldest messages past the configured bound. Appending to a session that
// ended mid-flight resolves to ErrSessionNotFound.
func (r *Registry) AppendHistory(sessionID string, msgs []*schema.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[sessionID]; !ok {
		return fmt.Errorf("%w: %s", contractx.ErrSessionNotFound, sessionID)
	}

	history := append(r.histories[sessionID], msgs...)
	if len(history) > r.maxHistory {
		history = history[len(history)-r.maxHistory:]
	}
	r.histories[sessionID] = history
	return nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
