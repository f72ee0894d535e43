package chat

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	contractx "github.com/orderai/orderai/agent/contract"
	orderx "github.com/orderai/orderai/agent/order"
	sessionx "github.com/orderai/orderai/agent/session"
)

// Subscribers is the connection table a session's subscriber is removed
// from when the session ends. The notify hub satisfies it.
type Subscribers interface {
	Detach(sessionID string)
}

type noopSubscribers struct{}

func (noopSubscribers) Detach(string) {}

// Service is the chat entrypoint: it resolves sessions, runs the agent over
// the conversation history, and keeps the history current.
type Service struct {
	sessions    *sessionx.Registry
	agent       contractx.Agent
	subscribers Subscribers
}

func NewService(sessions *sessionx.Registry, agent contractx.Agent, subscribers Subscribers) (*Service, error) {
	if sessions == nil {
		return nil, errors.New("session registry is required")
	}
	if agent == nil {
		return nil, errors.New("agent is required")
	}
	if subscribers == nil {
		subscribers = noopSubscribers{}
	}
	return &Service{
		sessions:    sessions,
		agent:       agent,
		subscribers: subscribers,
	}, nil
}

// Start opens a fresh session and returns its id with a greeting.
func (s *Service) Start(ctx context.Context) (string, string) {
	sess := s.sessions.Start()
	log.Info().Str("session_id", sess.ID).Msg("session started")
	return sess.ID, "Session started"
}

// Send runs one chat turn for the session. The returned snapshot reflects
// the ledger after every tool effect of the turn.
func (s *Service) Send(ctx context.Context, sessionID string, text string) (string, *orderx.Snapshot, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return "", nil, err
	}

	history, err := s.sessions.History(sessionID)
	if err != nil {
		return "", nil, err
	}

	reply, turn, err := s.agent.Chat(ctx, sessionID, history, text)
	if err != nil {
		return "", nil, err
	}

	if err := s.sessions.AppendHistory(sessionID, turn); err != nil {
		// The session ended while the agent was running; the reply is
		// still returned but nothing is retained.
		if !errors.Is(err, contractx.ErrSessionNotFound) {
			return "", nil, err
		}
		log.Debug().Str("session_id", sessionID).Msg("history dropped for ended session")
		return reply, nil, nil
	}

	snapshot := sess.Ledger.Snapshot()
	return reply, &snapshot, nil
}

// End releases the session and its subscriber. Idempotent.
func (s *Service) End(ctx context.Context, sessionID string) {
	s.sessions.End(sessionID)
	s.subscribers.Detach(sessionID)
	log.Info().Str("session_id", sessionID).Msg("session ended")
}
