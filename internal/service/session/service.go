// Package session records, on the server, which conversations exist and what was
// said in them. The client owns the transcript it shows; this is the audit copy.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/pawshop/internal/model/chat"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidRole     = errors.New("invalid message role")
)

// conversation is one session and its turns in arrival order.
type conversation struct {
	meta  chat.Session
	turns []chat.Turn
}

type Service struct {
	now func() time.Time

	mu    sync.RWMutex
	convs map[string]*conversation
}

func NewService() *Service {
	return &Service{
		now:   func() time.Time { return time.Now().UTC() },
		convs: make(map[string]*conversation),
	}
}

// CreateSession opens a conversation under a fresh uuid.
func (s *Service) CreateSession(_ context.Context) (chat.Session, error) {
	meta := chat.Session{ID: uuid.NewString(), CreatedAt: s.now()}

	s.mu.Lock()
	s.convs[meta.ID] = &conversation{meta: meta}
	s.mu.Unlock()

	return meta, nil
}

// Resolve maps the id a client sent to a live session. Clients keep their id
// across server restarts, so an unknown id opens a new session instead of failing.
func (s *Service) Resolve(ctx context.Context, sessionID string) (chat.Session, error) {
	if meta, err := s.GetSession(ctx, sessionID); err == nil {
		return meta, nil
	}
	return s.CreateSession(ctx)
}

func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.convs[sessionID]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	return c.meta, nil
}

// SaveMessage records one turn. The service assigns the turn id and, when the
// caller left it empty, the time it was recorded.
func (s *Service) SaveMessage(_ context.Context, turn chat.Turn) error {
	if !turn.Role.Valid() {
		return ErrInvalidRole
	}

	turn.ID = uuid.NewString()
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.convs[turn.SessionID]
	if !ok {
		return ErrSessionNotFound
	}
	c.turns = append(c.turns, turn)
	return nil
}

// LoadTranscript returns a copy of the recorded turns, oldest first. A session with
// no turns yet yields an empty, non-nil slice.
func (s *Service) LoadTranscript(_ context.Context, sessionID string) ([]chat.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.convs[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return append(make([]chat.Turn, 0, len(c.turns)), c.turns...), nil
}
