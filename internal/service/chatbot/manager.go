// Package chatbot holds the client side of the storefront assistant: the session
// manager that keeps the transcript, mirrors it into a Store and talks to the chat
// endpoint one request at a time.
package chatbot

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/zhouzirui/pawshop/internal/model/chat"
	"github.com/zhouzirui/pawshop/internal/storage"
)

// State is a snapshot of everything a presentation layer renders.
type State struct {
	Messages  []chat.Message `json:"messages"`
	SessionID string         `json:"sessionId,omitempty"`
	IsLoading bool           `json:"isLoading"`
	Error     string         `json:"error,omitempty"`
}

// Listener is notified with a fresh snapshot after every state change. Listeners are
// called one at a time in mutation order and must not call SendMessage, ClearChat or
// Initialize themselves.
type Listener func(State)

// Option configures a Manager.
type Option func(*Manager)

// WithListener registers l for state changes.
func WithListener(l Listener) Option {
	return func(m *Manager) {
		if l != nil {
			m.listeners = append(m.listeners, l)
		}
	}
}

// WithClock overrides the time source used for ids and timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// Manager owns one conversation. It is safe for concurrent use, but only one
// SendMessage call reaches the endpoint at a time; overlapping calls are dropped.
type Manager struct {
	store     storage.Store
	endpoint  Endpoint
	now       func() time.Time
	listeners []Listener

	mu        sync.Mutex
	messages  []chat.Message
	sessionID string
	loading   bool
	lastErr   string
	lastID    int64
	// generation changes on every ClearChat so a reply that outlives a clear is dropped.
	generation uint64
	cancel     context.CancelFunc
	// seq numbers snapshots under mu; notify drops any that arrive after a newer one.
	seq uint64

	notifyMu  sync.Mutex
	delivered uint64
}

// NewManager builds a manager and hydrates it from store.
func NewManager(store storage.Store, endpoint Endpoint, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		endpoint: endpoint,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.Initialize()
	return m
}

// Initialize replaces in-memory state with what the store holds. Missing or
// unreadable data means an empty conversation.
func (m *Manager) Initialize() {
	messages := m.loadTranscript()
	sessionID := m.loadSessionID()

	m.mu.Lock()
	m.messages = messages
	m.sessionID = sessionID
	m.lastErr = ""
	for _, msg := range messages {
		if msg.ID > m.lastID {
			m.lastID = msg.ID
		}
	}
	snapshot, seq := m.stampLocked()
	m.mu.Unlock()

	m.notify(snapshot, seq)
}

// State returns a snapshot of the conversation.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Publish sends the current state to listeners again, ordered with every other
// notification.
func (m *Manager) Publish() {
	m.mu.Lock()
	snapshot, seq := m.stampLocked()
	m.mu.Unlock()
	m.notify(snapshot, seq)
}

// Messages returns a copy of the transcript.
func (m *Manager) Messages() []chat.Message {
	return m.State().Messages
}

// SessionID returns the current session id, empty before the first answered question.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// IsLoading reports whether a question is waiting for an answer.
func (m *Manager) IsLoading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

// Error returns the message of the last failed send, empty if none.
func (m *Manager) Error() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// SendMessage posts text to the endpoint and blocks until it resolves. The user
// message shows up in the transcript right away and is taken back out if the
// exchange fails. Blank text, or a call made while another is in flight, does nothing.
// Failures end up in State().Error; nothing is returned to the caller.
func (m *Manager) SendMessage(ctx context.Context, text string) {
	question := strings.TrimSpace(text)
	if question == "" {
		return
	}

	m.mu.Lock()
	if m.loading {
		m.mu.Unlock()
		return
	}

	m.lastErr = ""
	history := chat.History(m.messages)
	userMsg := chat.Message{
		ID:        m.nextIDLocked(),
		Role:      chat.RoleUser,
		Content:   question,
		Timestamp: chat.FormatTimestamp(m.now()),
	}
	m.messages = append(m.messages, userMsg)
	m.loading = true

	reqCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	generation := m.generation
	req := chat.AskRequest{SessionID: m.sessionID, Question: question, History: history}

	m.persistLocked()
	snapshot, seq := m.stampLocked()
	m.mu.Unlock()
	m.notify(snapshot, seq)

	resp, err := m.endpoint.Ask(reqCtx, req)
	cancel()

	m.mu.Lock()
	m.loading = false
	m.cancel = nil

	if generation != m.generation {
		log.Printf("[chatbot] dropping reply for cleared conversation (question id=%d)", userMsg.ID)
		snapshot, seq = m.stampLocked()
		m.mu.Unlock()
		m.notify(snapshot, seq)
		return
	}

	if err != nil {
		log.Printf("[chatbot] send failed: %v", err)
		m.lastErr = ErrorMessage(err)
		m.removeLocked(userMsg.ID)
	} else {
		if resp.SessionID != "" && resp.SessionID != m.sessionID {
			m.sessionID = resp.SessionID
		}
		m.messages = append(m.messages, chat.Message{
			ID:        m.nextIDLocked(),
			Role:      chat.RoleAssistant,
			Content:   resp.Answer,
			Timestamp: chat.FormatTimestamp(m.now()),
			Context:   resp.Context,
		})
	}

	m.persistLocked()
	snapshot, seq = m.stampLocked()
	m.mu.Unlock()
	m.notify(snapshot, seq)
}

// ClearChat forgets the conversation in memory and in the store. A request still in
// flight is cancelled and whatever it returns is ignored.
func (m *Manager) ClearChat() {
	m.mu.Lock()
	m.messages = nil
	m.sessionID = ""
	m.lastErr = ""
	m.generation++
	if m.cancel != nil {
		m.cancel()
	}

	for _, key := range []string{storage.MessagesKey, storage.SessionKey} {
		if err := m.store.Delete(key); err != nil {
			log.Printf("[chatbot] failed to delete %s: %v", key, err)
		}
	}
	snapshot, seq := m.stampLocked()
	m.mu.Unlock()

	m.notify(snapshot, seq)
}

// nextIDLocked hands out millisecond-shaped ids that never repeat, even when two
// messages are created within the same millisecond.
func (m *Manager) nextIDLocked() int64 {
	id := m.now().UnixMilli()
	if id <= m.lastID {
		id = m.lastID + 1
	}
	m.lastID = id
	return id
}

func (m *Manager) removeLocked(id int64) {
	kept := m.messages[:0:0]
	for _, msg := range m.messages {
		if msg.ID != id {
			kept = append(kept, msg)
		}
	}
	m.messages = kept
}

func (m *Manager) persistLocked() {
	messages := m.messages
	if messages == nil {
		messages = []chat.Message{}
	}
	data, err := json.Marshal(messages)
	if err != nil {
		log.Printf("[chatbot] failed to encode transcript: %v", err)
	} else if err := m.store.Write(storage.MessagesKey, string(data)); err != nil {
		log.Printf("[chatbot] failed to persist transcript: %v", err)
	}

	if m.sessionID == "" {
		err = m.store.Delete(storage.SessionKey)
	} else {
		err = m.store.Write(storage.SessionKey, m.sessionID)
	}
	if err != nil {
		log.Printf("[chatbot] failed to persist session id: %v", err)
	}
}

func (m *Manager) loadTranscript() []chat.Message {
	raw, ok, err := m.store.Read(storage.MessagesKey)
	if err != nil {
		log.Printf("[chatbot] failed to read transcript, starting empty: %v", err)
		return nil
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}

	var messages []chat.Message
	if err := json.Unmarshal([]byte(raw), &messages); err != nil {
		log.Printf("[chatbot] ignoring malformed transcript: %v", err)
		return nil
	}
	return messages
}

func (m *Manager) loadSessionID() string {
	raw, ok, err := m.store.Read(storage.SessionKey)
	if err != nil {
		log.Printf("[chatbot] failed to read session id: %v", err)
		return ""
	}
	if !ok {
		return ""
	}
	return raw
}

func (m *Manager) snapshotLocked() State {
	messages := make([]chat.Message, len(m.messages))
	copy(messages, m.messages)
	return State{
		Messages:  messages,
		SessionID: m.sessionID,
		IsLoading: m.loading,
		Error:     m.lastErr,
	}
}

// stampLocked takes a snapshot for listeners together with its position in the
// mutation order.
func (m *Manager) stampLocked() (State, uint64) {
	m.seq++
	return m.snapshotLocked(), m.seq
}

func (m *Manager) notify(state State, seq uint64) {
	if len(m.listeners) == 0 {
		return
	}

	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()
	if seq <= m.delivered {
		return
	}
	m.delivered = seq
	for _, l := range m.listeners {
		l(state)
	}
}
