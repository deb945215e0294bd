package chatbot

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/pawshop/internal/model/chat"
	"github.com/zhouzirui/pawshop/internal/storage"
)

type fakeEndpoint struct {
	mu       sync.Mutex
	calls    []chat.AskRequest
	respond  func(chat.AskRequest) (chat.AskResponse, error)
	started  chan struct{}
	release  chan struct{}
	canceled atomic.Bool
}

func (f *fakeEndpoint) Ask(ctx context.Context, req chat.AskRequest) (chat.AskResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			f.canceled.Store(true)
			<-f.release
			return chat.AskResponse{}, ctx.Err()
		}
	}
	return f.respond(req)
}

func (f *fakeEndpoint) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func answer(sessionID, text string) func(chat.AskRequest) (chat.AskResponse, error) {
	return func(chat.AskRequest) (chat.AskResponse, error) {
		return chat.AskResponse{SessionID: sessionID, Answer: text}, nil
	}
}

func failing(err error) func(chat.AskRequest) (chat.AskResponse, error) {
	return func(chat.AskRequest) (chat.AskResponse, error) {
		return chat.AskResponse{}, err
	}
}

// fixedClock returns the same instant every call, the worst case for id collisions.
func fixedClock() time.Time {
	return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
}

func persistedTranscript(t *testing.T, store storage.Store) []chat.Message {
	t.Helper()
	raw, ok, err := store.Read(storage.MessagesKey)
	require.NoError(t, err)
	require.True(t, ok, "transcript key missing")
	var messages []chat.Message
	require.NoError(t, json.Unmarshal([]byte(raw), &messages))
	return messages
}

func TestSendMessageSuccess(t *testing.T) {
	store := storage.NewMemoryStore()
	endpoint := &fakeEndpoint{respond: answer("abc", "Hi there")}
	m := NewManager(store, endpoint)

	m.SendMessage(context.Background(), "Hello")

	state := m.State()
	require.Len(t, state.Messages, 2)
	require.Equal(t, chat.RoleUser, state.Messages[0].Role)
	require.Equal(t, "Hello", state.Messages[0].Content)
	require.Equal(t, chat.RoleAssistant, state.Messages[1].Role)
	require.Equal(t, "Hi there", state.Messages[1].Content)
	require.Equal(t, "abc", state.SessionID)
	require.False(t, state.IsLoading)
	require.Empty(t, state.Error)

	require.Equal(t, state.Messages, persistedTranscript(t, store))
	session, ok, err := store.Read(storage.SessionKey)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "abc", session)
}

func TestSendMessageAppendsTrimmedQuestionAndAnswer(t *testing.T) {
	endpoint := &fakeEndpoint{respond: answer("s1", "first")}
	m := NewManager(storage.NewMemoryStore(), endpoint)
	m.SendMessage(context.Background(), "one")
	before := m.State().Messages

	endpoint.respond = answer("s1", "second")
	m.SendMessage(context.Background(), "  two  ")

	after := m.State().Messages
	require.Len(t, after, len(before)+2)
	require.Equal(t, before, after[:len(before)])
	require.Equal(t, "two", after[len(before)].Content)
	require.Equal(t, chat.RoleUser, after[len(before)].Role)
	require.Equal(t, "second", after[len(before)+1].Content)
	require.Equal(t, chat.RoleAssistant, after[len(before)+1].Role)
}

func TestSendMessageHistoryExcludesPendingQuestion(t *testing.T) {
	endpoint := &fakeEndpoint{respond: answer("s1", "woof")}
	m := NewManager(storage.NewMemoryStore(), endpoint)

	m.SendMessage(context.Background(), "Do you sell leashes?")
	m.SendMessage(context.Background(), "  And collars?")

	require.Len(t, endpoint.calls, 2)
	require.Empty(t, endpoint.calls[0].History)
	require.Empty(t, endpoint.calls[0].SessionID)

	second := endpoint.calls[1]
	require.Equal(t, "And collars?", second.Question)
	require.Equal(t, "s1", second.SessionID)
	require.Equal(t, []chat.HistoryItem{
		{Role: chat.RoleUser, Text: "Do you sell leashes?"},
		{Role: chat.RoleAssistant, Text: "woof"},
	}, second.History)
}

func TestSendMessageFailureRollsBack(t *testing.T) {
	store := storage.NewMemoryStore()
	endpoint := &fakeEndpoint{respond: answer("abc", "Hi there")}
	m := NewManager(store, endpoint)
	m.SendMessage(context.Background(), "Hello")
	before := m.State()

	endpoint.respond = failing(&APIError{StatusCode: 500, Message: "assistant is napping"})
	m.SendMessage(context.Background(), "test")

	after := m.State()
	require.Equal(t, before.Messages, after.Messages)
	require.Equal(t, "assistant is napping", after.Error)
	require.Equal(t, "abc", after.SessionID)
	require.False(t, after.IsLoading)
	require.Equal(t, before.Messages, persistedTranscript(t, store))
}

func TestSendMessageFailureOnEmptyTranscript(t *testing.T) {
	store := storage.NewMemoryStore()
	m := NewManager(store, &fakeEndpoint{respond: failing(errors.New("connection refused"))})

	m.SendMessage(context.Background(), "test")

	state := m.State()
	require.Empty(t, state.Messages)
	require.Equal(t, DefaultErrorMessage, state.Error)
	require.Empty(t, persistedTranscript(t, store))
	_, ok, err := store.Read(storage.SessionKey)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSendMessageClearsPreviousError(t *testing.T) {
	endpoint := &fakeEndpoint{respond: failing(errors.New("boom"))}
	m := NewManager(storage.NewMemoryStore(), endpoint)
	m.SendMessage(context.Background(), "first")
	require.NotEmpty(t, m.Error())

	endpoint.respond = answer("s", "ok")
	m.SendMessage(context.Background(), "retry")
	require.Empty(t, m.Error())
	require.Len(t, m.Messages(), 2)
}

func TestSessionStickiness(t *testing.T) {
	endpoint := &fakeEndpoint{respond: answer("S", "a")}
	m := NewManager(storage.NewMemoryStore(), endpoint)

	m.SendMessage(context.Background(), "one")
	require.Equal(t, "S", m.SessionID())

	m.SendMessage(context.Background(), "two")
	require.Equal(t, "S", m.SessionID())

	endpoint.respond = answer("", "no id this time")
	m.SendMessage(context.Background(), "three")
	require.Equal(t, "S", m.SessionID())

	endpoint.respond = answer("T", "rotated")
	m.SendMessage(context.Background(), "four")
	require.Equal(t, "T", m.SessionID())
}

func TestEmptyInputIsIgnored(t *testing.T) {
	store := storage.NewMemoryStore()
	endpoint := &fakeEndpoint{respond: answer("s", "a")}
	m := NewManager(store, endpoint)

	m.SendMessage(context.Background(), "")
	m.SendMessage(context.Background(), "   ")
	m.SendMessage(context.Background(), "\n\t")

	require.Zero(t, endpoint.callCount())
	require.Empty(t, m.Messages())
	require.Empty(t, store.Keys())
}

func TestSendWhileLoadingIsIgnored(t *testing.T) {
	endpoint := &fakeEndpoint{
		respond: answer("s", "a"),
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	m := NewManager(storage.NewMemoryStore(), endpoint)

	done := make(chan struct{})
	go func() {
		m.SendMessage(context.Background(), "first")
		close(done)
	}()
	<-endpoint.started

	require.True(t, m.IsLoading())
	pending := m.State().Messages
	require.Len(t, pending, 1)

	m.SendMessage(context.Background(), "second")
	require.Equal(t, 1, endpoint.callCount())
	require.Equal(t, pending, m.State().Messages)

	close(endpoint.release)
	<-done
	require.False(t, m.IsLoading())
	require.Len(t, m.Messages(), 2)
}

func TestOptimisticMessageVisibleBeforeReply(t *testing.T) {
	var states []State
	endpoint := &fakeEndpoint{respond: answer("s", "a")}
	m := NewManager(storage.NewMemoryStore(), endpoint, WithListener(func(s State) {
		states = append(states, s)
	}))

	m.SendMessage(context.Background(), "hello")

	// hydrate, optimistic append, reply
	require.Len(t, states, 3)
	require.True(t, states[1].IsLoading)
	require.Len(t, states[1].Messages, 1)
	require.Equal(t, "hello", states[1].Messages[0].Content)
	require.False(t, states[2].IsLoading)
	require.Len(t, states[2].Messages, 2)
}

func TestClearChat(t *testing.T) {
	store := storage.NewMemoryStore()
	endpoint := &fakeEndpoint{respond: answer("abc", "hi")}
	m := NewManager(store, endpoint)
	m.SendMessage(context.Background(), "hello")
	endpoint.respond = failing(errors.New("down"))
	m.SendMessage(context.Background(), "again")
	require.NotEmpty(t, m.Error())

	m.ClearChat()
	m.ClearChat()

	state := m.State()
	require.Empty(t, state.Messages)
	require.Empty(t, state.SessionID)
	require.Empty(t, state.Error)
	require.Empty(t, store.Keys())
}

func TestClearDuringInFlightDropsReply(t *testing.T) {
	store := storage.NewMemoryStore()
	endpoint := &fakeEndpoint{
		respond: answer("abc", "late answer"),
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	m := NewManager(store, endpoint)

	done := make(chan struct{})
	go func() {
		m.SendMessage(context.Background(), "hello")
		close(done)
	}()
	<-endpoint.started

	m.ClearChat()
	require.Empty(t, m.Messages())

	close(endpoint.release)
	<-done

	require.True(t, endpoint.canceled.Load())
	state := m.State()
	require.Empty(t, state.Messages)
	require.Empty(t, state.SessionID)
	require.Empty(t, state.Error)
	require.False(t, state.IsLoading)
	require.Empty(t, store.Keys())

	endpoint.started = nil
	endpoint.release = nil
	m.SendMessage(context.Background(), "fresh start")
	require.Len(t, m.Messages(), 2)
	require.Equal(t, "abc", m.SessionID())
}

func TestInitializeHydratesFromStore(t *testing.T) {
	store := storage.NewMemoryStore()
	first := NewManager(store, &fakeEndpoint{respond: answer("abc", "hi")}, WithClock(fixedClock))
	first.SendMessage(context.Background(), "hello")

	second := NewManager(store, &fakeEndpoint{respond: answer("abc", "again")}, WithClock(fixedClock))
	require.Equal(t, first.State().Messages, second.State().Messages)
	require.Equal(t, "abc", second.SessionID())

	second.SendMessage(context.Background(), "more")
	ids := map[int64]bool{}
	for _, msg := range second.Messages() {
		require.False(t, ids[msg.ID], "duplicate id %d", msg.ID)
		ids[msg.ID] = true
	}
	require.Len(t, ids, 4)
}

func TestInitializeIgnoresMalformedTranscript(t *testing.T) {
	store := storage.NewMemoryStore()
	require.NoError(t, store.Write(storage.MessagesKey, "{definitely not a list"))
	require.NoError(t, store.Write(storage.SessionKey, "kept"))

	m := NewManager(store, &fakeEndpoint{respond: answer("kept", "hi")})

	require.Empty(t, m.Messages())
	require.Equal(t, "kept", m.SessionID())
	require.Empty(t, m.Error())
}

func TestIDsAreUniqueWithinSameMillisecond(t *testing.T) {
	m := NewManager(storage.NewMemoryStore(), &fakeEndpoint{respond: answer("s", "a")}, WithClock(fixedClock))

	for i := 0; i < 5; i++ {
		m.SendMessage(context.Background(), "ping")
	}

	messages := m.Messages()
	require.Len(t, messages, 10)
	for i := 1; i < len(messages); i++ {
		require.Greater(t, messages[i].ID, messages[i-1].ID)
	}
	require.Equal(t, chat.FormatTimestamp(fixedClock()), messages[0].Timestamp)
}

func TestAssistantContextIsKept(t *testing.T) {
	endpoint := &fakeEndpoint{respond: func(chat.AskRequest) (chat.AskResponse, error) {
		return chat.AskResponse{SessionID: "s", Answer: "see these", Context: json.RawMessage(`{"topic":"product"}`)}, nil
	}}
	store := storage.NewMemoryStore()
	m := NewManager(store, endpoint)

	m.SendMessage(context.Background(), "toys?")

	messages := m.Messages()
	require.Nil(t, messages[0].Context)
	require.JSONEq(t, `{"topic":"product"}`, string(messages[1].Context))
	require.JSONEq(t, `{"topic":"product"}`, string(persistedTranscript(t, store)[1].Context))
}

func TestListenerNeverSeesClearedChatRevived(t *testing.T) {
	var (
		mu      sync.Mutex
		seen    []State
		entered = make(chan struct{})
		unblock = make(chan struct{})
	)
	listener := func(s State) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
		if len(s.Messages) == 2 && !s.IsLoading {
			close(entered)
			<-unblock
		}
	}

	m := NewManager(storage.NewMemoryStore(), &fakeEndpoint{respond: answer("abc", "hi")}, WithListener(listener))

	sent := make(chan struct{})
	go func() {
		m.SendMessage(context.Background(), "hello")
		close(sent)
	}()
	<-entered

	cleared := make(chan struct{})
	go func() {
		m.ClearChat()
		close(cleared)
	}()
	require.Eventually(t, func() bool { return len(m.Messages()) == 0 }, time.Second, time.Millisecond)

	close(unblock)
	<-sent
	<-cleared

	mu.Lock()
	defer mu.Unlock()
	last := seen[len(seen)-1]
	require.Empty(t, last.Messages)
	require.Empty(t, last.SessionID)
}

func TestPublishRepeatsCurrentState(t *testing.T) {
	var seen []State
	m := NewManager(storage.NewMemoryStore(), &fakeEndpoint{respond: answer("abc", "hi")},
		WithListener(func(s State) { seen = append(seen, s) }))
	m.SendMessage(context.Background(), "hello")

	before := len(seen)
	m.Publish()
	require.Len(t, seen, before+1)
	require.Equal(t, m.State(), seen[len(seen)-1])
}

func TestCorruptFileStoreRecoversOnNextMutation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatbot.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	store, err := storage.NewFileStore(path)
	require.NoError(t, err)

	m := NewManager(store, &fakeEndpoint{respond: answer("abc", "hi")})
	require.Empty(t, m.Messages())

	m.SendMessage(context.Background(), "hello")
	require.Len(t, persistedTranscript(t, store), 2)
	session, ok, err := store.Read(storage.SessionKey)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "abc", session)

	m.ClearChat()
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err), "store file should be gone after clear, got %v", err)
}
