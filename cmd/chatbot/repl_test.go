package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/pawshop/internal/model/chat"
	"github.com/zhouzirui/pawshop/internal/service/chatbot"
	"github.com/zhouzirui/pawshop/internal/storage"
)

func echoManager(store storage.Store) *chatbot.Manager {
	endpoint := chatbot.EndpointFunc(func(_ context.Context, req chat.AskRequest) (chat.AskResponse, error) {
		if req.Question == "fail" {
			return chat.AskResponse{}, &chatbot.APIError{StatusCode: 502, Message: "assistant offline"}
		}
		return chat.AskResponse{SessionID: "cli", Answer: "echo: " + req.Question}, nil
	})
	return chatbot.NewManager(store, endpoint)
}

func TestREPLConversation(t *testing.T) {
	store := storage.NewMemoryStore()
	m := echoManager(store)

	in := strings.NewReader("hello\n\nfail\n/history\n/quit\nnever sent\n")
	var out bytes.Buffer
	require.NoError(t, runREPL(context.Background(), m, in, &out))

	text := out.String()
	require.Contains(t, text, "bot> echo: hello")
	require.Contains(t, text, "! assistant offline")
	require.Contains(t, text, "session cli")
	require.NotContains(t, text, "never sent")
	require.Len(t, m.Messages(), 2)
}

func TestREPLClear(t *testing.T) {
	store := storage.NewMemoryStore()
	m := echoManager(store)

	var out bytes.Buffer
	require.NoError(t, runREPL(context.Background(), m, strings.NewReader("hi\n/clear\n"), &out))

	require.Contains(t, out.String(), "Conversation cleared.")
	require.Empty(t, m.Messages())
	_, ok, err := store.Read(storage.MessagesKey)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestREPLResumesSavedConversation(t *testing.T) {
	store := storage.NewMemoryStore()
	echoManager(store).SendMessage(context.Background(), "first")

	var out bytes.Buffer
	require.NoError(t, runREPL(context.Background(), echoManager(store), strings.NewReader(""), &out))
	require.Contains(t, out.String(), "resuming a conversation with 2 messages")
}

func TestPrintTranscriptEmpty(t *testing.T) {
	var out bytes.Buffer
	printTranscript(&out, chatbot.State{})
	require.Equal(t, "No messages yet.\n", out.String())
}
