package assistant

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/pawshop/internal/analysis/intent"
	"github.com/zhouzirui/pawshop/internal/config"
	"github.com/zhouzirui/pawshop/internal/model/catalog"
	"github.com/zhouzirui/pawshop/internal/model/chat"
)

const (
	historyLimit = 10
	matchLimit   = 3

	SourceModel   = "model"
	SourceCatalog = "catalog"
)

var ErrEmptyQuestion = errors.New("question is required")

// Context is the opaque payload returned next to an answer. The widget uses it to
// render listing cards under the reply.
type Context struct {
	Topic  intent.Topic   `json:"topic"`
	Source string         `json:"source"`
	Items  []catalog.Item `json:"items,omitempty"`
}

// Answer is a reply to one question.
type Answer struct {
	Text    string
	Context Context
}

// Service answers shopper questions, through the chat model when one is configured
// and from the catalog otherwise.
type Service struct {
	items catalog.Store
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewService creates the assistant. Without AI credentials it runs catalog-only.
func NewService(ctx context.Context, items catalog.Store, cfg config.AIConfig) (*Service, error) {
	if !cfg.Enabled() {
		return &Service{items: items}, nil
	}

	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewServiceWithModel(ctx, items, chatModel)
}

// NewServiceWithModel creates the assistant on top of an existing chat model.
func NewServiceWithModel(ctx context.Context, items catalog.Store, chatModel model.ChatModel) (*Service, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{items: items, chain: runnable}, nil
}

// ModelEnabled reports whether answers come from the chat model.
func (s *Service) ModelEnabled() bool {
	return s.chain != nil
}

// Answer replies to question given the prior conversation.
func (s *Service) Answer(ctx context.Context, history []chat.HistoryItem, question string) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, ErrEmptyQuestion
	}

	decision := intent.Analyze(question)
	matches := s.items.Search(question, matchLimit)

	if s.chain == nil {
		return s.catalogAnswer(decision, matches), nil
	}

	input := map[string]any{
		"system":  BuildSystemPrompt(s.items, decision, matches),
		"history": buildHistoryMessages(history),
		"query":   question,
	}

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return Answer{}, fmt.Errorf("failed to run AI chain: %w", err)
	}
	if response == nil || strings.TrimSpace(response.Content) == "" {
		return Answer{}, errors.New("chat model returned an empty answer")
	}

	log.Printf("[assistant] model answer topic=%s length=%d", decision.Topic, len(response.Content))
	return Answer{
		Text:    strings.TrimSpace(response.Content),
		Context: Context{Topic: decision.Topic, Source: SourceModel, Items: matches},
	}, nil
}

func buildHistoryMessages(items []chat.HistoryItem) []*schema.Message {
	if len(items) == 0 {
		return nil
	}

	start := 0
	if len(items) > historyLimit {
		start = len(items) - historyLimit
	}

	history := make([]*schema.Message, 0, len(items)-start)
	for _, item := range items[start:] {
		switch item.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(item.Text))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(item.Text, nil))
		}
	}
	return history
}
