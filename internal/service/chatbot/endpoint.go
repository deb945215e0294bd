package chatbot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/zhouzirui/pawshop/internal/model/chat"
)

// DefaultErrorMessage is shown when a failure carries no usable explanation.
const DefaultErrorMessage = "Failed to get a response. Please try again."

const maxErrorBody = 64 << 10

// Endpoint answers chat questions remotely.
type Endpoint interface {
	Ask(ctx context.Context, req chat.AskRequest) (chat.AskResponse, error)
}

// EndpointFunc adapts a function to Endpoint.
type EndpointFunc func(ctx context.Context, req chat.AskRequest) (chat.AskResponse, error)

// Ask calls f.
func (f EndpointFunc) Ask(ctx context.Context, req chat.AskRequest) (chat.AskResponse, error) {
	return f(ctx, req)
}

// APIError describes a failed exchange with the chat endpoint. StatusCode is zero
// for transport failures.
type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("chat endpoint returned %d: %s", e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("chat endpoint returned %d", e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("chat endpoint unreachable: %v", e.Err)
	default:
		return "chat endpoint failed"
	}
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// ErrorMessage turns any send failure into the text shown to the user.
func ErrorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Message) != "" {
		return apiErr.Message
	}
	return DefaultErrorMessage
}

// HTTPEndpoint posts questions to a JSON chat endpoint.
type HTTPEndpoint struct {
	url    string
	client *http.Client
}

// NewHTTPEndpoint returns an endpoint for url. A nil client means http.DefaultClient.
func NewHTTPEndpoint(url string, client *http.Client) *HTTPEndpoint {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPEndpoint{url: url, client: client}
}

// Ask sends req and decodes the reply.
func (e *HTTPEndpoint) Ask(ctx context.Context, req chat.AskRequest) (chat.AskResponse, error) {
	if req.History == nil {
		req.History = []chat.HistoryItem{}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return chat.AskResponse{}, fmt.Errorf("encode ask request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return chat.AskResponse{}, fmt.Errorf("build ask request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return chat.AskResponse{}, &APIError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return chat.AskResponse{}, &APIError{StatusCode: resp.StatusCode, Message: extractErrorMessage(raw)}
	}

	var out chat.AskResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return chat.AskResponse{}, fmt.Errorf("decode ask response: %w", err)
	}
	return out, nil
}

// extractErrorMessage pulls a "message" or "error" string out of a JSON error body.
func extractErrorMessage(raw []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	for _, key := range []string{"message", "error"} {
		if text, ok := payload[key].(string); ok && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text)
		}
	}
	return ""
}

var _ Endpoint = (*HTTPEndpoint)(nil)
