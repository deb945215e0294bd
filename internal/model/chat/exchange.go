package chat

import "encoding/json"

// AskRequest is the body posted to the chat endpoint.
type AskRequest struct {
	SessionID string        `json:"sessionId,omitempty"`
	Question  string        `json:"question"`
	History   []HistoryItem `json:"history"`
}

// AskResponse is the successful reply of the chat endpoint.
type AskResponse struct {
	SessionID string          `json:"sessionId"`
	Answer    string          `json:"answer"`
	Context   json.RawMessage `json:"context,omitempty"`
}
