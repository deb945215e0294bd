package chat

import (
	"encoding/json"
	"time"
)

// Role identifies who authored a transcript entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is one entry of a client-side transcript. Entries are never edited after
// they are appended.
type Message struct {
	ID        int64           `json:"id"`
	Role      Role            `json:"role"`
	Content   string          `json:"content"`
	Timestamp string          `json:"timestamp"`
	Context   json.RawMessage `json:"context,omitempty"`
}

// FormatTimestamp renders t the way transcript timestamps are stored.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// HistoryItem is the trimmed-down view of a message sent to the chat endpoint.
type HistoryItem struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// History projects a transcript to the role/text pairs the endpoint expects.
func History(messages []Message) []HistoryItem {
	items := make([]HistoryItem, 0, len(messages))
	for _, msg := range messages {
		items = append(items, HistoryItem{Role: msg.Role, Text: msg.Content})
	}
	return items
}
