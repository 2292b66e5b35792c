package conversation

import (
	"strings"
	"time"
)

// Conversation is an ordered, persisted sequence of messages identified by a
// unique id.
type Conversation struct {
	ID          string    `json:"id"`
	Messages    []Message `json:"messages"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// WebsiteInfo is cached page metadata for display alongside a conversation.
type WebsiteInfo struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Summary is the history-sidebar view of a conversation.
type Summary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Preview     string    `json:"preview"`
	LastUpdated time.Time `json:"lastUpdated"`
}

const (
	previewLength = 50
	titleLength   = 30
)

// Preview returns the last message's content truncated for list display.
func (c Conversation) Preview() string {
	if len(c.Messages) == 0 {
		return ""
	}
	return truncate(c.Messages[len(c.Messages)-1].Content, previewLength)
}

// Title derives a display title from the first user message.
func (c Conversation) Title() string {
	for _, m := range c.Messages {
		if m.Role == RoleUser {
			return truncate(m.Content, titleLength)
		}
	}
	return "New Chat"
}

// Summary builds the list entry for this conversation.
func (c Conversation) Summary() Summary {
	return Summary{
		ID:          c.ID,
		Title:       c.Title(),
		Preview:     c.Preview(),
		LastUpdated: c.LastUpdated,
	}
}

// Matches reports whether the query appears in the title or in any message
// body, case-insensitively.
func (c Conversation) Matches(query string) bool {
	q := strings.ToLower(query)
	if strings.Contains(strings.ToLower(c.Title()), q) {
		return true
	}
	for _, m := range c.Messages {
		if strings.Contains(strings.ToLower(m.Content), q) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
