package bus

import (
	"github.com/go-go-golems/sidechat/pkg/claude/api"
)

// Request and notification kinds carried over the bus.
const (
	TypeSendMessage          = "SEND_MESSAGE"
	TypeNewPageDetected      = "NEW_PAGE_DETECTED"
	TypeResetFirstMessage    = "RESET_FIRST_MESSAGE"
	TypeUpdateConversationID = "UPDATE_CONVERSATION_ID"
)

// SendMessageRequest asks the background coordinator to relay a normalized
// message history to the model API.
type SendMessageRequest struct {
	APIKey         string        `json:"apiKey"`
	Model          string        `json:"model"`
	Messages       []api.Message `json:"messages"`
	IsFirstMessage bool          `json:"isFirstMessage"`
	ConversationID string        `json:"conversationId"`
}

// SendMessageReply carries the assistant's reply text, or a user-facing error
// message. Exactly one of the two fields is set.
type SendMessageReply struct {
	Content string `json:"content"`
	Error   string `json:"error,omitempty"`
}

// NewPageDetected notifies UI surfaces that the user navigated to a new page.
// No reply payload is expected.
type NewPageDetected struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// ResetFirstMessage tells the panel to re-arm first-turn context injection.
type ResetFirstMessage struct{}

// UpdateConversationID syncs the active conversation id across surfaces.
type UpdateConversationID struct {
	ConversationID string `json:"conversationId"`
}
