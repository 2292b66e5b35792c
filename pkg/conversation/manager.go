package conversation

// Package conversation provides the session and storage layer for side-panel
// chats.
//
// The package tracks a single active conversation per process, persists
// message history through a quota-aware Repository, and exposes summaries for
// history browsing. Conversations move through a simple lifecycle: created
// empty, filled by appended messages, archived when another conversation
// becomes active, reactivated by loading, and removed by explicit deletion or
// quota eviction.
//
// The Manager interface is the main entry point for session operations. It is
// designed for a single logical thread of control; concurrent mutation from
// multiple goroutines within one process is not supported.

// Snapshot is a read-only view of the active conversation.
type Snapshot struct {
	ID       string    `json:"id"`
	Messages []Message `json:"messages"`
}

// Manager defines the interface for high-level session management operations.
type Manager interface {
	// Initialize loads the active-conversation pointer, creating a new
	// conversation when none exists. A second call is a no-op.
	Initialize() error
	// CreateNewConversation generates a fresh id, resets the message buffer,
	// persists immediately and makes the conversation active. The first-message
	// flag is reset so page context is re-attached.
	CreateNewConversation() (string, error)
	// LoadConversation makes the given conversation active; a missing id falls
	// back to creating a new conversation.
	LoadConversation(id string) error
	// AddMessage normalizes the role, stamps the current time, appends to the
	// buffer and persists. Returns the stored message.
	AddMessage(role string, content string) (Message, error)
	// AppendMessages appends already-constructed messages and persists.
	AppendMessages(msgs ...Message) error
	// InsertContextMessage unshifts a synthetic user-role context message as
	// the first entry of the conversation and persists.
	InsertContextMessage(content string) (Message, error)
	GetCurrentConversation() Snapshot
	// DeleteConversation removes the conversation; deleting the active one
	// immediately creates a replacement so there is always an active
	// conversation.
	DeleteConversation(id string) error
	GetConversationList() ([]Summary, error)
	SearchConversations(query string) ([]Summary, error)
	RecentConversations(limit int) ([]Summary, error)

	// IsFirstMessage reports whether the next send is the first turn of the
	// active conversation; MarkFirstMessageConsumed clears it,
	// ResetFirstMessage re-arms it.
	IsFirstMessage() bool
	MarkFirstMessageConsumed()
	ResetFirstMessage()
}
