package conversation

import (
	"crypto/rand"
	"fmt"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// CoerceRole restricts a role to the two supported variants. Anything that is
// not exactly "user" becomes "assistant".
func CoerceRole(role string) Role {
	if role == string(RoleUser) {
		return RoleUser
	}
	return RoleAssistant
}

// Message is a single conversation entry. Messages are immutable once created
// and their order within a conversation is insertion order, which forms the
// prompt history sent to the model.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type MessageOption func(*Message)

func WithTime(t time.Time) MessageOption {
	return func(m *Message) {
		m.Timestamp = t
	}
}

func NewMessage(role string, content string, options ...MessageOption) Message {
	ret := Message{
		Role:      CoerceRole(role),
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
	for _, option := range options {
		option(&ret)
	}
	return ret
}

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewConversationID generates a fresh conversation id from the current time
// and a random base36 suffix. The suffix carries enough entropy that ids
// generated within the same millisecond do not collide in practice.
func NewConversationID() string {
	var b [9]byte
	_, _ = rand.Read(b[:])
	for i := range b {
		b[i] = idAlphabet[int(b[i])%len(idAlphabet)]
	}
	return fmt.Sprintf("conv_%d_%s", time.Now().UnixMilli(), string(b[:]))
}
