package conversation

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/sidechat/pkg/store"
)

type ManagerImpl struct {
	repo *Repository

	currentID    string
	messages     []Message
	firstMessage bool
	initialized  bool
}

var _ Manager = (*ManagerImpl)(nil)

type ManagerOption func(*ManagerImpl)

func WithRepository(repo *Repository) ManagerOption {
	return func(m *ManagerImpl) {
		m.repo = repo
	}
}

func NewManager(repo *Repository, options ...ManagerOption) *ManagerImpl {
	ret := &ManagerImpl{
		repo:         repo,
		firstMessage: true,
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

func (m *ManagerImpl) Initialize() error {
	if m.initialized {
		return nil
	}

	activeID, err := m.repo.ActiveID()
	if err != nil {
		return err
	}

	if activeID != "" {
		if err := m.LoadConversation(activeID); err != nil {
			return err
		}
	} else {
		if _, err := m.CreateNewConversation(); err != nil {
			return err
		}
	}

	m.initialized = true
	return nil
}

func (m *ManagerImpl) CreateNewConversation() (string, error) {
	m.currentID = NewConversationID()
	m.messages = nil
	m.firstMessage = true

	if err := m.saveCurrentState(); err != nil {
		return "", err
	}

	log.Debug().Str("conversation_id", m.currentID).Msg("created new conversation")
	return m.currentID, nil
}

// LoadConversation makes id the active conversation. A missing id never
// surfaces as an error: the manager falls back to a fresh conversation so the
// caller always ends up with a valid active conversation. This also covers
// the case where quota eviction removed the previously active conversation.
func (m *ManagerImpl) LoadConversation(id string) error {
	conv, err := m.repo.Get(id)
	if errors.Is(err, store.ErrNotFound) {
		log.Debug().Str("conversation_id", id).Msg("conversation not found, creating new one")
		_, err := m.CreateNewConversation()
		return err
	}
	if err != nil {
		return err
	}

	m.currentID = conv.ID
	m.messages = append([]Message(nil), conv.Messages...)
	m.firstMessage = len(m.messages) == 0
	return m.repo.SetActiveID(conv.ID)
}

func (m *ManagerImpl) AddMessage(role string, content string) (Message, error) {
	msg := NewMessage(role, content)
	if err := m.AppendMessages(msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}

func (m *ManagerImpl) AppendMessages(msgs ...Message) error {
	m.messages = append(m.messages, msgs...)
	return m.saveCurrentState()
}

func (m *ManagerImpl) InsertContextMessage(content string) (Message, error) {
	msg := NewMessage(string(RoleUser), content)
	m.messages = append([]Message{msg}, m.messages...)
	if err := m.saveCurrentState(); err != nil {
		return Message{}, err
	}
	return msg, nil
}

func (m *ManagerImpl) GetCurrentConversation() Snapshot {
	return Snapshot{
		ID:       m.currentID,
		Messages: append([]Message(nil), m.messages...),
	}
}

func (m *ManagerImpl) DeleteConversation(id string) error {
	if err := m.repo.Delete(id); err != nil {
		return err
	}

	if id == m.currentID {
		_, err := m.CreateNewConversation()
		return err
	}
	return nil
}

func (m *ManagerImpl) GetConversationList() ([]Summary, error) {
	convs, err := m.repo.GetAll()
	if err != nil {
		return nil, err
	}

	summaries := make([]Summary, 0, len(convs))
	for _, conv := range convs {
		summaries = append(summaries, conv.Summary())
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].LastUpdated.After(summaries[j].LastUpdated)
	})
	return summaries, nil
}

func (m *ManagerImpl) SearchConversations(query string) ([]Summary, error) {
	convs, err := m.repo.GetAll()
	if err != nil {
		return nil, err
	}

	var summaries []Summary
	for _, conv := range convs {
		if conv.Matches(query) {
			summaries = append(summaries, conv.Summary())
		}
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].LastUpdated.After(summaries[j].LastUpdated)
	})
	return summaries, nil
}

func (m *ManagerImpl) RecentConversations(limit int) ([]Summary, error) {
	summaries, err := m.GetConversationList()
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

func (m *ManagerImpl) IsFirstMessage() bool {
	return m.firstMessage
}

func (m *ManagerImpl) MarkFirstMessageConsumed() {
	m.firstMessage = false
}

func (m *ManagerImpl) ResetFirstMessage() {
	m.firstMessage = true
}

// saveCurrentState persists the full buffer and the active pointer in one
// logical save. The repository stamps LastUpdated and runs the eviction check.
func (m *ManagerImpl) saveCurrentState() error {
	err := m.repo.Upsert(Conversation{
		ID:       m.currentID,
		Messages: m.messages,
	})
	if err != nil {
		return err
	}
	return m.repo.SetActiveID(m.currentID)
}
