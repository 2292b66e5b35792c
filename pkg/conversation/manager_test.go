package conversation

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/sidechat/pkg/store"
)

func newTestManager(t *testing.T) (*ManagerImpl, *Repository, *store.MemoryStore) {
	t.Helper()
	s := store.NewMemoryStore()
	repo := NewRepository(s, WithNowFunc(testClock()))
	manager := NewManager(repo)
	require.NoError(t, manager.Initialize())
	return manager, repo, s
}

func TestInitializeCreatesConversationWhenPointerAbsent(t *testing.T) {
	manager, repo, _ := newTestManager(t)

	snap := manager.GetCurrentConversation()
	require.NotEmpty(t, snap.ID)
	require.Empty(t, snap.Messages)

	activeID, err := repo.ActiveID()
	require.NoError(t, err)
	require.Equal(t, snap.ID, activeID)

	_, err = repo.Get(snap.ID)
	require.NoError(t, err)
}

func TestInitializeIsIdempotent(t *testing.T) {
	manager, _, _ := newTestManager(t)

	id := manager.GetCurrentConversation().ID
	require.NoError(t, manager.Initialize())
	require.Equal(t, id, manager.GetCurrentConversation().ID)
}

func TestInitializeResumesActiveConversation(t *testing.T) {
	s := store.NewMemoryStore()
	repo := NewRepository(s, WithNowFunc(testClock()))

	first := NewManager(repo)
	require.NoError(t, first.Initialize())
	_, err := first.AddMessage("user", "remember me")
	require.NoError(t, err)
	id := first.GetCurrentConversation().ID

	// a second process over the same store resumes where the first left off
	second := NewManager(repo)
	require.NoError(t, second.Initialize())
	snap := second.GetCurrentConversation()
	require.Equal(t, id, snap.ID)
	require.Len(t, snap.Messages, 1)
	require.Equal(t, "remember me", snap.Messages[0].Content)
}

func TestAddMessagePreservesAppendOrder(t *testing.T) {
	manager, _, _ := newTestManager(t)

	var contents []string
	for i := 0; i < 20; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		content := fmt.Sprintf("message %d", i)
		contents = append(contents, content)
		_, err := manager.AddMessage(role, content)
		require.NoError(t, err)
	}

	snap := manager.GetCurrentConversation()
	require.Len(t, snap.Messages, len(contents))
	for i, msg := range snap.Messages {
		require.Equal(t, contents[i], msg.Content)
	}
}

func TestAddMessageCoercesRole(t *testing.T) {
	manager, _, _ := newTestManager(t)

	msg, err := manager.AddMessage("system", "not a real role")
	require.NoError(t, err)
	require.Equal(t, RoleAssistant, msg.Role)
}

func TestRoundTripPreservesMessages(t *testing.T) {
	s := store.NewMemoryStore()
	repo := NewRepository(s, WithNowFunc(testClock()))
	manager := NewManager(repo)
	require.NoError(t, manager.Initialize())

	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	saved := []Message{
		NewMessage("user", "Hello", WithTime(ts)),
		NewMessage("assistant", "Hi there", WithTime(ts.Add(time.Second))),
	}
	require.NoError(t, manager.AppendMessages(saved...))
	id := manager.GetCurrentConversation().ID

	// archive it behind a new conversation, then load it back
	_, err := manager.CreateNewConversation()
	require.NoError(t, err)
	require.NoError(t, manager.LoadConversation(id))

	snap := manager.GetCurrentConversation()
	require.Equal(t, id, snap.ID)
	require.Equal(t, saved, snap.Messages)
}

func TestCreateNewConversationResetsState(t *testing.T) {
	manager, repo, _ := newTestManager(t)

	_, err := manager.AddMessage("user", "old conversation")
	require.NoError(t, err)
	oldID := manager.GetCurrentConversation().ID
	manager.MarkFirstMessageConsumed()

	newID, err := manager.CreateNewConversation()
	require.NoError(t, err)
	require.NotEqual(t, oldID, newID)
	require.Empty(t, manager.GetCurrentConversation().Messages)
	require.True(t, manager.IsFirstMessage())

	activeID, err := repo.ActiveID()
	require.NoError(t, err)
	require.Equal(t, newID, activeID)

	// the old conversation stays archived in the store
	_, err = repo.Get(oldID)
	require.NoError(t, err)
}

func TestLoadConversationMissingIDFallsBackToNew(t *testing.T) {
	manager, repo, _ := newTestManager(t)

	require.NoError(t, manager.LoadConversation("conv_does_not_exist"))

	snap := manager.GetCurrentConversation()
	require.NotEmpty(t, snap.ID)
	require.NotEqual(t, "conv_does_not_exist", snap.ID)
	require.Empty(t, snap.Messages)

	// the fallback conversation exists and is active
	_, err := repo.Get(snap.ID)
	require.NoError(t, err)
	activeID, err := repo.ActiveID()
	require.NoError(t, err)
	require.Equal(t, snap.ID, activeID)
}

func TestLoadConversationRearmsFirstMessageForEmptyHistory(t *testing.T) {
	manager, _, _ := newTestManager(t)

	_, err := manager.AddMessage("user", "hello")
	require.NoError(t, err)
	withHistory := manager.GetCurrentConversation().ID

	emptyID, err := manager.CreateNewConversation()
	require.NoError(t, err)

	require.NoError(t, manager.LoadConversation(withHistory))
	require.False(t, manager.IsFirstMessage())

	require.NoError(t, manager.LoadConversation(emptyID))
	require.True(t, manager.IsFirstMessage())
}

func TestDeleteActiveConversationCreatesReplacement(t *testing.T) {
	manager, repo, _ := newTestManager(t)

	oldID := manager.GetCurrentConversation().ID
	require.NoError(t, manager.DeleteConversation(oldID))

	snap := manager.GetCurrentConversation()
	require.NotEmpty(t, snap.ID)
	require.NotEqual(t, oldID, snap.ID)

	_, err := repo.Get(oldID)
	require.Error(t, err)
	activeID, err := repo.ActiveID()
	require.NoError(t, err)
	require.Equal(t, snap.ID, activeID)
}

func TestDeleteInactiveConversationKeepsActive(t *testing.T) {
	manager, _, _ := newTestManager(t)

	_, err := manager.AddMessage("user", "first")
	require.NoError(t, err)
	firstID := manager.GetCurrentConversation().ID

	secondID, err := manager.CreateNewConversation()
	require.NoError(t, err)

	require.NoError(t, manager.DeleteConversation(firstID))
	require.Equal(t, secondID, manager.GetCurrentConversation().ID)
}

func TestGetConversationListPreviewScenario(t *testing.T) {
	manager, _, _ := newTestManager(t)

	_, err := manager.AddMessage("user", "Hello")
	require.NoError(t, err)
	_, err = manager.AddMessage("assistant", "Hi there")
	require.NoError(t, err)

	summaries, err := manager.GetConversationList()
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	require.Equal(t, "Hi there", summaries[0].Preview)
	require.Equal(t, "Hello", summaries[0].Title)
}

func TestGetConversationListSortsByRecency(t *testing.T) {
	manager, _, _ := newTestManager(t)

	_, err := manager.AddMessage("user", "oldest")
	require.NoError(t, err)

	_, err = manager.CreateNewConversation()
	require.NoError(t, err)
	_, err = manager.AddMessage("user", "newest")
	require.NoError(t, err)

	summaries, err := manager.GetConversationList()
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	require.Equal(t, "newest", summaries[0].Preview)
	require.Equal(t, "oldest", summaries[1].Preview)
}

func TestSearchConversations(t *testing.T) {
	manager, _, _ := newTestManager(t)

	_, err := manager.AddMessage("user", "how do I bake bread")
	require.NoError(t, err)

	_, err = manager.CreateNewConversation()
	require.NoError(t, err)
	_, err = manager.AddMessage("user", "tell me about Go generics")
	require.NoError(t, err)

	matches, err := manager.SearchConversations("BREAD")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, "how do I bake bread", matches[0].Title)

	matches, err = manager.SearchConversations("quantum")
	require.NoError(t, err)
	require.Empty(t, matches)
}

func TestRecentConversationsLimit(t *testing.T) {
	manager, _, _ := newTestManager(t)

	for i := 0; i < 5; i++ {
		_, err := manager.AddMessage("user", fmt.Sprintf("conversation %d", i))
		require.NoError(t, err)
		_, err = manager.CreateNewConversation()
		require.NoError(t, err)
	}

	summaries, err := manager.RecentConversations(3)
	require.NoError(t, err)
	require.Len(t, summaries, 3)
}

func TestInsertContextMessageUnshifts(t *testing.T) {
	manager, _, _ := newTestManager(t)

	_, err := manager.AddMessage("user", "what is this page about")
	require.NoError(t, err)

	ctxMsg, err := manager.InsertContextMessage("Title: Example\nURL: https://example.com")
	require.NoError(t, err)
	require.Equal(t, RoleUser, ctxMsg.Role)

	snap := manager.GetCurrentConversation()
	require.Len(t, snap.Messages, 2)
	require.Equal(t, ctxMsg.Content, snap.Messages[0].Content)
	require.Equal(t, "what is this page about", snap.Messages[1].Content)
}

func TestGetCurrentConversationReturnsCopy(t *testing.T) {
	manager, _, _ := newTestManager(t)

	_, err := manager.AddMessage("user", "original")
	require.NoError(t, err)

	snap := manager.GetCurrentConversation()
	snap.Messages[0].Content = "mutated"

	require.Equal(t, "original", manager.GetCurrentConversation().Messages[0].Content)
}

// The eviction policy can delete the active conversation; the manager must
// recover with a fresh one on the next load instead of erroring.
func TestManagerRecoversWhenActiveConversationEvicted(t *testing.T) {
	s := store.NewMemoryStore(store.WithQuota(64))
	now := testClock()
	fillConversations(t, s, now, 9)

	repo := NewRepository(s, WithNowFunc(now), WithEvictionTrigger(0))
	require.NoError(t, repo.SetActiveID("conv_00"))
	require.NoError(t, repo.Upsert(Conversation{
		ID:       "conv_new",
		Messages: []Message{NewMessage("user", "evicts the oldest")},
	}))

	// conv_00 is gone but still pointed at; Initialize must recover
	manager := NewManager(NewRepository(s, WithNowFunc(now), WithEvictionTrigger(1e9)))
	require.NoError(t, manager.Initialize())

	snap := manager.GetCurrentConversation()
	require.NotEmpty(t, snap.ID)
	require.NotEqual(t, "conv_00", snap.ID)
	require.Empty(t, snap.Messages)
}
