package gateway

// Package gateway translates a user message plus conversation history into an
// outbound API call through the bus, attaches first-turn page context, and
// persists the assistant's reply via the session controller. A failed send
// leaves the conversation state unchanged: nothing is persisted until the
// reply arrives.

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/sidechat/pkg/bus"
	"github.com/go-go-golems/sidechat/pkg/claude/api"
	"github.com/go-go-golems/sidechat/pkg/conversation"
	"github.com/go-go-golems/sidechat/pkg/pagectx"
	"github.com/go-go-golems/sidechat/pkg/settings"
)

// ErrTransport marks network or API failures; the UI boundary surfaces it as
// a dismissible inline error.
var ErrTransport = errors.New("transport error")

// Caller abstracts the bus client so a single-process test harness can
// substitute direct calls.
type Caller interface {
	Call(ctx context.Context, reqType string, payload interface{}, out interface{}) error
}

// SendResult is the normalized reply returned to UI surfaces.
type SendResult struct {
	Response       string `json:"response"`
	ConversationID string `json:"conversationId"`
}

type Gateway struct {
	manager  conversation.Manager
	repo     *conversation.Repository
	caller   Caller
	pages    pagectx.Provider
	settings *settings.Settings
}

type GatewayOption func(*Gateway)

func WithPageProvider(provider pagectx.Provider) GatewayOption {
	return func(g *Gateway) {
		g.pages = provider
	}
}

func NewGateway(
	manager conversation.Manager,
	repo *conversation.Repository,
	caller Caller,
	cfg *settings.Settings,
	options ...GatewayOption,
) *Gateway {
	ret := &Gateway{
		manager:  manager,
		repo:     repo,
		caller:   caller,
		pages:    pagectx.NopProvider{},
		settings: cfg,
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// SendMessage relays userText with the full history of conversationID and
// returns the assistant's reply. On success the user message, any injected
// context message, and the assistant reply are persisted in that order.
func (g *Gateway) SendMessage(ctx context.Context, userText string, conversationID string) (*SendResult, error) {
	apiKey, err := g.settings.APIKey()
	if err != nil {
		return nil, err
	}

	if snap := g.manager.GetCurrentConversation(); snap.ID != conversationID {
		if err := g.manager.LoadConversation(conversationID); err != nil {
			return nil, err
		}
	}
	snap := g.manager.GetCurrentConversation()
	conversationID = snap.ID

	userMsg := conversation.NewMessage(string(conversation.RoleUser), userText)
	working := append(append([]conversation.Message(nil), snap.Messages...), userMsg)

	isFirst := g.manager.IsFirstMessage()
	var contextMsg *conversation.Message
	if isFirst {
		if page := g.activePage(ctx); page != nil {
			msg := conversation.NewMessage(string(conversation.RoleUser), page.ContextMessage())
			working = append([]conversation.Message{msg}, working...)
			contextMsg = &msg

			if err := g.repo.SetWebsiteInfo(conversationID, conversation.WebsiteInfo{
				Title: page.Title,
				URL:   page.URL,
			}); err != nil {
				log.Warn().Err(err).Str("conversation_id", conversationID).Msg("failed to cache website info")
			}
		}
		g.manager.MarkFirstMessageConsumed()
	}

	var reply bus.SendMessageReply
	err = g.caller.Call(ctx, bus.TypeSendMessage, bus.SendMessageRequest{
		APIKey:         apiKey,
		Model:          g.settings.Model,
		Messages:       Normalize(working),
		IsFirstMessage: isFirst,
		ConversationID: conversationID,
	}, &reply)
	if err != nil {
		return nil, errors.Wrap(ErrTransport, err.Error())
	}
	if reply.Error != "" {
		return nil, errors.Wrap(ErrTransport, reply.Error)
	}
	if reply.Content == "" {
		return nil, errors.Wrap(ErrTransport, "no response content received")
	}

	if contextMsg != nil {
		if _, err := g.manager.InsertContextMessage(contextMsg.Content); err != nil {
			return nil, err
		}
	}
	assistantMsg := conversation.NewMessage(string(conversation.RoleAssistant), reply.Content)
	if err := g.manager.AppendMessages(userMsg, assistantMsg); err != nil {
		return nil, err
	}

	return &SendResult{
		Response:       reply.Content,
		ConversationID: conversationID,
	}, nil
}

// activePage asks the page-context bridge for the current tab, best-effort.
func (g *Gateway) activePage(ctx context.Context) *pagectx.PageContent {
	page, err := g.pages.GetActiveTabContent(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("page context bridge failed")
		return nil
	}
	return page
}

// Normalize strips messages down to the minimal wire shape: role and content
// only, with roles coerced to the two supported variants.
func Normalize(msgs []conversation.Message) []api.Message {
	ret := make([]api.Message, 0, len(msgs))
	for _, m := range msgs {
		ret = append(ret, api.Message{
			Role:    string(conversation.CoerceRole(string(m.Role))),
			Content: m.Content,
		})
	}
	return ret
}
