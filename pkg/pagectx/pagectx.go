package pagectx

// Package pagectx defines the contract with the page-context bridge: the
// collaborator that supplies the title, URL and extracted text of the page
// the user is looking at. Providers are best-effort; a nil result simply
// means no context is attached to the conversation.

import (
	"context"
	"fmt"
)

// PageContent is the page metadata and extracted text for the active tab.
type PageContent struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// ContextMessage renders the synthetic user-role message injected as the
// first entry of a conversation's first turn. It is sent to the model and
// persisted as part of history, but not shown in the UI history view.
func (p *PageContent) ContextMessage() string {
	return fmt.Sprintf(
		"I am currently looking at this web page:\nTitle: %s\nURL: %s\n\nPage content:\n%s",
		p.Title, p.URL, p.Content,
	)
}

// Provider supplies the active tab's content. Implementations must not panic
// past this boundary; returning (nil, nil) is the way to report "no context
// available".
type Provider interface {
	GetActiveTabContent(ctx context.Context) (*PageContent, error)
}

// NopProvider never has page context.
type NopProvider struct{}

var _ Provider = (*NopProvider)(nil)

func (NopProvider) GetActiveTabContent(ctx context.Context) (*PageContent, error) {
	return nil, nil
}

// StaticProvider returns a fixed page, useful for tests and for driving the
// relay from environments without a real browser bridge.
type StaticProvider struct {
	Page *PageContent
}

var _ Provider = (*StaticProvider)(nil)

func NewStaticProvider(page *PageContent) *StaticProvider {
	return &StaticProvider{Page: page}
}

func (p *StaticProvider) GetActiveTabContent(ctx context.Context) (*PageContent, error) {
	return p.Page, nil
}
