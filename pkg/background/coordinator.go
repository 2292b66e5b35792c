package background

// Package background implements the long-lived coordinator process: it owns
// the outbound API transport and answers SEND_MESSAGE requests from panel
// surfaces over the bus.

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/sidechat/pkg/bus"
	"github.com/go-go-golems/sidechat/pkg/claude/api"
)

type Coordinator struct {
	service *bus.Service

	// newClient builds the API client per request, since the key travels with
	// the request. Injectable so tests can point it at a local server.
	newClient func(apiKey string) *api.Client
}

type CoordinatorOption func(*Coordinator)

func WithClientFactory(factory func(apiKey string) *api.Client) CoordinatorOption {
	return func(c *Coordinator) {
		c.newClient = factory
	}
}

func NewCoordinator(b *bus.Bus, options ...CoordinatorOption) *Coordinator {
	ret := &Coordinator{
		service: bus.NewService(b),
		newClient: func(apiKey string) *api.Client {
			return api.NewClient(apiKey)
		},
	}
	for _, option := range options {
		option(ret)
	}

	ret.service.Handle(bus.TypeSendMessage, ret.handleSendMessage)
	return ret
}

// Run answers bus requests until the context is done.
func (c *Coordinator) Run(ctx context.Context) error {
	return c.service.Run(ctx)
}

// Running closes once the coordinator is accepting requests.
func (c *Coordinator) Running() <-chan struct{} {
	return c.service.Running()
}

func (c *Coordinator) handleSendMessage(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req bus.SendMessageRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, errors.Wrap(err, "unmarshal send message request")
	}

	temperature := api.DefaultTemperature
	resp, err := c.newClient(req.APIKey).SendMessage(ctx, &api.MessageRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		MaxTokens:   api.DefaultMaxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		log.Error().Err(err).Str("model", req.Model).Msg("send message failed")
		return bus.SendMessageReply{Error: mapAPIError(err)}, nil
	}

	if resp.Text() == "" {
		return bus.SendMessageReply{Error: "No response content received"}, nil
	}

	log.Debug().
		Str("model", resp.Model).
		Int("input_tokens", resp.Usage.InputTokens).
		Int("output_tokens", resp.Usage.OutputTokens).
		Msg("send message succeeded")

	return bus.SendMessageReply{Content: resp.Text()}, nil
}

// mapAPIError rewrites known failure classes into actionable user-facing
// text; anything else propagates with the API's raw error message.
func mapAPIError(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "authentication"):
		return "Invalid API key. Please check your key and try again."
	case strings.Contains(msg, "rate_limit"):
		return "Too many requests. Please wait a moment and try again."
	default:
		return msg
	}
}
