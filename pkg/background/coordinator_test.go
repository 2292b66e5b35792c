package background

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/sidechat/pkg/bus"
	"github.com/go-go-golems/sidechat/pkg/claude/api"
)

func startCoordinator(t *testing.T, handler http.HandlerFunc) (*bus.Client, context.Context) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	b := bus.New()
	t.Cleanup(func() { _ = b.Close() })

	coordinator := NewCoordinator(b, WithClientFactory(func(apiKey string) *api.Client {
		return api.NewClient(apiKey, api.WithBaseURL(server.URL))
	}))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() {
		_ = coordinator.Run(ctx)
	}()
	<-coordinator.Running()

	return bus.NewClient(b), ctx
}

func TestCoordinatorRelaysMessage(t *testing.T) {
	var gotReq api.MessageRequest
	var gotKey string

	client, ctx := startCoordinator(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(api.MessageResponse{
			Content: []api.ContentBlock{{Type: "text", Text: "Hi there"}},
			Model:   api.DefaultModel,
		})
	})

	var reply bus.SendMessageReply
	err := client.Call(ctx, bus.TypeSendMessage, bus.SendMessageRequest{
		APIKey: "sk-test",
		Model:  api.DefaultModel,
		Messages: []api.Message{
			{Role: "user", Content: "Hello"},
		},
		ConversationID: "conv_1",
	}, &reply)
	require.NoError(t, err)
	require.Equal(t, "Hi there", reply.Content)
	require.Empty(t, reply.Error)

	require.Equal(t, "sk-test", gotKey)
	require.Equal(t, api.DefaultModel, gotReq.Model)
	require.Equal(t, api.DefaultMaxTokens, gotReq.MaxTokens)
	require.NotNil(t, gotReq.Temperature)
	require.InDelta(t, api.DefaultTemperature, *gotReq.Temperature, 1e-9)
}

func TestCoordinatorMapsAuthenticationError(t *testing.T) {
	client, ctx := startCoordinator(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(api.ErrorResponse{
			Error: api.ErrorDetail{Type: "authentication_error", Message: "authentication failed"},
		})
	})

	var reply bus.SendMessageReply
	err := client.Call(ctx, bus.TypeSendMessage, bus.SendMessageRequest{APIKey: "sk-bad"}, &reply)
	require.NoError(t, err)
	require.Contains(t, reply.Error, "Invalid API key")
}

func TestCoordinatorMapsRateLimitError(t *testing.T) {
	client, ctx := startCoordinator(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(api.ErrorResponse{
			Error: api.ErrorDetail{Type: "rate_limit_error", Message: "rate_limit exceeded"},
		})
	})

	var reply bus.SendMessageReply
	err := client.Call(ctx, bus.TypeSendMessage, bus.SendMessageRequest{APIKey: "sk-test"}, &reply)
	require.NoError(t, err)
	require.Contains(t, reply.Error, "Too many requests")
}

func TestCoordinatorPassesThroughUnknownErrors(t *testing.T) {
	client, ctx := startCoordinator(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(api.ErrorResponse{
			Error: api.ErrorDetail{Type: "overloaded_error", Message: "server overloaded"},
		})
	})

	var reply bus.SendMessageReply
	err := client.Call(ctx, bus.TypeSendMessage, bus.SendMessageRequest{APIKey: "sk-test"}, &reply)
	require.NoError(t, err)
	require.Equal(t, "server overloaded", reply.Error)
}

func TestCoordinatorRejectsEmptyContent(t *testing.T) {
	client, ctx := startCoordinator(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(api.MessageResponse{})
	})

	var reply bus.SendMessageReply
	err := client.Call(ctx, bus.TypeSendMessage, bus.SendMessageRequest{APIKey: "sk-test"}, &reply)
	require.NoError(t, err)
	require.Equal(t, "No response content received", reply.Error)
}
