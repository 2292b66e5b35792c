package bus

// Package bus implements the message passing between the long-lived
// background coordinator and the transient panel surface. Requests carry a
// tagged kind and a JSON payload; replies are matched to their request via a
// correlation id. A single gochannel pub/sub substitutes for the browser
// runtime's message bus, which also lets tests run both sides in one process.

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	topicRequests      = "sidechat.requests"
	topicReplies       = "sidechat.replies"
	topicNotifications = "sidechat.notifications"

	metaType          = "type"
	metaCorrelationID = "correlation_id"
)

// Envelope is a decoded notification as seen by a subscriber.
type Envelope struct {
	Type    string
	Payload json.RawMessage
}

type Bus struct {
	pubsub *gochannel.GoChannel
	logger watermill.LoggerAdapter
}

type BusOption func(*Bus)

func WithLogger(logger watermill.LoggerAdapter) BusOption {
	return func(b *Bus) {
		b.logger = logger
	}
}

func New(options ...BusOption) *Bus {
	ret := &Bus{
		logger: watermill.NopLogger{},
	}
	for _, option := range options {
		option(ret)
	}
	ret.pubsub = gochannel.NewGoChannel(gochannel.Config{}, ret.logger)
	return ret
}

func (b *Bus) Close() error {
	return b.pubsub.Close()
}

// Client is the panel-side handle: request/response calls and fire-and-forget
// notifications.
type Client struct {
	bus *Bus
}

func NewClient(b *Bus) *Client {
	return &Client{bus: b}
}

// Call publishes a request and blocks until the matching reply arrives or the
// context is done. The reply payload is decoded into out; per-call errors
// travel in-band in the reply payload's error field.
func (c *Client) Call(ctx context.Context, reqType string, payload interface{}, out interface{}) error {
	// Scope the reply subscription to this call so abandoned subscribers do
	// not pile up on the reply topic.
	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	replies, err := c.bus.pubsub.Subscribe(callCtx, topicReplies)
	if err != nil {
		return errors.Wrap(err, "subscribe replies")
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "marshal request")
	}

	correlationID := watermill.NewUUID()
	msg := message.NewMessage(watermill.NewUUID(), b)
	msg.Metadata.Set(metaType, reqType)
	msg.Metadata.Set(metaCorrelationID, correlationID)

	if err := c.bus.pubsub.Publish(topicRequests, msg); err != nil {
		return errors.Wrap(err, "publish request")
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case reply, ok := <-replies:
			if !ok {
				return errors.New("reply channel closed")
			}
			reply.Ack()
			if reply.Metadata.Get(metaCorrelationID) != correlationID {
				continue
			}
			return errors.Wrap(json.Unmarshal(reply.Payload, out), "unmarshal reply")
		}
	}
}

// Notify publishes a notification; there is no reply.
func (c *Client) Notify(ctx context.Context, kind string, payload interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "marshal notification")
	}
	msg := message.NewMessage(watermill.NewUUID(), b)
	msg.Metadata.Set(metaType, kind)
	return errors.Wrap(c.bus.pubsub.Publish(topicNotifications, msg), "publish notification")
}

// Notifications subscribes to the notification topic and returns decoded
// envelopes. The channel closes when the context is done.
func (c *Client) Notifications(ctx context.Context) (<-chan Envelope, error) {
	msgs, err := c.bus.pubsub.Subscribe(ctx, topicNotifications)
	if err != nil {
		return nil, errors.Wrap(err, "subscribe notifications")
	}

	out := make(chan Envelope)
	go func() {
		defer close(out)
		for msg := range msgs {
			msg.Ack()
			env := Envelope{
				Type:    msg.Metadata.Get(metaType),
				Payload: append(json.RawMessage(nil), msg.Payload...),
			}
			select {
			case out <- env:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Handler answers a single request kind. The returned value is marshaled as
// the reply payload; user-facing failures belong in the payload's error
// field, a returned error stands for an internal failure.
type Handler func(ctx context.Context, payload json.RawMessage) (interface{}, error)

// Service is the background-side dispatcher: it answers requests one at a
// time, in arrival order.
type Service struct {
	bus      *Bus
	handlers map[string]Handler
	running  chan struct{}
}

func NewService(b *Bus) *Service {
	return &Service{
		bus:      b,
		handlers: map[string]Handler{},
		running:  make(chan struct{}),
	}
}

func (s *Service) Handle(kind string, handler Handler) {
	s.handlers[kind] = handler
}

// Running closes once the service is subscribed and requests will no longer
// be dropped.
func (s *Service) Running() <-chan struct{} {
	return s.running
}

// Run dispatches requests until the context is done or the bus closes.
func (s *Service) Run(ctx context.Context) error {
	msgs, err := s.bus.pubsub.Subscribe(ctx, topicRequests)
	if err != nil {
		return errors.Wrap(err, "subscribe requests")
	}
	close(s.running)

	for msg := range msgs {
		s.dispatch(ctx, msg)
		msg.Ack()
	}
	return nil
}

type errorReply struct {
	Error string `json:"error"`
}

func (s *Service) dispatch(ctx context.Context, msg *message.Message) {
	kind := msg.Metadata.Get(metaType)
	correlationID := msg.Metadata.Get(metaCorrelationID)

	handler, ok := s.handlers[kind]

	var reply interface{}
	switch {
	case !ok:
		log.Warn().Str("type", kind).Msg("unknown request type")
		reply = errorReply{Error: "Unknown request type"}
	default:
		ret, err := handler(ctx, json.RawMessage(msg.Payload))
		if err != nil {
			log.Error().Err(err).Str("type", kind).Msg("request handler failed")
			reply = errorReply{Error: err.Error()}
		} else {
			reply = ret
		}
	}

	b, err := json.Marshal(reply)
	if err != nil {
		log.Error().Err(err).Str("type", kind).Msg("failed to marshal reply")
		return
	}

	replyMsg := message.NewMessage(watermill.NewUUID(), b)
	replyMsg.Metadata.Set(metaType, kind)
	replyMsg.Metadata.Set(metaCorrelationID, correlationID)
	if err := s.bus.pubsub.Publish(topicReplies, replyMsg); err != nil {
		log.Error().Err(err).Str("type", kind).Msg("failed to publish reply")
	}
}
