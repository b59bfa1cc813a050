package realtime

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/casework-service/internal/api/dto"
	"github.com/spec-kit/casework-service/internal/events"
)

// Bridge connects the in-process dispatcher to the shared Redis pub/sub
// layer so that every replica's subscribers observe an event no matter
// which replica accepted the write. Message durability never depends on
// it: publish failures are logged and dropped.
type Bridge struct {
	client *redis.Client
	hub    *Hub
	prefix string
	logger *zap.Logger
	cancel context.CancelFunc
	done   chan struct{}
}

// NewBridge constructs a bridge over the given Redis client.
func NewBridge(client *redis.Client, hub *Hub, prefix string, logger *zap.Logger) *Bridge {
	if prefix == "" {
		prefix = "conversation-"
	}
	return &Bridge{
		client: client,
		hub:    hub,
		prefix: prefix,
		logger: logger,
	}
}

// RegisterHandlers subscribes the bridge to dispatcher events.
func (b *Bridge) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventNewMessage, b.handleNewMessage)
}

// handleNewMessage forwards a new-message event to the Redis channel for
// its conversation room.
func (b *Bridge) handleNewMessage(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.NewMessagePayload)
	if !ok {
		return nil
	}
	// Same wire shape as the REST message responses.
	message, err := json.Marshal(dto.NewMessageResponse(&payload.Message))
	if err != nil {
		return err
	}
	wire, err := json.Marshal(Event{
		Name:           string(events.EventNewMessage),
		ConversationID: event.ConversationID,
		Message:        message,
	})
	if err != nil {
		return err
	}

	if b.client == nil {
		// No shared pub/sub layer configured; fan out locally only.
		b.deliver(event.ConversationID, wire)
		return nil
	}
	if err := b.client.Publish(ctx, b.prefix+event.ConversationID, wire).Err(); err != nil {
		b.logger.Warn("realtime publish failed, event dropped",
			zap.String("conversation_id", event.ConversationID), zap.Error(err))
	}
	return nil
}

// Start begins consuming the shared channel pattern and delivering to the
// local hub. It returns immediately; Stop tears the loop down.
func (b *Bridge) Start(ctx context.Context) {
	if b.client == nil {
		return
	}
	ctx, b.cancel = context.WithCancel(ctx)
	b.done = make(chan struct{})

	pubsub := b.client.PSubscribe(ctx, b.prefix+"*")
	go func() {
		defer close(b.done)
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				conversationID := msg.Channel[len(b.prefix):]
				b.deliver(conversationID, []byte(msg.Payload))
			}
		}
	}()
	b.logger.Info("realtime bridge started", zap.String("pattern", b.prefix+"*"))
}

// Stop halts the consume loop.
func (b *Bridge) Stop() {
	if b.cancel != nil {
		b.cancel()
		<-b.done
	}
}

func (b *Bridge) deliver(conversationID string, wire []byte) {
	var event Event
	if err := json.Unmarshal(wire, &event); err != nil {
		b.logger.Warn("malformed realtime payload dropped", zap.Error(err))
		return
	}
	b.hub.Publish(conversationID, event)
}
