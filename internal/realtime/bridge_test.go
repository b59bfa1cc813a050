package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/casework-service/internal/domain"
	"github.com/spec-kit/casework-service/internal/events"
)

func TestBridgeLocalFallback(t *testing.T) {
	req := require.New(t)
	hub := NewHub(4, zap.NewNop())
	defer hub.Close()

	// no redis client configured: events still reach local subscribers
	bridge := NewBridge(nil, hub, "", zap.NewNop())
	dispatcher := events.NewInMemoryDispatcher()
	bridge.RegisterHandlers(dispatcher)

	sub := hub.Register()
	hub.Join(sub, "conv-1")

	err := dispatcher.Publish(context.Background(), events.Event{
		Type:           events.EventNewMessage,
		ConversationID: "conv-1",
		ActorID:        "worker-1",
		Payload: events.NewMessagePayload{Message: domain.Message{
			ID:             "msg-1",
			ConversationID: "conv-1",
			SenderID:       "worker-1",
			MessageType:    domain.MessageTypeText,
			Body:           "xin chào",
			Language:       "vi",
			CreatedAt:      time.Now(),
		}},
	})
	req.NoError(err)

	got := drain(sub)
	req.Len(got, 1)
	req.Equal(string(events.EventNewMessage), got[0].Name)
	req.Equal("conv-1", got[0].ConversationID)

	// message payload uses the same casing as the REST responses
	var wire map[string]any
	req.NoError(json.Unmarshal(got[0].Message, &wire))
	req.Equal("msg-1", wire["id"])
	req.Equal("conv-1", wire["conversation_id"])
	req.Equal("worker-1", wire["sender_id"])
	req.Equal("xin chào", wire["body"])
}

func TestBridgeIgnoresForeignPayloads(t *testing.T) {
	req := require.New(t)
	hub := NewHub(4, zap.NewNop())
	defer hub.Close()

	bridge := NewBridge(nil, hub, "", zap.NewNop())
	sub := hub.Register()
	hub.Join(sub, "conv-1")

	err := bridge.handleNewMessage(context.Background(), events.Event{
		Type:           events.EventNewMessage,
		ConversationID: "conv-1",
		Payload:        "not a message payload",
	})
	req.NoError(err)
	req.Empty(drain(sub))
}

func TestBridgeDropsMalformedWirePayload(t *testing.T) {
	req := require.New(t)
	hub := NewHub(4, zap.NewNop())
	defer hub.Close()

	bridge := NewBridge(nil, hub, "", zap.NewNop())
	sub := hub.Register()
	hub.Join(sub, "conv-1")

	bridge.deliver("conv-1", []byte("{definitely not json"))
	req.Empty(drain(sub))

	bridge.deliver("conv-1", []byte(`{"event":"new-message","conversationId":"conv-1"}`))
	req.Len(drain(sub), 1)
}
