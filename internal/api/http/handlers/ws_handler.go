package handlers

import (
	"context"
	"encoding/json"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/casework-service/internal/auth"
	"github.com/spec-kit/casework-service/internal/observability"
	"github.com/spec-kit/casework-service/internal/realtime"
	"github.com/spec-kit/casework-service/internal/service"
)

const (
	commandJoin  = "join-conversation"
	commandLeave = "leave-conversation"
)

type wsCommand struct {
	Action         string `json:"action"`
	ConversationID string `json:"conversationId"`
}

type wsAck struct {
	Event          string `json:"event"`
	ConversationID string `json:"conversationId,omitempty"`
	Error          string `json:"error,omitempty"`
}

// WSHandler upgrades connections and bridges them onto the realtime hub.
// Room joins are authorized with the same scoping as conversation reads.
type WSHandler struct {
	hub           *realtime.Hub
	conversations *service.ConversationService
	metrics       *observability.Metrics
	logger        *zap.Logger
}

// NewWSHandler constructs handler.
func NewWSHandler(hub *realtime.Hub, conversations *service.ConversationService, metrics *observability.Metrics, logger *zap.Logger) *WSHandler {
	return &WSHandler{hub: hub, conversations: conversations, metrics: metrics, logger: logger}
}

// Upgrade gates non-websocket requests off the endpoint.
func (h *WSHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Serve returns the websocket connection handler.
func (h *WSHandler) Serve() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		principal, ok := conn.Locals(auth.PrincipalKey).(*auth.Principal)
		if !ok {
			_ = conn.Close()
			return
		}

		h.metrics.WSConnected()
		defer h.metrics.WSDisconnected()

		sub := h.hub.Register()
		defer h.hub.Unregister(sub)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer pump: hub events and command acks share the socket
		// through one goroutine.
		acks := make(chan wsAck, 8)
		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			for {
				select {
				case event, open := <-sub.Events():
					if !open {
						return
					}
					if err := conn.WriteJSON(event); err != nil {
						return
					}
				case ack, open := <-acks:
					if !open {
						return
					}
					if err := conn.WriteJSON(ack); err != nil {
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()

		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				break
			}
			var cmd wsCommand
			if err := json.Unmarshal(payload, &cmd); err != nil || cmd.ConversationID == "" {
				h.enqueue(acks, wsAck{Event: "error", Error: "invalid command"})
				continue
			}
			switch cmd.Action {
			case commandJoin:
				if err := h.conversations.AuthorizeAccess(ctx, principal, cmd.ConversationID); err != nil {
					h.enqueue(acks, wsAck{Event: "join-rejected", ConversationID: cmd.ConversationID, Error: "conversation not found"})
					continue
				}
				h.hub.Join(sub, cmd.ConversationID)
				h.enqueue(acks, wsAck{Event: "joined", ConversationID: cmd.ConversationID})
			case commandLeave:
				h.hub.Leave(sub, cmd.ConversationID)
				h.enqueue(acks, wsAck{Event: "left", ConversationID: cmd.ConversationID})
			default:
				h.enqueue(acks, wsAck{Event: "error", Error: "unknown action"})
			}
		}

		cancel()
		<-writerDone
	})
}

func (h *WSHandler) enqueue(acks chan wsAck, ack wsAck) {
	select {
	case acks <- ack:
	default:
		h.logger.Warn("dropping ws ack", zap.String("event", ack.Event))
	}
}
