package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/xak1234/Huntley/domain"
	"github.com/xak1234/Huntley/utils/log"
)

// Chatter answers chat frames.
type Chatter interface {
	HandleMessage(ctx context.Context, text string) (string, error)
}

type Server struct {
	upgrader      websocket.Upgrader
	chat          Chatter
	messageBroker domain.MessageBroker
	hub           *Hub
}

func NewServer(chat Chatter, messageBroker domain.MessageBroker) *Server {
	return &Server{
		upgrader:      websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		chat:          chat,
		messageBroker: messageBroker,
		hub:           NewHub(),
	}
}

// Start runs the hub and the turn listener until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	messageChan, err := s.messageBroker.Subscribe(ctx, domain.TurnTopic, "")
	if err != nil {
		return err
	}
	s.hub.Run()
	go s.listenTurns(ctx, messageChan)
	return nil
}

func (s *Server) GetHub() *Hub {
	return s.hub
}

// listenTurns forwards persisted turns to every connected client.
func (s *Server) listenTurns(ctx context.Context, messageChan <-chan domain.Message) {
	log.WithCtx(ctx).Info("WebSocket server listening to transcript turns")

	for {
		select {
		case msg, ok := <-messageChan:
			if !ok {
				log.WithCtx(ctx).Info("Turn topic closed")
				return
			}
			var event domain.TurnEvent
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				log.WithCtx(ctx).Error("Failed to unmarshal turn event", zap.Error(err))
				continue
			}

			data, err := json.Marshal(Frame{
				Type:      FrameTurn,
				Sender:    string(event.Sender),
				Content:   event.Content,
				Timestamp: &event.Timestamp,
			})
			if err != nil {
				log.WithCtx(ctx).Error("Failed to marshal WebSocket frame", zap.Error(err))
				continue
			}
			s.hub.Broadcast(data)

		case <-ctx.Done():
			log.WithCtx(ctx).Info("Turn listener stopped")
			return
		}
	}
}

// handleFrame answers chat frames directly to the sender; the persisted
// turns reach everyone through the broadcast.
func (s *Server) handleFrame(c *Client, f Frame) {
	if f.Type != FrameChat {
		c.SendFrame(Frame{Type: FrameError, Message: "unsupported frame type"})
		return
	}

	reply, err := s.chat.HandleMessage(c.Context(), f.Message)
	switch {
	case err == nil:
		c.SendFrame(Frame{Type: FrameReply, Sender: string(domain.AssistantSender), Content: reply})
	case errors.Is(err, domain.ErrMessageRequired):
		c.SendFrame(Frame{Type: FrameError, Message: "Message required"})
	default:
		log.WithCtx(c.Context()).Error("Error generating response", zap.Error(err))
		c.SendFrame(Frame{Type: FrameError, Message: "Failed to generate response"})
	}
}
