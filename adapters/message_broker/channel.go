package message_broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xak1234/Huntley/domain"
	"github.com/xak1234/Huntley/utils/log"
)

const topicBuffer = 100

// ChannelMessageBroker implements MessageBroker using Go channels. Each
// topic/routingKey pair is a single buffered channel with one consumer.
type ChannelMessageBroker struct {
	topics map[string]chan domain.Message
	mu     sync.Mutex
	closed bool
}

func NewChannelMessageBroker() *ChannelMessageBroker {
	return &ChannelMessageBroker{
		topics: make(map[string]chan domain.Message),
	}
}

func makeKey(topic, routingKey string) string {
	return topic + ":" + routingKey
}

// channel returns the channel for key, creating it on first use.
// Callers hold b.mu.
func (b *ChannelMessageBroker) channel(key string) chan domain.Message {
	ch, exists := b.topics[key]
	if !exists {
		ch = make(chan domain.Message, topicBuffer)
		b.topics[key] = ch
	}
	return ch
}

// Publish never blocks: a full topic returns an error.
func (b *ChannelMessageBroker) Publish(ctx context.Context, topic string, routingKey string, message []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("message broker is closed")
	}

	msg := domain.Message{
		Topic:      topic,
		RoutingKey: routingKey,
		Payload:    message,
		Timestamp:  time.Now(),
	}

	select {
	case b.channel(makeKey(topic, routingKey)) <- msg:
		log.WithCtx(ctx).Debug("Message published to topic",
			zap.String("topic", topic),
			zap.String("routingKey", routingKey),
			zap.Int("payload_size", len(message)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("topic channel is full: %s:%s", topic, routingKey)
	}
}

func (b *ChannelMessageBroker) Subscribe(ctx context.Context, topic string, routingKey string) (<-chan domain.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("message broker is closed")
	}

	log.WithCtx(ctx).Info("Subscribed to topic", zap.String("topic", topic), zap.String("routingKey", routingKey))
	return b.channel(makeKey(topic, routingKey)), nil
}

// Close closes every topic channel; subscribers observe a closed channel.
func (b *ChannelMessageBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for key, channel := range b.topics {
		close(channel)
		log.With(zap.String("key", key)).Debug("Closed topic channel")
	}
	b.topics = make(map[string]chan domain.Message)

	log.With().Info("Message broker closed")
	return nil
}

// GetTopicCount returns the number of active topics
func (b *ChannelMessageBroker) GetTopicCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.topics)
}

func (b *ChannelMessageBroker) IsClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

var _ domain.MessageBroker = (*ChannelMessageBroker)(nil)
