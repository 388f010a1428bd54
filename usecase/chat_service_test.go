package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xak1234/Huntley/domain"
)

func startService(t *testing.T, store domain.TranscriptStore, gen domain.Llm, opts ...Option) *ChatService {
	t.Helper()
	svc := NewChatService(store, gen, NewPersona("A calm guide."), opts...)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go svc.Run(ctx)
	return svc
}

func TestHandleMessageAppendsTwoTurns(t *testing.T) {
	store := &memStore{}
	primary := &fakeLlm{name: "gemini", reply: replyWith("Hi there")}
	svc := startService(t, store, NewFallbackLlm(0, primary))

	reply, err := svc.HandleMessage(context.Background(), "Hello")
	require.NoError(t, err)
	assert.Equal(t, "Hi there", reply)

	history, err := svc.History(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.Turn{
		{Sender: domain.HumanSender, Content: "Hello"},
		{Sender: domain.AssistantSender, Content: "Hi there"},
	}, history.Messages)

	require.Len(t, primary.prompts, 1)
	assert.Contains(t, primary.prompts[0], "A calm guide.")
	assert.Contains(t, primary.prompts[0], "You: Hello\nUser: Hello")
}

func TestHandleMessageRejectsBlank(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t"} {
		store := &memStore{}
		primary := &fakeLlm{name: "gemini", reply: replyWith("x")}
		svc := startService(t, store, primary)

		_, err := svc.HandleMessage(context.Background(), text)
		assert.ErrorIs(t, err, domain.ErrMessageRequired)
		assert.True(t, IsValidationError(err))
		assert.Equal(t, 0, primary.calls())
		assert.Equal(t, 0, store.saves)
	}
}

func TestHandleMessagePrimaryFailsWithoutSecondary(t *testing.T) {
	store := &memStore{t: domain.Transcript{Messages: []domain.Turn{{Sender: domain.HumanSender, Content: "earlier"}}}}
	primary := &fakeLlm{name: "gemini", reply: failWith("gemini", 500)}
	svc := startService(t, store, NewFallbackLlm(0, primary))

	_, err := svc.HandleMessage(context.Background(), "Hello")
	require.Error(t, err)

	var perr *domain.ProviderError
	assert.ErrorAs(t, err, &perr)
	assert.Equal(t, 0, store.saves)
	assert.Equal(t, []domain.Turn{{Sender: domain.HumanSender, Content: "earlier"}}, store.snapshot().Messages)
}

func TestHandleMessageFallbackReplyIsPersisted(t *testing.T) {
	store := &memStore{}
	primary := &fakeLlm{name: "gemini", reply: failWith("gemini", 503)}
	secondary := &fakeLlm{name: "openai", reply: replyWith("from fallback")}
	svc := startService(t, store, NewFallbackLlm(0, primary, secondary))

	reply, err := svc.HandleMessage(context.Background(), "Hello")
	require.NoError(t, err)
	assert.Equal(t, "from fallback", reply)

	messages := store.snapshot().Messages
	require.Len(t, messages, 2)
	assert.Equal(t, domain.Turn{Sender: domain.AssistantSender, Content: "from fallback"}, messages[1])
	assert.Equal(t, primary.prompts, secondary.prompts)
}

func TestHandleMessagePersistsSentinel(t *testing.T) {
	store := &memStore{}
	svc := startService(t, store, &fakeLlm{name: "gemini", reply: replyWith(domain.NoReply)})

	reply, err := svc.HandleMessage(context.Background(), "Hello")
	require.NoError(t, err)
	assert.Equal(t, "[No reply]", reply)
	assert.Equal(t, "[No reply]", store.snapshot().Messages[1].Content)
}

func TestHandleMessageSaveFailureStillReplies(t *testing.T) {
	store := &memStore{saveErr: &domain.StorageError{Op: "save", Err: errors.New("disk full")}}
	svc := startService(t, store, &fakeLlm{name: "gemini", reply: replyWith("still here")})

	reply, err := svc.HandleMessage(context.Background(), "Hello")
	require.NoError(t, err)
	assert.Equal(t, "still here", reply)
	assert.Equal(t, 0, store.snapshot().Len())
}

func TestHandleMessageSerializesConcurrentRequests(t *testing.T) {
	store := &memStore{}
	gen := &fakeLlm{name: "gemini", reply: func(string) (string, error) {
		time.Sleep(time.Millisecond)
		return "ok", nil
	}}
	svc := startService(t, store, gen)

	const requests = 20
	var wg sync.WaitGroup
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.HandleMessage(context.Background(), fmt.Sprintf("message %d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	messages := store.snapshot().Messages
	require.Len(t, messages, 2*requests)
	for i := 0; i < len(messages); i += 2 {
		assert.Equal(t, domain.HumanSender, messages[i].Sender)
		assert.Equal(t, domain.AssistantSender, messages[i+1].Sender)
	}
}

func TestHandleMessageCanceledContext(t *testing.T) {
	store := &memStore{}
	svc := NewChatService(store, &fakeLlm{name: "gemini", reply: replyWith("x")}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.HandleMessage(ctx, "Hello")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHandleMessagePublishesTurns(t *testing.T) {
	broker := &recordingBroker{}
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	svc := NewChatService(&memStore{}, &fakeLlm{name: "gemini", reply: replyWith("Hi there")}, nil, WithBroker(broker))
	svc.now = func() time.Time { return fixed }
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Run(ctx)

	_, err := svc.HandleMessage(context.Background(), "Hello")
	require.NoError(t, err)

	require.Len(t, broker.payloads, 2)
	var first, second domain.TurnEvent
	require.NoError(t, json.Unmarshal(broker.payloads[0], &first))
	require.NoError(t, json.Unmarshal(broker.payloads[1], &second))
	assert.Equal(t, domain.TurnEvent{Sender: domain.HumanSender, Content: "Hello", Timestamp: fixed}, first)
	assert.Equal(t, domain.TurnEvent{Sender: domain.AssistantSender, Content: "Hi there", Timestamp: fixed}, second)
}

func TestWithAssistantName(t *testing.T) {
	gen := &fakeLlm{name: "gemini", reply: replyWith("ok")}
	svc := startService(t, &memStore{}, gen, WithAssistantName("Soham"))

	_, err := svc.HandleMessage(context.Background(), "Hello")
	require.NoError(t, err)
	assert.Contains(t, gen.prompts[0], "You are Soham,")
	assert.Contains(t, gen.prompts[0], "Respond as Soham:")
}

type recordingBroker struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (b *recordingBroker) Publish(_ context.Context, topic, _ string, message []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if topic == domain.TurnTopic {
		b.payloads = append(b.payloads, message)
	}
	return nil
}

func (b *recordingBroker) Subscribe(context.Context, string, string) (<-chan domain.Message, error) {
	return nil, errors.New("not supported")
}

func (b *recordingBroker) Close() error { return nil }

func TestHandleMessageQueuedBehindStoppedLoop(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	gen := &fakeLlm{name: "gemini", reply: func(string) (string, error) {
		close(entered)
		<-release
		return "first reply", nil
	}}
	svc := NewChatService(&memStore{}, gen, nil)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(stopped)
	}()

	first := make(chan chatResult, 1)
	go func() {
		reply, err := svc.HandleMessage(context.Background(), "one")
		first <- chatResult{reply: reply, err: err}
	}()
	<-entered

	second := make(chan error, 1)
	go func() {
		_, err := svc.HandleMessage(context.Background(), "two")
		second <- err
	}()

	cancel()
	close(release)

	select {
	case res := <-first:
		require.NoError(t, res.err)
		assert.Equal(t, "first reply", res.reply)
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight message did not complete")
	}

	select {
	case err := <-second:
		assert.ErrorIs(t, err, domain.ErrServiceStopped)
	case <-time.After(2 * time.Second):
		t.Fatal("queued message still blocked after the loop stopped")
	}

	<-stopped
	_, err := svc.HandleMessage(context.Background(), "three")
	assert.ErrorIs(t, err, domain.ErrServiceStopped)
	assert.Equal(t, 1, gen.calls())
}
