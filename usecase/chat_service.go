package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xak1234/Huntley/domain"
	"github.com/xak1234/Huntley/utils/log"
)

// ChatService turns a user message into a reply and keeps the shared
// transcript. All load-generate-save sequences run one at a time on the
// goroutine started by Run.
type ChatService struct {
	store   domain.TranscriptStore
	llm     domain.Llm
	persona *Persona
	broker  domain.MessageBroker
	prompt  PromptBuilder
	genCfg  domain.GenerationConfig
	now     func() time.Time
	jobs    chan chatJob
	done    chan struct{}
	stop    sync.Once
}

type chatJob struct {
	ctx    context.Context
	text   string
	result chan chatResult
}

type chatResult struct {
	reply string
	err   error
}

type Option func(*ChatService)

// WithBroker publishes a TurnEvent for every persisted turn.
func WithBroker(b domain.MessageBroker) Option {
	return func(s *ChatService) { s.broker = b }
}

// WithAssistantName sets the name used in the prompt header and closing.
func WithAssistantName(name string) Option {
	return func(s *ChatService) { s.prompt = PromptBuilder{Name: name} }
}

// WithGenerationConfig overrides DefaultGenerationConfig.
func WithGenerationConfig(cfg domain.GenerationConfig) Option {
	return func(s *ChatService) { s.genCfg = cfg }
}

func NewChatService(store domain.TranscriptStore, gen domain.Llm, persona *Persona, opts ...Option) *ChatService {
	if persona == nil {
		persona = NewPersona(DefaultPersona)
	}
	s := &ChatService{
		store:   store,
		llm:     gen,
		persona: persona,
		prompt:  PromptBuilder{Name: "Huntley"},
		genCfg:  domain.DefaultGenerationConfig(),
		now:     time.Now,
		jobs:    make(chan chatJob),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run processes chat jobs in arrival order until ctx is done. Messages still
// waiting for the loop when it exits fail with domain.ErrServiceStopped.
func (s *ChatService) Run(ctx context.Context) {
	defer s.stop.Do(func() { close(s.done) })
	for {
		// Stop before taking another job once ctx is done, even if jobs are waiting.
		if ctx.Err() != nil {
			log.WithCtx(ctx).Info("Chat service stopped")
			return
		}
		select {
		case job := <-s.jobs:
			if err := job.ctx.Err(); err != nil {
				job.result <- chatResult{err: err}
				continue
			}
			reply, err := s.handle(job.ctx, job.text)
			job.result <- chatResult{reply: reply, err: err}
		case <-ctx.Done():
			log.WithCtx(ctx).Info("Chat service stopped")
			return
		}
	}
}

// HandleMessage validates text, queues it behind earlier messages and waits
// for the reply.
func (s *ChatService) HandleMessage(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", domain.ErrMessageRequired
	}

	job := chatJob{ctx: ctx, text: text, result: make(chan chatResult, 1)}
	select {
	case s.jobs <- job:
	case <-s.done:
		return "", domain.ErrServiceStopped
	case <-ctx.Done():
		return "", ctx.Err()
	}

	// A job handed to the loop always gets a result, even if Run exits right after.
	select {
	case res := <-job.result:
		return res.reply, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// History returns the persisted transcript.
func (s *ChatService) History(ctx context.Context) (domain.Transcript, error) {
	return s.store.Load(ctx)
}

func (s *ChatService) handle(ctx context.Context, text string) (string, error) {
	transcript, err := s.store.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("load transcript: %w", err)
	}

	userTurn := domain.Turn{Sender: domain.HumanSender, Content: text}
	transcript = transcript.Append(userTurn)
	prompt := s.prompt.Build(s.persona.Get(), transcript, text)

	// The user turn only lives in memory until a reply exists; a total
	// provider failure leaves the stored transcript untouched.
	reply, err := s.llm.Generate(ctx, prompt, s.genCfg)
	if err != nil {
		return "", err
	}

	botTurn := domain.Turn{Sender: domain.AssistantSender, Content: reply}
	transcript = transcript.Append(botTurn)
	if err := s.store.Save(ctx, transcript); err != nil {
		log.WithCtx(ctx).Error("Failed to persist transcript, returning reply anyway",
			zap.Int("turns", transcript.Len()), zap.Error(err))
		return reply, nil
	}

	log.WithCtx(ctx).Info("Reply generated",
		zap.Int("prompt_length", len(prompt)),
		zap.Int("reply_length", len(reply)),
		zap.Int("turns", transcript.Len()))

	s.publish(ctx, userTurn, botTurn)
	return reply, nil
}

func (s *ChatService) publish(ctx context.Context, turns ...domain.Turn) {
	if s.broker == nil {
		return
	}
	for _, turn := range turns {
		payload, err := json.Marshal(domain.TurnEvent{Sender: turn.Sender, Content: turn.Content, Timestamp: s.now()})
		if err != nil {
			log.WithCtx(ctx).Error("Failed to marshal turn event", zap.Error(err))
			continue
		}
		if err := s.broker.Publish(ctx, domain.TurnTopic, "", payload); err != nil {
			log.WithCtx(ctx).Warn("Failed to publish turn event", zap.Error(err))
		}
	}
}

// IsValidationError reports whether err was caused by caller input.
func IsValidationError(err error) bool {
	return errors.Is(err, domain.ErrMessageRequired)
}
