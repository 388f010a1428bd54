package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/xak1234/Huntley/domain"
)

type memStore struct {
	mu      sync.Mutex
	t       domain.Transcript
	saves   int
	saveErr error
}

func (m *memStore) Load(_ context.Context) (domain.Transcript, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.Append(), nil
}

func (m *memStore) Save(_ context.Context, t domain.Transcript) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.t = t.Append()
	return nil
}

func (m *memStore) snapshot() domain.Transcript {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.Append()
}

type fakeLlm struct {
	name    string
	mu      sync.Mutex
	prompts []string
	reply   func(prompt string) (string, error)
}

func (f *fakeLlm) Name() string { return f.name }

func (f *fakeLlm) Generate(ctx context.Context, prompt string, _ domain.GenerationConfig) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return f.reply(prompt)
}

func (f *fakeLlm) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func replyWith(text string) func(string) (string, error) {
	return func(string) (string, error) { return text, nil }
}

func failWith(provider string, status int) func(string) (string, error) {
	return func(string) (string, error) {
		return "", &domain.ProviderError{Provider: provider, StatusCode: status, Err: errors.New("request failed")}
	}
}
