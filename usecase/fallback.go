package usecase

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/xak1234/Huntley/domain"
	"github.com/xak1234/Huntley/utils/log"
)

// FallbackLlm tries providers in order and returns the first reply.
// Each provider is called at most once per Generate.
type FallbackLlm struct {
	providers []domain.Llm
	timeout   time.Duration
}

// NewFallbackLlm builds the chain; nil providers are skipped. A zero
// timeout leaves calls bounded only by the caller's context.
func NewFallbackLlm(timeout time.Duration, providers ...domain.Llm) *FallbackLlm {
	chain := make([]domain.Llm, 0, len(providers))
	for _, p := range providers {
		if p != nil {
			chain = append(chain, p)
		}
	}
	return &FallbackLlm{providers: chain, timeout: timeout}
}

func (f *FallbackLlm) Name() string { return "fallback" }

// Len returns the number of configured providers.
func (f *FallbackLlm) Len() int { return len(f.providers) }

func (f *FallbackLlm) Generate(ctx context.Context, prompt string, cfg domain.GenerationConfig) (string, error) {
	if len(f.providers) == 0 {
		return "", domain.ErrNoProviders
	}

	var errs []error
	for i, provider := range f.providers {
		reply, err := f.call(ctx, provider, prompt, cfg)
		if err == nil {
			if i > 0 {
				log.WithCtx(ctx).Info("Fallback provider answered", zap.String("provider", provider.Name()))
			}
			return reply, nil
		}

		errs = append(errs, err)
		fields := []zap.Field{zap.String("provider", provider.Name()), zap.Error(err)}
		var perr *domain.ProviderError
		if errors.As(err, &perr) {
			fields = append(fields, zap.Int("status", perr.StatusCode), zap.String("body", truncate(perr.Body, 512)))
		}
		if i+1 < len(f.providers) {
			log.WithCtx(ctx).Warn("Provider failed, falling back", append(fields, zap.String("next", f.providers[i+1].Name()))...)
		} else {
			log.WithCtx(ctx).Error("Provider failed", fields...)
		}
	}
	return "", errors.Join(errs...)
}

func (f *FallbackLlm) call(ctx context.Context, provider domain.Llm, prompt string, cfg domain.GenerationConfig) (string, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	return provider.Generate(ctx, prompt, cfg)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var _ domain.Llm = (*FallbackLlm)(nil)
