package usecase

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/xak1234/Huntley/domain"
	"github.com/xak1234/Huntley/utils/log"
)

// DefaultPersona is served until a persona document has been loaded, and
// for the whole process lifetime when loading fails.
const DefaultPersona = "Default bot background: Huntley is a friendly and helpful AI assistant."

// Persona holds the assistant background. Reads never block; the value
// can be replaced at most once.
type Persona struct {
	value atomic.Pointer[string]
	once  sync.Once
}

func NewPersona(def string) *Persona {
	if strings.TrimSpace(def) == "" {
		def = DefaultPersona
	}
	p := &Persona{}
	p.value.Store(&def)
	return p
}

func (p *Persona) Get() string {
	return *p.value.Load()
}

// Set replaces the default. It reports false when a value was already set
// or v is blank.
func (p *Persona) Set(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	applied := false
	p.once.Do(func() {
		p.value.Store(&v)
		applied = true
	})
	return applied
}

// Load extracts the persona from src and stores it. Failures are logged and
// leave the default in place.
func (p *Persona) Load(ctx context.Context, src domain.PersonaSource) {
	text, err := src.Extract(ctx)
	if err != nil {
		log.WithCtx(ctx).Warn("Failed to load persona, keeping default", zap.Error(err))
		return
	}
	if !p.Set(text) {
		log.WithCtx(ctx).Warn("Persona document was empty, keeping default")
		return
	}
	log.WithCtx(ctx).Info("Loaded persona", zap.Int("length", len(p.Get())))
}
