package llm

import (
	"context"
	"sync"

	"github.com/brandlens/brandlens/internal/domain/entity"
	"github.com/brandlens/brandlens/internal/domain/service"
	domaintool "github.com/brandlens/brandlens/internal/domain/tool"
)

// Config holds provider configuration. It is immutable for the process
// lifetime once the lazy client has initialized.
type Config struct {
	APIKey          string
	Model           string
	BaseURL         string
	Temperature     float64
	MaxOutputTokens int
}

// Lazy defers provider construction to the first call so that a missing API
// key is fatal on first use rather than at startup. The built client is a
// process-wide singleton; the init error is sticky and returned on every
// subsequent call.
type Lazy struct {
	once   sync.Once
	build  func() (service.LLMClient, error)
	client service.LLMClient
	err    error
}

// NewLazy wraps a provider constructor.
func NewLazy(build func() (service.LLMClient, error)) *Lazy {
	return &Lazy{build: build}
}

var _ service.LLMClient = (*Lazy)(nil)

func (l *Lazy) GenerateStream(ctx context.Context, system string, history []entity.Turn, tools []domaintool.Definition, deltaCh chan<- service.StreamPart) (*entity.Turn, error) {
	l.once.Do(func() {
		l.client, l.err = l.build()
	})
	if l.err != nil {
		return nil, l.err
	}
	return l.client.GenerateStream(ctx, system, history, tools, deltaCh)
}
