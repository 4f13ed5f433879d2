package ai

import (
	"context"
)

// CompletionRequest is a single-shot chat completion request
type CompletionRequest struct {
	// System is the system message framing the assistant's role
	System string
	// Prompt is the user message
	Prompt string
	// JSONMode constrains the completion to a valid JSON object
	JSONMode bool
	// MaxTokens bounds the completion length; 0 means provider default
	MaxTokens int
	// Operation names the calling step for log correlation
	Operation string
}

// Completer is the single "complete chat" capability the context engine
// consumes. Implementations are treated as unreliable: they may time out,
// return malformed output, or be unconfigured, and every caller must carry
// a fallback path.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// ProviderFactory creates a completer from provider configuration
type ProviderFactory func(config map[string]string) (Completer, error)

// ProviderRegistry stores available LLM providers
type ProviderRegistry struct {
	providers map[string]ProviderFactory
}

// NewProviderRegistry creates a new provider registry
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		providers: make(map[string]ProviderFactory),
	}
}

// Register registers a provider factory
func (r *ProviderRegistry) Register(name string, factory ProviderFactory) {
	r.providers[name] = factory
}

// GetProvider gets a provider by name
func (r *ProviderRegistry) GetProvider(name string, config map[string]string) (Completer, error) {
	factory, ok := r.providers[name]
	if !ok {
		return nil, &ErrProviderNotFound{Name: name}
	}

	return factory(config)
}

// ErrProviderNotFound is returned when a provider is not found
type ErrProviderNotFound struct {
	Name string
}

func (e *ErrProviderNotFound) Error() string {
	return "AI provider not found: " + e.Name
}
