package providers

import (
	"context"
	"fmt"
	"strings"
)

// Request contains the prompt sent to a model backend.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float64
}

// Response contains the raw answer of a model backend.
type Response struct {
	Content    string
	TokensUsed int
}

// Backend is the model backend abstraction.
type Backend interface {
	Complete(ctx context.Context, req Request) (Response, error)
	Name() string
}

// Factory creates a backend for a provider and model. It is the seam tests
// use to substitute fake backends.
type Factory func(provider, model string) (Backend, error)

// Names lists the accepted provider names.
func Names() []string {
	return []string{"anthropic", "openai", "groq", "gemini", "ollama", "lmstudio"}
}

// New creates a backend by provider name.
func New(provider, model string) (Backend, error) {
	switch provider {
	case "anthropic":
		return NewAnthropic(model)
	case "openai":
		return NewOpenAI(model)
	case "groq":
		return NewGroq(model)
	case "gemini", "google":
		return NewGemini(model)
	case "ollama", "lmstudio":
		return NewOllama(model)
	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}
}

// ModelSpec names one backend of an advisory chain.
type ModelSpec struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

func (s ModelSpec) String() string { return s.Provider + ":" + s.Model }

// ParseModelSpec parses "provider:model". The model part may itself contain
// colons ("ollama:llama3:8b").
func ParseModelSpec(spec string) (ModelSpec, error) {
	parts := strings.SplitN(strings.TrimSpace(spec), ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return ModelSpec{}, fmt.Errorf("invalid model spec %q: expected provider:model", spec)
	}
	return ModelSpec{Provider: parts[0], Model: parts[1]}, nil
}

// ParseModelSpecs parses every entry of specs.
func ParseModelSpecs(specs []string) ([]ModelSpec, error) {
	out := make([]ModelSpec, 0, len(specs))
	for _, s := range specs {
		ms, err := ParseModelSpec(s)
		if err != nil {
			return nil, err
		}
		out = append(out, ms)
	}
	return out, nil
}
