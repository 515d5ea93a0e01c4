package providers

import (
	"net/http"
	"os"
	"strings"
	"time"
)

const defaultOllamaURL = "http://localhost:11434"

// NewOllama creates a backend for Ollama or LM Studio through their
// OpenAI-compatible endpoint. No API key is required by default.
func NewOllama(model string) (*OpenAI, error) {
	return newOpenAICompatible("ollama", model, os.Getenv("CIMEDIC_OLLAMA_API_KEY"), ollamaBaseURL(os.Getenv("OLLAMA_HOST")), &http.Client{Timeout: 300 * time.Second}), nil
}

// ollamaBaseURL normalizes host to the .../v1 base the client appends
// /chat/completions to.
func ollamaBaseURL(host string) string {
	if host == "" {
		host = defaultOllamaURL
	}
	host = strings.TrimRight(host, "/")
	host = strings.TrimSuffix(host, "/v1/chat/completions")
	host = strings.TrimSuffix(host, "/v1")
	return host + "/v1"
}
