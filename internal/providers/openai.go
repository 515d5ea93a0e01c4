package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const defaultGroqURL = "https://api.groq.com/openai/v1"

// OpenAI implements Backend for OpenAI and every endpoint that speaks the
// OpenAI chat completions protocol (Groq, Ollama, LM Studio).
type OpenAI struct {
	name    string
	model   string
	client  *openai.Client
	limiter *rate.Limiter
}

// NewOpenAI creates a backend for api.openai.com, or CIMEDIC_OPENAI_BASE_URL
// when set.
func NewOpenAI(model string) (*OpenAI, error) {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return nil, &authError{message: "OPENAI_API_KEY environment variable is not set"}
	}
	return newOpenAICompatible("openai", model, key, os.Getenv("CIMEDIC_OPENAI_BASE_URL"), &http.Client{Timeout: 120 * time.Second}), nil
}

// NewGroq creates a backend for Groq's OpenAI-compatible endpoint. The key is
// read from GROQ_API_KEY, falling back to LLM_API_KEY.
func NewGroq(model string) (*OpenAI, error) {
	key := os.Getenv("GROQ_API_KEY")
	if key == "" {
		key = os.Getenv("LLM_API_KEY")
	}
	if key == "" {
		return nil, &authError{message: "GROQ_API_KEY (or LLM_API_KEY) environment variable is not set"}
	}
	baseURL := os.Getenv("CIMEDIC_GROQ_BASE_URL")
	if baseURL == "" {
		baseURL = defaultGroqURL
	}
	return newOpenAICompatible("groq", model, key, baseURL, &http.Client{Timeout: 120 * time.Second}), nil
}

func newOpenAICompatible(name, model, apiKey, baseURL string, httpClient *http.Client) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return &OpenAI{
		name:    name,
		model:   model,
		client:  openai.NewClientWithConfig(cfg),
		limiter: newLimiter(),
	}
}

func (o *OpenAI) Name() string { return o.name }

func (o *OpenAI) Complete(ctx context.Context, req Request) (Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	var messages []openai.ChatCompletionMessage
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.UserPrompt})

	body := openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: messages,
	}
	// api.openai.com rejects max_tokens for reasoning models.
	if o.name == "openai" {
		body.MaxCompletionTokens = maxTokens
	} else {
		body.MaxTokens = maxTokens
	}
	if req.Temperature > 0 {
		body.Temperature = float32(req.Temperature)
	}

	var resp Response
	err := retryWithBackoff(ctx, o.limiter, defaultMaxRetries, func() error {
		result, err := o.client.CreateChatCompletion(ctx, body)
		if err != nil {
			return mapOpenAIError(err)
		}
		if len(result.Choices) == 0 {
			return fmt.Errorf("no choices in response")
		}
		if result.Choices[0].Message.Content == "" {
			return fmt.Errorf("empty text content in API response")
		}
		resp = Response{
			Content:    result.Choices[0].Message.Content,
			TokensUsed: result.Usage.TotalTokens,
		}
		return nil
	})

	return resp, err
}

// mapOpenAIError converts client errors carrying an HTTP status into the
// retry error taxonomy.
func mapOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		if mapped := classifyStatus(apiErr.HTTPStatusCode, apiErr.Message); mapped != nil {
			return mapped
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		if mapped := classifyStatus(reqErr.HTTPStatusCode, reqErr.Error()); mapped != nil {
			return mapped
		}
	}
	return fmt.Errorf("sending request: %w", err)
}
