// Package providers implements the Backend interface for each supported model
// provider.
//
// Supported providers: Anthropic (Claude), OpenAI, Groq, Google (Gemini), and
// Ollama / LMStudio for local models. OpenAI-compatible endpoints share one
// implementation built on github.com/sashabaranov/go-openai; Anthropic and
// Gemini speak their own JSON protocols over net/http.
//
// All backends share a common retry helper with exponential back-off on rate
// limits and 5xx responses, never retry authentication failures, and gate
// each attempt through a token-bucket limiter.
//
// Use [New] to obtain a Backend by provider name and model string, and
// [ParseModelSpec] to parse "provider:model" chain entries.
package providers
