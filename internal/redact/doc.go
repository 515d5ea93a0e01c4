// Package redact prepares CI logs for upload to a model provider.
//
// [Secrets] replaces credential-shaped text with [REDACTED] using regex
// heuristics: API keys, JWTs, private keys, AWS access key IDs and secret
// access keys, bearer tokens, credentials embedded in URLs, and
// provider-specific tokens (Anthropic, OpenAI, Groq, GitHub, Slack).
//
// [Tail] keeps only the end of an oversized log, where test runners and
// interpreters print the failure.
package redact
