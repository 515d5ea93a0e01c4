// Package advisory asks a chain of language models for a diagnosis of a CI
// failure no strategy recognized. Models are tried in order; the first
// non-empty answer wins.
package advisory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/cimedic/internal/cache"
	"github.com/dshills/cimedic/internal/logging"
	"github.com/dshills/cimedic/internal/providers"
	"github.com/dshills/cimedic/internal/redact"
)

// ErrNoModels is returned when the model chain is empty.
var ErrNoModels = errors.New("advisory model chain is empty")

// ErrEmptyLog is returned when there is no log text to diagnose.
var ErrEmptyLog = errors.New("no CI log to diagnose")

// Attempt outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeCached  = "cached"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
)

// Attempt is one try of one model.
type Attempt struct {
	Model   providers.ModelSpec
	Outcome string
	Err     error
	Elapsed time.Duration
}

// ExhaustedError reports that every model in the chain failed.
type ExhaustedError struct {
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Model, a.Err))
	}
	return fmt.Sprintf("all %d advisory model(s) failed: %s", len(e.Attempts), strings.Join(parts, "; "))
}

// Unwrap returns the error of the last attempt.
func (e *ExhaustedError) Unwrap() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Err
}

// Advice is a model's diagnosis.
type Advice struct {
	Model    providers.ModelSpec `json:"model"`
	Text     string              `json:"text"`
	Cached   bool                `json:"cached,omitempty"`
	Attempts []Attempt           `json:"-"`
}

// Recorder receives one call per attempt.
type Recorder interface {
	RecordAdvisoryAttempt(provider, outcome string)
}

// Options configures an Advisor.
type Options struct {
	// Timeout bounds each attempt. Zero leaves only the caller's deadline.
	Timeout time.Duration
	// MaxLogBytes keeps only the tail of the log. Zero sends it whole.
	MaxLogBytes int
	// RedactSecrets scrubs credentials from the log before upload.
	RedactSecrets bool
	// MaxTokens caps the answer length. Zero means 1024.
	MaxTokens int
	Cache     *cache.Cache
	Logger    *logging.Logger
	Recorder  Recorder
	// Factory creates backends. Nil means providers.New.
	Factory providers.Factory
}

// Advisor runs the model chain.
type Advisor struct {
	opts Options
}

// New returns an Advisor.
func New(opts Options) *Advisor {
	if opts.Factory == nil {
		opts.Factory = providers.New
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1024
	}
	return &Advisor{opts: opts}
}

// Diagnose asks each model of chain in order and returns the first non-empty
// answer. Creation errors, API errors, empty answers and timeouts all count
// as a failed attempt. When every model fails the error is an
// *ExhaustedError.
func (a *Advisor) Diagnose(ctx context.Context, log string, chain []providers.ModelSpec) (Advice, error) {
	if len(chain) == 0 {
		return Advice{}, ErrNoModels
	}
	prepared := a.prepare(log)
	if strings.TrimSpace(prepared) == "" {
		return Advice{}, ErrEmptyLog
	}

	logger := a.opts.Logger
	var attempts []Attempt
	for _, spec := range chain {
		if err := ctx.Err(); err != nil {
			attempts = append(attempts, Attempt{Model: spec, Outcome: OutcomeError, Err: err})
			break
		}

		key := cache.Key{Purpose: cache.PurposeAdvice, Provider: spec.Provider, Model: spec.Model, Input: prepared}
		if text, ok := a.cached(key); ok {
			attempts = append(attempts, Attempt{Model: spec, Outcome: OutcomeCached})
			a.record(spec, OutcomeCached)
			logger.Debug(ctx, "advisory cache hit", zap.String("model", spec.String()))
			return Advice{Model: spec, Text: text, Cached: true, Attempts: attempts}, nil
		}

		start := time.Now()
		text, err := a.attempt(ctx, spec, prepared)
		att := Attempt{Model: spec, Err: err, Elapsed: time.Since(start), Outcome: OutcomeSuccess}
		if err != nil {
			att.Outcome = OutcomeError
			if errors.Is(err, context.DeadlineExceeded) {
				att.Outcome = OutcomeTimeout
			}
		}
		attempts = append(attempts, att)
		a.record(spec, att.Outcome)

		if err != nil {
			logger.Warn(ctx, "advisory model failed",
				zap.String("model", spec.String()),
				zap.String("outcome", att.Outcome),
				zap.Error(err),
			)
			continue
		}
		if a.opts.Cache != nil {
			if err := a.opts.Cache.Put(key, text); err != nil {
				logger.Warn(ctx, "caching advisory answer failed", zap.Error(err))
			}
		}
		logger.Info(ctx, "advisory answer received",
			zap.String("model", spec.String()),
			zap.Duration("elapsed", att.Elapsed),
		)
		return Advice{Model: spec, Text: text, Attempts: attempts}, nil
	}
	return Advice{}, &ExhaustedError{Attempts: attempts}
}

func (a *Advisor) prepare(log string) string {
	if a.opts.RedactSecrets {
		log = redact.Secrets(log)
	}
	return redact.Tail(log, a.opts.MaxLogBytes)
}

func (a *Advisor) attempt(ctx context.Context, spec providers.ModelSpec, log string) (string, error) {
	backend, err := a.opts.Factory(spec.Provider, spec.Model)
	if err != nil {
		return "", fmt.Errorf("creating provider: %w", err)
	}
	if a.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.Timeout)
		defer cancel()
	}
	resp, err := backend.Complete(ctx, providers.Request{
		SystemPrompt: systemPrompt,
		UserPrompt:   buildPrompt(log),
		MaxTokens:    a.opts.MaxTokens,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			return "", fmt.Errorf("%w: %w", ctxErr, err)
		}
		return "", err
	}
	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return "", errors.New("empty answer")
	}
	return text, nil
}

func (a *Advisor) cached(key cache.Key) (string, bool) {
	if a.opts.Cache == nil {
		return "", false
	}
	return a.opts.Cache.Get(key)
}

func (a *Advisor) record(spec providers.ModelSpec, outcome string) {
	if a.opts.Recorder != nil {
		a.opts.Recorder.RecordAdvisoryAttempt(spec.Provider, outcome)
	}
}
