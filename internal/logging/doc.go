// Package logging provides the structured logger used across cimedic.
//
// Logger wraps zap with context-aware methods: every entry carries the
// correlation fields found in the context (the run id set by [WithRunID]).
// Output goes to stderr so that stdout stays reserved for reports.
package logging
