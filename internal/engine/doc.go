// Package engine runs one remediation: it classifies a CI log, dispatches
// the diagnosis to a strategy, validates the resulting plan and applies it
// to a working tree.
//
// A run moves through the states start, classified, dispatched, one terminal
// state (applied, no_match, skipped or failed) and done. Every new file
// content is computed before the first write, so a failure while planning or
// reading never leaves a half-patched tree.
package engine
