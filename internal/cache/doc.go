// Package cache provides a file-based cache for model backend answers.
//
// Entries are keyed by a SHA-256 hash of a [Key]: the purpose of the call
// (advisory diagnosis or fix plan), the provider, the model and the redacted
// log sent. Each entry stores the raw answer with a creation timestamp.
// Entries older than the TTL are skipped on read and dropped by [Cache.Prune].
//
// The default directory is $XDG_CACHE_HOME/cimedic (or the OS-appropriate
// equivalent). Only redacted input ever reaches the key material.
package cache
