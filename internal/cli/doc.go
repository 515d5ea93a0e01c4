// Package cli wires together the Cobra command tree for the cimedic binary.
//
// It defines the root command and all subcommands (fix, classify, advise,
// config, models, cache, history, version), binds flags, reads
// configuration, runs the remediation engine and returns deterministic exit
// codes for CI gating.
package cli
