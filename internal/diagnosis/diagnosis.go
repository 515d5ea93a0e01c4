package diagnosis

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind identifies the category of a CI failure.
type Kind string

const (
	MissingModule       Kind = "missing_module"
	UndefinedIdentifier Kind = "undefined_identifier"
	CommandNotFound     Kind = "command_not_found"
	Unknown             Kind = "unknown"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case MissingModule, UndefinedIdentifier, CommandNotFound, Unknown:
		return true
	default:
		return false
	}
}

// Diagnosis is the structured classification of one CI log.
type Diagnosis struct {
	Kind      Kind   `json:"kind"`
	Primary   string `json:"primary,omitempty"`
	Secondary string `json:"secondary,omitempty"`
	RawMatch  string `json:"rawMatch,omitempty"`
}

// Recognized reports whether the diagnosis matched a known signature.
func (d Diagnosis) Recognized() bool {
	return d.Kind != Unknown && d.Kind != ""
}

func (d Diagnosis) String() string {
	switch {
	case !d.Recognized():
		return string(Unknown)
	case d.Secondary != "":
		return fmt.Sprintf("%s(%s -> %s)", d.Kind, d.Primary, d.Secondary)
	default:
		return fmt.Sprintf("%s(%s)", d.Kind, d.Primary)
	}
}

type signature struct {
	kind    Kind
	pattern *regexp.Regexp
}

// signatures are checked in this order. An undefined-identifier message can
// co-occur with an import failure in the same log, so it is tried first.
var signatures = []signature{
	{
		kind:    UndefinedIdentifier,
		pattern: regexp.MustCompile(`NameError: name ['"]([^'"\s]+)['"] is not defined\. Did you mean: ['"]([^'"\s]+)['"]`),
	},
	{
		kind:    MissingModule,
		pattern: regexp.MustCompile(`No module named ['"]([^'"\s]+)['"]`),
	},
	{
		kind:    CommandNotFound,
		pattern: regexp.MustCompile(`([^\s:'"]+): command not found`),
	},
}

// Priority returns the order in which kinds are matched, ending with Unknown.
func Priority() []Kind {
	kinds := make([]Kind, 0, len(signatures)+1)
	for _, s := range signatures {
		kinds = append(kinds, s.kind)
	}
	return append(kinds, Unknown)
}

// Classify scans log for the first recognized failure signature.
func Classify(log string) Diagnosis {
	if strings.TrimSpace(log) == "" {
		return Diagnosis{Kind: Unknown}
	}
	for _, s := range signatures {
		m := s.pattern.FindStringSubmatch(log)
		if m == nil {
			continue
		}
		d := Diagnosis{Kind: s.kind, Primary: m[1], RawMatch: m[0]}
		if len(m) > 2 {
			d.Secondary = m[2]
		}
		return d
	}
	return Diagnosis{Kind: Unknown}
}
