package diagnosis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		log  string
		want Diagnosis
	}{
		{
			name: "missing module single quotes",
			log:  "Traceback (most recent call last):\n  File \"manage.py\", line 3\nModuleNotFoundError: No module named 'oas'\n",
			want: Diagnosis{Kind: MissingModule, Primary: "oas", RawMatch: "No module named 'oas'"},
		},
		{
			name: "missing module double quotes",
			log:  `ImportError: No module named "requests"`,
			want: Diagnosis{Kind: MissingModule, Primary: "requests", RawMatch: `No module named "requests"`},
		},
		{
			name: "undefined identifier with suggestion",
			log:  "NameError: name 'load_dta' is not defined. Did you mean: 'load_data'?",
			want: Diagnosis{
				Kind:      UndefinedIdentifier,
				Primary:   "load_dta",
				Secondary: "load_data",
				RawMatch:  "NameError: name 'load_dta' is not defined. Did you mean: 'load_data'",
			},
		},
		{
			name: "command not found",
			log:  "npn: command not found",
			want: Diagnosis{Kind: CommandNotFound, Primary: "npn", RawMatch: "npn: command not found"},
		},
		{
			name: "command not found with shell prefix",
			log:  "/bin/bash: line 4: ./deploy.sh: command not found",
			want: Diagnosis{Kind: CommandNotFound, Primary: "./deploy.sh", RawMatch: "./deploy.sh: command not found"},
		},
		{
			name: "empty log",
			log:  "",
			want: Diagnosis{Kind: Unknown},
		},
		{
			name: "whitespace only log",
			log:  "  \n\t \n",
			want: Diagnosis{Kind: Unknown},
		},
		{
			name: "unrecognized failure",
			log:  "FAILED tests/test_api.py::test_get - AssertionError: 404 != 200",
			want: Diagnosis{Kind: Unknown},
		},
		{
			name: "matching is case sensitive",
			log:  "no module named 'oas'",
			want: Diagnosis{Kind: Unknown},
		},
		{
			name: "name error without suggestion is unknown",
			log:  "NameError: name 'foo' is not defined",
			want: Diagnosis{Kind: Unknown},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.log))
		})
	}
}

func TestClassify_UndefinedIdentifierBeatsMissingModule(t *testing.T) {
	log := "ModuleNotFoundError: No module named 'oas'\n" +
		"NameError: name 'load_dta' is not defined. Did you mean: 'load_data'?\n"

	d := Classify(log)
	assert.Equal(t, UndefinedIdentifier, d.Kind)
	assert.Equal(t, "load_dta", d.Primary)
	assert.Equal(t, "load_data", d.Secondary)
}

func TestClassify_FirstOccurrenceOnly(t *testing.T) {
	log := "No module named 'alpha'\nNo module named 'beta'\n"

	d := Classify(log)
	assert.Equal(t, MissingModule, d.Kind)
	assert.Equal(t, "alpha", d.Primary)
}

func TestClassify_MissingModuleBeatsCommandNotFound(t *testing.T) {
	log := "make: command not found\nNo module named 'yaml'\n"
	assert.Equal(t, MissingModule, Classify(log).Kind)
}

func TestPriority(t *testing.T) {
	assert.Equal(t, []Kind{UndefinedIdentifier, MissingModule, CommandNotFound, Unknown}, Priority())
}

func TestKind_Valid(t *testing.T) {
	for _, k := range Priority() {
		assert.True(t, k.Valid(), k)
	}
	assert.False(t, Kind("segfault").Valid())
}

func TestDiagnosis_String(t *testing.T) {
	assert.Equal(t, "unknown", Diagnosis{Kind: Unknown}.String())
	assert.Equal(t, "missing_module(oas)", Diagnosis{Kind: MissingModule, Primary: "oas"}.String())
	assert.Equal(t, "undefined_identifier(a -> b)",
		Diagnosis{Kind: UndefinedIdentifier, Primary: "a", Secondary: "b"}.String())
}
