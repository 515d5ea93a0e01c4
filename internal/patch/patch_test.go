package patch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply(t *testing.T) {
	tests := []struct {
		name    string
		edit    FileEdit
		content string
		want    string
	}{
		{
			name:    "remove exact line",
			edit:    FileEdit{Path: "app.py", Operation: RemoveLine, Match: "import oas"},
			content: "import os\nimport oas\nprint(os.getcwd())\n",
			want:    "import os\nprint(os.getcwd())\n",
		},
		{
			name:    "remove ignores partial lines",
			edit:    FileEdit{Path: "app.py", Operation: RemoveLine, Match: "import oas"},
			content: "import oasis\n# import oas later\n",
			want:    "import oasis\n# import oas later\n",
		},
		{
			name:    "remove every occurrence",
			edit:    FileEdit{Path: "app.py", Operation: RemoveLine, Match: "import oas"},
			content: "import oas\nx = 1\nimport oas",
			want:    "x = 1",
		},
		{
			name:    "remove crlf line",
			edit:    FileEdit{Path: "app.py", Operation: RemoveLine, Match: "import oas"},
			content: "import oas\r\nx = 1\r\n",
			want:    "x = 1\r\n",
		},
		{
			name:    "replace line containing match",
			edit:    FileEdit{Path: "ci.yml", Operation: ReplaceLine, Match: "python-version", Value: "    python-version: '3.12'"},
			content: "steps:\n    python-version: '3.8'\n",
			want:    "steps:\n    python-version: '3.12'\n",
		},
		{
			name:    "append line",
			edit:    FileEdit{Path: "requirements.txt", Operation: AppendDependency, Value: "requests"},
			content: "flask\n",
			want:    "flask\nrequests\n",
		},
		{
			name:    "append line without trailing newline",
			edit:    FileEdit{Path: "requirements.txt", Operation: AppendDependency, Value: "requests"},
			content: "flask",
			want:    "flask\nrequests\n",
		},
		{
			name:    "append to empty file",
			edit:    FileEdit{Path: ".gitignore", Operation: AppendLine, Value: "dist/"},
			content: "",
			want:    "dist/\n",
		},
		{
			name:    "append existing line is a no-op",
			edit:    FileEdit{Path: "requirements.txt", Operation: AppendDependency, Value: "requests"},
			content: "requests\nflask",
			want:    "requests\nflask",
		},
		{
			name:    "replace content everywhere",
			edit:    FileEdit{Path: "main.py", Operation: ReplaceContent, Match: "load_dta", Value: "load_data"},
			content: "def load_data():\n    pass\n\nrows = load_dta()\nmore = load_dta()\n",
			want:    "def load_data():\n    pass\n\nrows = load_data()\nmore = load_data()\n",
		},
		{
			name:    "no match returns input",
			edit:    FileEdit{Path: "main.py", Operation: ReplaceContent, Match: "nothing", Value: "else"},
			content: "print('hi')\n",
			want:    "print('hi')\n",
		},
		{
			name:    "unknown operation",
			edit:    FileEdit{Path: "main.py", Operation: "chmod", Value: "+x"},
			content: "x",
			want:    "x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Apply(tt.edit, tt.content))
		})
	}
}

func TestApply_Idempotent(t *testing.T) {
	edits := []FileEdit{
		{Path: "a.py", Operation: RemoveLine, Match: "import oas"},
		{Path: "a.py", Operation: ReplaceLine, Match: "oas", Value: "import oasis"},
		{Path: "a.py", Operation: AppendLine, Value: "done = True"},
		{Path: "a.py", Operation: AppendDependency, Value: "oas"},
		{Path: "a.py", Operation: ReplaceContent, Match: "load_dta", Value: "load_data"},
		// value contains match
		{Path: "a.py", Operation: ReplaceContent, Match: "log", Value: "logger"},
		{Path: "a.py", Operation: ReplaceContent, Match: "x", Value: "xx"},
		// replacement creates a new match
		{Path: "a.py", Operation: ReplaceContent, Match: "lenn", Value: "len"},
		{Path: "a.py", Operation: ReplaceContent, Match: "ab", Value: "a"},
	}
	contents := []string{
		"",
		"\n",
		"import oas\nload_dta()\nlog.info(x)\n",
		"import oas\r\nfrom oas import thing\r\nlogger = log",
		"xx x xxx",
		"x = lennn(y)\n",
		"abb abbbb",
	}

	for _, e := range edits {
		for _, c := range contents {
			once := Apply(e, c)
			assert.Equal(t, once, Apply(e, once), "edit %s on %q", e, c)
		}
	}
}

func TestApply_ValueContainsMatch(t *testing.T) {
	e := FileEdit{Path: "a.py", Operation: ReplaceContent, Match: "log", Value: "logger"}
	got := Apply(e, "log = 1\nlogger = 2\n")
	assert.Equal(t, "logger = 1\nlogger = 2\n", got)
}

func TestApply_ReplacementCreatesMatch(t *testing.T) {
	tests := []struct {
		match, value, content, want string
	}{
		{"lenn", "len", "x = lennn(y)\n", "x = len(y)\n"},
		{"ab", "a", "abb", "a"},
		{"load_dta", "load_data", "load_dta()", "load_data()"},
	}
	for _, tt := range tests {
		e := FileEdit{Path: "a.py", Operation: ReplaceContent, Match: tt.match, Value: tt.value}
		assert.Equal(t, tt.want, Apply(e, tt.content), "%s on %q", e, tt.content)
	}
}

func TestApplyAll(t *testing.T) {
	edits := []FileEdit{
		{Path: "a.py", Operation: RemoveLine, Match: "import oas"},
		{Path: "a.py", Operation: ReplaceContent, Match: "load_dta", Value: "load_data"},
	}
	got := ApplyAll(edits, "import oas\nload_dta()\n")
	assert.Equal(t, "load_data()\n", got)
	assert.Equal(t, "x\n", ApplyAll(nil, "x\n"))
}

func TestFileEdit_Validate(t *testing.T) {
	valid := []FileEdit{
		{Path: "a.py", Operation: RemoveLine, Match: "import oas"},
		{Path: "a.py", Operation: ReplaceLine, Match: "x", Value: ""},
		{Path: "requirements.txt", Operation: AppendDependency, Value: "requests"},
		{Path: "pkg/b.py", Operation: AppendLine, Value: "x = 1"},
		{Path: "./a.py", Operation: ReplaceContent, Match: "a", Value: "b"},
	}
	for _, e := range valid {
		assert.NoError(t, e.Validate(), e)
	}

	invalid := []FileEdit{
		{Path: "", Operation: RemoveLine, Match: "x"},
		{Path: "a.py", Operation: RemoveLine},
		{Path: "a.py", Operation: ReplaceContent, Value: "b"},
		{Path: "a.py", Operation: AppendLine},
		{Path: "requirements.txt", Operation: AppendDependency},
		{Path: "requirements.txt", Operation: AppendDependency, Value: "a\nb"},
		{Path: "a.py", Operation: ReplaceLine, Match: "x", Value: "x = 1\nx = 2"},
		{Path: "../etc/passwd", Operation: AppendLine, Value: "x"},
		{Path: "/etc/passwd", Operation: AppendLine, Value: "x"},
		{Path: "a/../../b", Operation: AppendLine, Value: "x"},
		{Path: "a.py", Operation: "rename", Value: "b"},
	}
	for _, e := range invalid {
		err := e.Validate()
		require.Error(t, err, e)
		assert.True(t, errors.Is(err, ErrInvalidEdit))
	}
}

func TestOperation_Valid(t *testing.T) {
	for _, op := range []Operation{RemoveLine, ReplaceLine, AppendLine, ReplaceContent, AppendDependency} {
		assert.True(t, op.Valid(), op)
	}
	assert.False(t, Operation("delete_file").Valid())
}
