package strategy

import (
	"fmt"
	"strings"
)

const planSystemPrompt = `You are a senior CI/CD auto-fix agent.

Analyze the CI failure log you are given and respond ONLY with valid JSON.

Rules:
- No explanations outside JSON
- The JSON object must contain an array called "fixes"
- Each fix must specify:
  - file (path relative to the repository root)
  - action (remove_line | add_line | replace_line | replace_content | add_dependency)
  - match (text to find; required for remove_line, replace_line and replace_content)
  - value (text to add or replace with)
  - reason (one sentence)
- remove_line removes lines exactly equal to match
- replace_line replaces every line containing match with value; value must be a single line
- add_dependency always targets the dependency manifest; file is ignored
- If no safe fix exists, respond with {"fixes": []}

Example response:
{
  "fixes": [
    {
      "file": "manage.py",
      "action": "remove_line",
      "match": "import oas",
      "value": "",
      "reason": "Module does not exist"
    }
  ]
}`

// buildPlanPrompt renders the user prompt for a fix plan.
func buildPlanPrompt(log string, files []string) string {
	var b strings.Builder
	if len(files) > 0 {
		b.WriteString("Repository source files:\n")
		for _, f := range files {
			fmt.Fprintf(&b, "- %s\n", f)
		}
		b.WriteString("\n")
	}
	b.WriteString("--- BEGIN CI LOG ---\n")
	b.WriteString(log)
	b.WriteString("\n--- END CI LOG ---\n")
	return b.String()
}

func buildRepairPrompt(err error, previous string) string {
	return fmt.Sprintf(
		"Your previous response was not valid JSON. The error was: %s\n\nPlease fix it and respond with ONLY a valid JSON object with a \"fixes\" array.\n\nYour previous response was:\n%s",
		err.Error(), previous,
	)
}

// stripFences removes a surrounding markdown code fence.
func stripFences(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	lines := strings.Split(content, "\n")
	if len(lines) < 2 {
		return content
	}
	end := len(lines)
	if strings.TrimSpace(lines[end-1]) == "```" {
		end--
	}
	return strings.Join(lines[1:end], "\n")
}
