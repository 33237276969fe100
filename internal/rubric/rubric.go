// Package rubric defines the evaluation rubrics applied to a change set and
// the parsing of rubric agent output into structured reports.
package rubric

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rubric is one named evaluation criterion with its prompt template.
// The template may reference {{title}} and {{diff}}; the rendered prompt
// always ends with the output-format contract the parser expects.
type Rubric struct {
	Name   string `yaml:"name"`
	Label  string `yaml:"label"`
	Prompt string `yaml:"prompt"`
}

// rubricsFile is the on-disk shape of a rubric definitions file.
type rubricsFile struct {
	Rubrics []Rubric `yaml:"rubrics"`
}

// LoadFile reads rubric definitions from a YAML file. Rubrics run in file
// order, which fixes the deterministic invocation order for every review
// pass.
func LoadFile(path string) ([]Rubric, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rubrics file: %w", err)
	}

	var parsed rubricsFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse rubrics file %s: %w", path, err)
	}

	if len(parsed.Rubrics) == 0 {
		return nil, fmt.Errorf("rubrics file %s defines no rubrics", path)
	}

	seen := map[string]bool{}
	for i, r := range parsed.Rubrics {
		if r.Name == "" {
			return nil, fmt.Errorf("rubric %d in %s has no name", i, path)
		}
		if seen[r.Name] {
			return nil, fmt.Errorf("duplicate rubric name %q in %s", r.Name, path)
		}
		seen[r.Name] = true
	}

	return parsed.Rubrics, nil
}

// Defaults returns the built-in rubric set used when no rubrics file is
// configured.
func Defaults() []Rubric {
	return []Rubric{
		{
			Name:   "correctness",
			Label:  "Correctness",
			Prompt: "Review the following pull request diff for logic errors, broken edge cases, and incorrect behavior.\n\nTitle: {{title}}\n\n{{diff}}",
		},
		{
			Name:   "security",
			Label:  "Security",
			Prompt: "Review the following pull request diff for security vulnerabilities, injection risks, and unsafe handling of untrusted input.\n\nTitle: {{title}}\n\n{{diff}}",
		},
		{
			Name:   "maintainability",
			Label:  "Maintainability",
			Prompt: "Review the following pull request diff for readability problems, missing tests, and maintainability hazards.\n\nTitle: {{title}}\n\n{{diff}}",
		},
	}
}

// outputContract tells the agent how to shape its answer so ParseReport can
// read it back.
const outputContract = `

Respond with a single JSON object:
{
  "status": "passed" | "issues",
  "summary": "<one-paragraph assessment>",
  "findings": [
    {"file": "<path as it appears in the diff>", "line": <post-change line number, 0 for file-level>, "severity": "critical|high|medium|low|info", "message": "<what and why>"}
  ]
}
Return an empty findings array when the rubric passes.`

// Render produces the full agent prompt for a rubric against one diff.
func (r Rubric) Render(title, diffText string) string {
	prompt := strings.ReplaceAll(r.Prompt, "{{title}}", title)
	prompt = strings.ReplaceAll(prompt, "{{diff}}", diffText)
	return prompt + outputContract
}
