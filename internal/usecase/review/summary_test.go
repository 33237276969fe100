package review

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bkyoung/prwatch/internal/domain"
	"github.com/bkyoung/prwatch/internal/store"
)

func TestBuildSummary_CleanPass(t *testing.T) {
	outcomes := []store.RubricOutcome{
		{Rubric: "correctness", Status: domain.ReportStatusPassed},
		{Rubric: "security", Status: domain.ReportStatusPassed},
	}
	labels := map[string]string{"correctness": "Correctness", "security": "Security"}

	body := BuildSummary("abc123def456789", outcomes, labels, nil)

	assert.Contains(t, body, "✅ **Correctness** — passed")
	assert.Contains(t, body, "✅ **Security** — passed")
	assert.Contains(t, body, "No issues found")
	assert.Contains(t, body, "`abc123def456`")
	assert.Contains(t, body, domain.BotMarker)
}

func TestBuildSummary_WithFindingsAndFailure(t *testing.T) {
	outcomes := []store.RubricOutcome{
		{Rubric: "correctness", Status: domain.ReportStatusIssues, FindingCount: 2},
		{Rubric: "security", Status: domain.ReportStatusFailed, Error: "agent timed out"},
	}

	body := BuildSummary("abc", outcomes, nil, nil)

	assert.Contains(t, body, "⚠️ **Correctness** — 2 findings")
	assert.Contains(t, body, "❌ **Security** — did not complete: agent timed out")
	assert.Contains(t, body, "2 findings across 1 rubric")
	assert.NotContains(t, body, "No issues found")
}

func TestBuildSummary_TitleCasesUnlabeledRubric(t *testing.T) {
	outcomes := []store.RubricOutcome{
		{Rubric: "maintainability", Status: domain.ReportStatusPassed},
	}

	body := BuildSummary("abc", outcomes, nil, nil)
	assert.Contains(t, body, "**Maintainability**")
}

func TestBuildSummary_UnplacedFindingsListed(t *testing.T) {
	outcomes := []store.RubricOutcome{
		{Rubric: "correctness", Status: domain.ReportStatusIssues, FindingCount: 1},
	}
	unplaced := []PositionedFinding{
		{
			Finding: domain.Finding{File: "legacy.go", Line: 30, Severity: domain.SeverityMedium, Message: "not in the diff"},
			Rubric:  "correctness",
			Label:   "Correctness",
		},
	}

	body := BuildSummary("abc", outcomes, nil, unplaced)
	assert.Contains(t, body, "Findings outside the diff")
	assert.Contains(t, body, "`legacy.go:30`")
	assert.Contains(t, body, "not in the diff")
}

func TestBuildFallbackComment(t *testing.T) {
	findings := []PositionedFinding{
		positioned("a.go", 10, nil, "correctness", domain.SeverityHigh, "off by one"),
		{
			Finding: domain.Finding{File: "b.go", Severity: domain.SeverityInfo, Message: "file level note"},
			Rubric:  "style", Label: "Style",
		},
	}

	body := BuildFallbackComment("abcdef1234567890", findings)

	assert.Contains(t, body, "2 findings")
	assert.Contains(t, body, "`a.go:10`")
	assert.Contains(t, body, "`b.go`") // file-level finding has no line suffix
	assert.Contains(t, body, "`abcdef123456`")
	assert.Contains(t, body, domain.BotMarker)
}

func TestCountNoun(t *testing.T) {
	assert.Equal(t, "1 finding", countNoun(1, "finding"))
	assert.Equal(t, "0 findings", countNoun(0, "finding"))
	assert.Equal(t, "3 rubrics", countNoun(3, "rubric"))
}
