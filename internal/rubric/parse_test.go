package rubric_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkyoung/prwatch/internal/domain"
	"github.com/bkyoung/prwatch/internal/rubric"
)

func TestParseReport_RawJSON(t *testing.T) {
	report, err := rubric.ParseReport(`{
		"status": "issues",
		"summary": "two problems",
		"findings": [
			{"file": "x.go", "line": 12, "severity": "high", "message": "nil deref"},
			{"file": "x.go", "line": 0, "severity": "low", "message": "missing doc"}
		]
	}`)
	require.NoError(t, err)

	assert.Equal(t, domain.ReportStatusIssues, report.Status)
	assert.Equal(t, "two problems", report.Summary)
	require.Len(t, report.Findings, 2)
	assert.Equal(t, 12, report.Findings[0].Line)
	assert.Equal(t, 0, report.Findings[1].Line)
}

func TestParseReport_FencedJSON(t *testing.T) {
	text := "Here is my review:\n```json\n{\"status\": \"passed\", \"summary\": \"clean\", \"findings\": []}\n```"

	report, err := rubric.ParseReport(text)
	require.NoError(t, err)
	assert.Equal(t, domain.ReportStatusPassed, report.Status)
	assert.Empty(t, report.Findings)
}

func TestParseReport_NestedCodeFence(t *testing.T) {
	text := "```json\n{\"status\": \"issues\", \"summary\": \"s\", \"findings\": [{\"file\": \"a.go\", \"line\": 1, \"severity\": \"low\", \"message\": \"use:\\n```go\\nx := 1\\n```\"}]}\n```"

	report, err := rubric.ParseReport(text)
	require.NoError(t, err)
	require.Len(t, report.Findings, 1)
	assert.Contains(t, report.Findings[0].Message, "x := 1")
}

func TestParseReport_StatusDerivedWhenMissing(t *testing.T) {
	withFindings, err := rubric.ParseReport(`{"summary": "s", "findings": [{"file": "a.go", "line": 1, "message": "m"}]}`)
	require.NoError(t, err)
	assert.Equal(t, domain.ReportStatusIssues, withFindings.Status)
	assert.Equal(t, domain.SeverityInfo, withFindings.Findings[0].Severity, "missing severity defaults to info")

	clean, err := rubric.ParseReport(`{"summary": "s", "findings": []}`)
	require.NoError(t, err)
	assert.Equal(t, domain.ReportStatusPassed, clean.Status)
}

func TestParseReport_Errors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"whitespace only", "   \n  "},
		{"not json", "I could not review this."},
		{"unknown status", `{"status": "maybe", "findings": []}`},
		{"finding without file", `{"status": "issues", "findings": [{"line": 3, "message": "m"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rubric.ParseReport(tt.text)
			assert.Error(t, err)
		})
	}
}
