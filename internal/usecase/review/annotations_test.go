package review

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkyoung/prwatch/internal/diff"
	"github.com/bkyoung/prwatch/internal/domain"
)

func positioned(file string, line int, pos *int, rubricName, severity, msg string) PositionedFinding {
	return PositionedFinding{
		Finding:  domain.Finding{File: file, Line: line, Severity: severity, Message: msg},
		Rubric:   rubricName,
		Label:    titleCaser.String(rubricName),
		Position: pos,
	}
}

func TestGroupAnnotations_OnePerPosition(t *testing.T) {
	findings := []PositionedFinding{
		positioned("a.go", 10, diff.IntPtr(3), "correctness", domain.SeverityHigh, "off by one"),
		positioned("a.go", 20, diff.IntPtr(8), "correctness", domain.SeverityLow, "rename this"),
		positioned("b.go", 5, diff.IntPtr(3), "security", domain.SeverityCritical, "injection"),
	}

	comments := GroupAnnotations(findings)
	require.Len(t, comments, 3)
	assert.Equal(t, "a.go", comments[0].Path)
	assert.Equal(t, 3, comments[0].Position)
	assert.Equal(t, "b.go", comments[2].Path)
	assert.Equal(t, 3, comments[2].Position)
}

func TestGroupAnnotations_SamePositionMergedAcrossRubrics(t *testing.T) {
	findings := []PositionedFinding{
		positioned("a.go", 10, diff.IntPtr(3), "correctness", domain.SeverityHigh, "off by one"),
		positioned("a.go", 10, diff.IntPtr(3), "security", domain.SeverityCritical, "injection"),
	}

	comments := GroupAnnotations(findings)
	require.Len(t, comments, 1)
	assert.Contains(t, comments[0].Body, "off by one")
	assert.Contains(t, comments[0].Body, "injection")
	assert.Contains(t, comments[0].Body, "Correctness")
	assert.Contains(t, comments[0].Body, "Security")
	// Original ordering survives the merge.
	assert.Less(t,
		strings.Index(comments[0].Body, "off by one"),
		strings.Index(comments[0].Body, "injection"))
}

func TestGroupAnnotations_UnplacedSkipped(t *testing.T) {
	findings := []PositionedFinding{
		positioned("a.go", 10, nil, "correctness", domain.SeverityHigh, "off by one"),
		positioned("b.go", 5, diff.IntPtr(2), "correctness", domain.SeverityLow, "nit"),
	}

	comments := GroupAnnotations(findings)
	require.Len(t, comments, 1)
	assert.Equal(t, "b.go", comments[0].Path)
}

func TestGroupAnnotations_Empty(t *testing.T) {
	assert.Empty(t, GroupAnnotations(nil))
}

func TestFormatFinding_SeverityBadges(t *testing.T) {
	tests := []struct {
		severity string
		badge    string
	}{
		{domain.SeverityCritical, "🔴"},
		{domain.SeverityHigh, "🟠"},
		{domain.SeverityMedium, "🟡"},
		{domain.SeverityLow, "🟢"},
		{domain.SeverityInfo, "⚪"},
		{"bogus", "⚪"},
	}

	for _, tt := range tests {
		t.Run(tt.severity, func(t *testing.T) {
			body := formatFinding(positioned("a.go", 1, diff.IntPtr(1), "style", tt.severity, "msg"))
			assert.Contains(t, body, tt.badge)
		})
	}
}
