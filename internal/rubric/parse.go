package rubric

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/bkyoung/prwatch/internal/domain"
)

var (
	// Match from the first code fence to the LAST closing fence (greedy),
	// so example code blocks nested inside finding messages don't truncate
	// the extraction.
	jsonBlockRegex = regexp.MustCompile("(?s)```(?:json)?\\s*([\\s\\S]*)```")
)

// ExtractJSON extracts JSON from a markdown code block. Agents are
// instructed to return raw JSON, but they routinely wrap it in fences;
// when no fence is present the trimmed input is returned as-is.
func ExtractJSON(text string) string {
	matches := jsonBlockRegex.FindStringSubmatch(text)
	if len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}
	return strings.TrimSpace(text)
}

// ParseReport parses agent output into a structured report. Handles both
// fenced and raw JSON. A parse failure is a per-rubric error for the caller
// to record, never fatal to the pass.
func ParseReport(text string) (domain.Report, error) {
	jsonText := ExtractJSON(text)
	if jsonText == "" {
		return domain.Report{}, fmt.Errorf("agent returned empty output")
	}

	var report domain.Report
	if err := json.Unmarshal([]byte(jsonText), &report); err != nil {
		return domain.Report{}, fmt.Errorf("failed to parse agent report: %w", err)
	}

	switch report.Status {
	case domain.ReportStatusPassed, domain.ReportStatusIssues:
	case "":
		// Tolerate a missing status field: derive it from the findings.
		if len(report.Findings) > 0 {
			report.Status = domain.ReportStatusIssues
		} else {
			report.Status = domain.ReportStatusPassed
		}
	default:
		return domain.Report{}, fmt.Errorf("agent report has unknown status %q", report.Status)
	}

	for i, f := range report.Findings {
		if f.File == "" {
			return domain.Report{}, fmt.Errorf("finding %d has no file", i)
		}
		if f.Severity == "" {
			report.Findings[i].Severity = domain.SeverityInfo
		}
	}

	return report, nil
}
