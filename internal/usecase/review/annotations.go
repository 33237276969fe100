package review

import (
	"fmt"

	"github.com/bkyoung/prwatch/internal/adapter/github"
	"github.com/bkyoung/prwatch/internal/domain"
)

// PositionedFinding pairs a rubric finding with the diff position it
// resolved to. Position is nil when the finding could not be placed
// anywhere in the diff.
type PositionedFinding struct {
	Finding  domain.Finding
	Rubric   string
	Label    string
	Position *int
}

// severityEmoji maps finding severities to the badge shown in annotations.
var severityEmoji = map[string]string{
	domain.SeverityCritical: "🔴",
	domain.SeverityHigh:     "🟠",
	domain.SeverityMedium:   "🟡",
	domain.SeverityLow:      "🟢",
	domain.SeverityInfo:     "⚪",
}

func severityBadge(severity string) string {
	if emoji, ok := severityEmoji[severity]; ok {
		return emoji
	}
	return "⚪"
}

// formatFinding renders one finding as Markdown for an inline annotation.
func formatFinding(pf PositionedFinding) string {
	return fmt.Sprintf("%s **%s** · %s\n\n%s",
		severityBadge(pf.Finding.Severity), pf.Finding.Severity, pf.Label, pf.Finding.Message)
}

// GroupAnnotations collapses positioned findings into review comments,
// one per (file, position) pair. Findings that land on the same position,
// including findings from different rubrics, are joined into a single
// comment body in their original order. Unplaced findings are skipped.
func GroupAnnotations(findings []PositionedFinding) []github.ReviewComment {
	type slot struct {
		file     string
		position int
	}

	index := make(map[slot]int)
	var comments []github.ReviewComment

	for _, pf := range findings {
		if pf.Position == nil {
			continue
		}
		k := slot{file: pf.Finding.File, position: *pf.Position}
		body := formatFinding(pf)
		if i, ok := index[k]; ok {
			comments[i].Body += "\n\n---\n\n" + body
			continue
		}
		index[k] = len(comments)
		comments = append(comments, github.ReviewComment{
			Path:     pf.Finding.File,
			Position: *pf.Position,
			Body:     body,
		})
	}

	return comments
}
