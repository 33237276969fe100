package review

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/bkyoung/prwatch/internal/domain"
	"github.com/bkyoung/prwatch/internal/store"
)

var titleCaser = cases.Title(language.English)

// displayName returns the human-facing name of a rubric, preferring an
// explicit label over a title-cased machine name.
func displayName(name, label string) string {
	if label != "" {
		return label
	}
	return titleCaser.String(name)
}

// BuildSummary renders the review-level Markdown summary for one pass.
// The hidden marker at the end lets later cycles recognize the comment
// as the bot's own.
func BuildSummary(commitSHA string, outcomes []store.RubricOutcome, rubricLabels map[string]string, unplaced []PositionedFinding) string {
	var sections []string

	sections = append(sections, "## 🤖 Automated Review")

	total := 0
	failed := 0
	var lines []string
	for _, o := range outcomes {
		name := displayName(o.Rubric, rubricLabels[o.Rubric])
		switch {
		case o.Error != "":
			failed++
			lines = append(lines, fmt.Sprintf("- ❌ **%s** — did not complete: %s", name, o.Error))
		case o.FindingCount == 0:
			lines = append(lines, fmt.Sprintf("- ✅ **%s** — passed", name))
		default:
			total += o.FindingCount
			lines = append(lines, fmt.Sprintf("- ⚠️ **%s** — %s", name, countNoun(o.FindingCount, "finding")))
		}
	}
	sections = append(sections, strings.Join(lines, "\n"))

	switch {
	case total == 0 && failed == 0:
		sections = append(sections, "✅ **No issues found.**")
	case total > 0:
		sections = append(sections, fmt.Sprintf("📊 **%s** across %s.",
			countNoun(total, "finding"), countNoun(len(outcomes)-failed, "rubric")))
	}

	if len(unplaced) > 0 {
		var b strings.Builder
		b.WriteString("**Findings outside the diff:**\n\n")
		for _, pf := range unplaced {
			b.WriteString(fmt.Sprintf("- %s **%s** `%s` — %s\n",
				severityBadge(pf.Finding.Severity), pf.Finding.Severity,
				findingLocation(pf.Finding), pf.Finding.Message))
		}
		sections = append(sections, strings.TrimRight(b.String(), "\n"))
	}

	if commitSHA != "" {
		sections = append(sections, fmt.Sprintf("Reviewed commit `%s`.", shortSHA(commitSHA)))
	}

	return strings.Join(sections, "\n\n---\n\n") + "\n\n" + domain.BotMarker
}

// BuildFallbackComment flattens a whole pass into a single issue comment.
// Used when no finding resolved to a diff position, or when submitting
// the inline review was rejected.
func BuildFallbackComment(commitSHA string, findings []PositionedFinding) string {
	var b strings.Builder
	b.WriteString("## 🤖 Automated Review\n\n")
	b.WriteString(fmt.Sprintf("%s could not be attached inline, so everything is listed here.\n\n",
		countNoun(len(findings), "finding")))

	for _, pf := range findings {
		b.WriteString(fmt.Sprintf("- %s **%s** `%s` (%s) — %s\n",
			severityBadge(pf.Finding.Severity), pf.Finding.Severity,
			findingLocation(pf.Finding), pf.Label, pf.Finding.Message))
	}

	if commitSHA != "" {
		b.WriteString(fmt.Sprintf("\nReviewed commit `%s`.\n", shortSHA(commitSHA)))
	}

	b.WriteString("\n" + domain.BotMarker)
	return b.String()
}

func findingLocation(f domain.Finding) string {
	if f.Line > 0 {
		return fmt.Sprintf("%s:%d", f.File, f.Line)
	}
	return f.File
}

func countNoun(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func shortSHA(sha string) string {
	if len(sha) > 12 {
		return sha[:12]
	}
	return sha
}
