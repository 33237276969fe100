package domain

import (
	"fmt"
	"time"
)

// BotMarker is embedded (as an invisible HTML comment) in every body the
// bot posts, so later cycles can recognize the bot's own output.
const BotMarker = "<!-- PRWATCH_REVIEW_V1 -->"

const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
	SeverityInfo     = "info"
)

// PullRequest is the subset of hosting-platform PR metadata the controllers need.
type PullRequest struct {
	Owner     string
	Repo      string
	Number    int
	Title     string
	Author    string
	HeadSHA   string
	UpdatedAt time.Time
	Labels    []string
}

// FullName returns the "owner/repo" form used as the repository identity.
func (pr PullRequest) FullName() string {
	return fmt.Sprintf("%s/%s", pr.Owner, pr.Repo)
}

// HasLabel reports whether the PR currently carries the given label.
func (pr PullRequest) HasLabel(name string) bool {
	for _, l := range pr.Labels {
		if l == name {
			return true
		}
	}
	return false
}

// Finding represents a single issue reported by a rubric agent.
// Line is the post-change source line number; 0 means the finding applies
// to the file as a whole rather than a specific line.
type Finding struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// Report is the parsed output of one rubric agent invocation.
type Report struct {
	Status   string    `json:"status"`
	Summary  string    `json:"summary"`
	Findings []Finding `json:"findings"`
}

const (
	ReportStatusPassed = "passed"
	ReportStatusIssues = "issues"
	ReportStatusFailed = "failed"
)

// Comment is a human-authored PR comment, either a general issue comment
// or a diff-anchored review comment.
type Comment struct {
	ID        int64
	Author    string
	Body      string
	CreatedAt time.Time

	// Set only for diff-anchored review comments.
	Path     string
	Position int
	DiffHunk string
}

// Anchored reports whether the comment is attached to a diff location.
func (c Comment) Anchored() bool {
	return c.Path != ""
}
