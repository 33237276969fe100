// Package review implements the review cycle: deciding which open pull
// requests need a pass, running each configured rubric agent against the
// diff, and publishing the results as a single inline review.
package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bkyoung/prwatch/internal/adapter/github"
	"github.com/bkyoung/prwatch/internal/adapter/httpx"
	"github.com/bkyoung/prwatch/internal/diff"
	"github.com/bkyoung/prwatch/internal/domain"
	"github.com/bkyoung/prwatch/internal/rubric"
	"github.com/bkyoung/prwatch/internal/store"
)

// Platform is the hosting-platform surface the review cycle needs.
// *github.Client satisfies it.
type Platform interface {
	ListOpenPullRequests(ctx context.Context, owner, repo string) ([]domain.PullRequest, error)
	GetPullRequestDiff(ctx context.Context, owner, repo string, number int) (string, error)
	GetPullRequestHeadSHA(ctx context.Context, owner, repo string, number int) (string, error)
	CreateReview(ctx context.Context, input github.CreateReviewInput) (*github.CreateReviewResponse, error)
	CreateIssueComment(ctx context.Context, owner, repo string, number int, body string) error
	AddLabels(ctx context.Context, owner, repo string, number int, labels []string) error
	RemoveLabel(ctx context.Context, owner, repo string, number int, label string) error
}

// AgentRunner executes one rubric prompt and returns the agent's raw output.
type AgentRunner interface {
	Run(ctx context.Context, prompt, workdir string) (string, error)
}

// Notifier delivers out-of-band notifications about completed passes.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Redactor scrubs secrets from diff text before it reaches the agent.
type Redactor interface {
	Redact(input string) (string, error)
}

// Config carries the collaborators and tuning for a Controller.
type Config struct {
	Platform Platform
	Agent    AgentRunner
	Rubrics  []rubric.Rubric
	State    store.StateStore
	History  store.HistoryStore // optional
	Notifier Notifier           // optional
	Redactor Redactor           // optional
	Logger   Logger             // optional

	ReReviewLabel string
	ReviewedLabel string
	RubricDelay   time.Duration
}

// Controller drives review passes over the configured repositories. It is
// not safe for concurrent use; the scheduler runs cycles one at a time.
type Controller struct {
	platform Platform
	agent    AgentRunner
	rubrics  []rubric.Rubric
	state    store.StateStore
	history  store.HistoryStore
	notifier Notifier
	redactor Redactor
	logger   Logger

	reReviewLabel string
	reviewedLabel string
	rubricDelay   time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

// NewController builds a Controller from a Config.
func NewController(cfg Config) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = nopLogger{}
	}
	return &Controller{
		platform:      cfg.Platform,
		agent:         cfg.Agent,
		rubrics:       cfg.Rubrics,
		state:         cfg.State,
		history:       cfg.History,
		notifier:      cfg.Notifier,
		redactor:      cfg.Redactor,
		logger:        logger,
		reReviewLabel: cfg.ReReviewLabel,
		reviewedLabel: cfg.ReviewedLabel,
		rubricDelay:   cfg.RubricDelay,
		now:           time.Now,
		sleep:         sleepCtx,
	}
}

// RunCycle performs one review cycle over the given "owner/name"
// repositories. Per-PR failures are logged and skipped so a single bad
// pull request cannot stall the rest of the cycle. The first error is
// returned for visibility after the cycle completes.
func (c *Controller) RunCycle(ctx context.Context, repos []string) error {
	var firstErr error

	for _, full := range repos {
		if err := ctx.Err(); err != nil {
			return err
		}

		owner, name, err := splitRepo(full)
		if err != nil {
			c.logger.LogWarning(ctx, "Skipping malformed repository name", map[string]interface{}{
				"repo": full,
			})
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		prs, err := c.platform.ListOpenPullRequests(ctx, owner, name)
		if err != nil {
			c.logger.LogWarning(ctx, "Failed to list open pull requests", map[string]interface{}{
				"repo":  full,
				"error": err.Error(),
			})
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		for _, pr := range prs {
			if err := ctx.Err(); err != nil {
				return err
			}

			key := store.Key{Repo: pr.FullName(), Number: pr.Number}
			record, exists := c.state.Get(key)
			state, trigger := decide(pr, record, exists, c.reReviewLabel)
			if trigger == TriggerNone {
				continue
			}

			c.logger.LogInfo(ctx, "Starting review pass", map[string]interface{}{
				"pr":      key.String(),
				"state":   state.String(),
				"trigger": trigger.String(),
			})

			if err := c.reviewPR(ctx, pr); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				c.logger.LogWarning(ctx, "Review pass aborted", map[string]interface{}{
					"pr":    key.String(),
					"error": err.Error(),
				})
				if firstErr == nil {
					firstErr = err
				}
			}
		}
	}

	return firstErr
}

// reviewPR runs a full review pass for one pull request. Fetch failures
// abort before any state is written, so the PR is naturally retried on
// the next cycle.
func (c *Controller) reviewPR(ctx context.Context, pr domain.PullRequest) error {
	diffText, err := c.platform.GetPullRequestDiff(ctx, pr.Owner, pr.Repo, pr.Number)
	if err != nil {
		return fmt.Errorf("fetch diff: %w", err)
	}

	commitSHA, err := c.platform.GetPullRequestHeadSHA(ctx, pr.Owner, pr.Repo, pr.Number)
	if err != nil {
		return fmt.Errorf("fetch head commit: %w", err)
	}

	coords := diff.Parse(diffText)

	// Positions are computed from the raw diff; the agent only ever sees
	// the redacted text. Placeholders replace secrets in place, so line
	// numbering is identical in both.
	promptDiff := diffText
	if c.redactor != nil {
		redacted, err := c.redactor.Redact(diffText)
		if err != nil {
			// Never ship an unscrubbed diff to the agent.
			return fmt.Errorf("redact diff: %w", err)
		}
		promptDiff = redacted
	}

	outcomes, positioned := c.runRubrics(ctx, pr, promptDiff, coords)
	if err := ctx.Err(); err != nil {
		return err
	}

	c.publish(ctx, pr, commitSHA, outcomes, positioned)

	passAt := c.now()
	key := store.Key{Repo: pr.FullName(), Number: pr.Number}

	// Re-read so the processed-comment ledger written by the comment
	// cycle since our earlier Get is preserved.
	record, _ := c.state.Get(key)
	record.ReviewedAt = passAt
	record.LastPRUpdate = pr.UpdatedAt
	record.CommitSHA = commitSHA
	record.Reviews = outcomes

	if err := c.state.Set(key, record); err != nil {
		c.logger.LogWarning(ctx, "Failed to persist review record", map[string]interface{}{
			"pr":    key.String(),
			"error": err.Error(),
		})
	}

	c.archivePass(ctx, pr, commitSHA, passAt, outcomes, positioned)
	c.updateLabels(ctx, pr)
	c.notify(ctx, pr, outcomes, positioned)

	return nil
}

// runRubrics invokes every configured rubric sequentially. A rubric that
// fails to run or returns unparseable output is recorded as failed and
// never stops the remaining rubrics.
func (c *Controller) runRubrics(ctx context.Context, pr domain.PullRequest, diffText string, coords diff.CoordinateMap) ([]store.RubricOutcome, []PositionedFinding) {
	outcomes := make([]store.RubricOutcome, 0, len(c.rubrics))
	var positioned []PositionedFinding

	for i, rb := range c.rubrics {
		if ctx.Err() != nil {
			break
		}
		if i > 0 && c.rubricDelay > 0 {
			c.sleep(ctx, c.rubricDelay)
		}

		raw, err := c.agent.Run(ctx, rb.Render(pr.Title, diffText), "")
		if err != nil {
			c.logger.LogWarning(ctx, "Rubric agent failed", map[string]interface{}{
				"pr":     fmt.Sprintf("%s#%d", pr.FullName(), pr.Number),
				"rubric": rb.Name,
				"error":  err.Error(),
			})
			outcomes = append(outcomes, store.RubricOutcome{
				Rubric: rb.Name,
				Status: domain.ReportStatusFailed,
				Error:  err.Error(),
			})
			continue
		}

		report, err := rubric.ParseReport(raw)
		if err != nil {
			c.logger.LogWarning(ctx, "Rubric output unparseable", map[string]interface{}{
				"rubric": rb.Name,
				"error":  err.Error(),
				"output": httpx.TruncateForLogging(raw),
			})
			outcomes = append(outcomes, store.RubricOutcome{
				Rubric: rb.Name,
				Status: domain.ReportStatusFailed,
				Error:  err.Error(),
			})
			continue
		}

		for _, f := range report.Findings {
			positioned = append(positioned, PositionedFinding{
				Finding:  f,
				Rubric:   rb.Name,
				Label:    rb.Label,
				Position: diff.Resolve(coords, f.File, f.Line),
			})
		}
		outcomes = append(outcomes, store.RubricOutcome{
			Rubric:       rb.Name,
			Status:       report.Status,
			FindingCount: len(report.Findings),
		})
	}

	return outcomes, positioned
}

// publish posts the pass results to the pull request. Inline annotations
// are preferred; when nothing can be anchored, or the platform rejects the
// review (typically stale positions), everything falls back to a single
// flattened issue comment. Publication failures are logged, not fatal:
// the pass still counts as done.
func (c *Controller) publish(ctx context.Context, pr domain.PullRequest, commitSHA string, outcomes []store.RubricOutcome, positioned []PositionedFinding) {
	annotations := GroupAnnotations(positioned)
	unplaced := unplacedFindings(positioned)

	labels := make(map[string]string, len(c.rubrics))
	for _, rb := range c.rubrics {
		labels[rb.Name] = rb.Label
	}
	summary := BuildSummary(commitSHA, outcomes, labels, unplaced)

	if len(annotations) == 0 {
		var body string
		if len(positioned) == 0 {
			body = summary
		} else {
			body = BuildFallbackComment(commitSHA, positioned)
		}
		if err := c.platform.CreateIssueComment(ctx, pr.Owner, pr.Repo, pr.Number, body); err != nil {
			c.logger.LogWarning(ctx, "Failed to post review comment", map[string]interface{}{
				"pr":    fmt.Sprintf("%s#%d", pr.FullName(), pr.Number),
				"error": err.Error(),
			})
		}
		return
	}

	_, err := c.platform.CreateReview(ctx, github.CreateReviewInput{
		Owner:      pr.Owner,
		Repo:       pr.Repo,
		PullNumber: pr.Number,
		CommitSHA:  commitSHA,
		Event:      github.EventComment,
		Summary:    summary,
		Comments:   annotations,
	})
	if err == nil {
		return
	}

	c.logger.LogWarning(ctx, "Inline review rejected, falling back to flattened comment", map[string]interface{}{
		"pr":         fmt.Sprintf("%s#%d", pr.FullName(), pr.Number),
		"error":      err.Error(),
		"validation": isValidationError(err),
	})

	fallback := BuildFallbackComment(commitSHA, positioned)
	if err := c.platform.CreateIssueComment(ctx, pr.Owner, pr.Repo, pr.Number, fallback); err != nil {
		c.logger.LogWarning(ctx, "Failed to post fallback comment", map[string]interface{}{
			"pr":    fmt.Sprintf("%s#%d", pr.FullName(), pr.Number),
			"error": err.Error(),
		})
	}
}

func (c *Controller) archivePass(ctx context.Context, pr domain.PullRequest, commitSHA string, passAt time.Time, outcomes []store.RubricOutcome, positioned []PositionedFinding) {
	if c.history == nil {
		return
	}

	passID := store.GeneratePassID(passAt, pr.FullName(), pr.Number)
	findings := make([]store.ArchivedFinding, 0, len(positioned))
	for _, pf := range positioned {
		findings = append(findings, store.ArchivedFinding{
			PassID:   passID,
			Rubric:   pf.Rubric,
			File:     pf.Finding.File,
			Line:     pf.Finding.Line,
			Severity: pf.Finding.Severity,
			Message:  pf.Finding.Message,
		})
	}

	pass := store.Pass{
		PassID:       passID,
		Repo:         pr.FullName(),
		Number:       pr.Number,
		CommitSHA:    commitSHA,
		StartedAt:    passAt,
		Rubrics:      outcomes,
		FindingCount: len(positioned),
	}
	if err := c.history.RecordPass(ctx, pass, findings); err != nil {
		c.logger.LogWarning(ctx, "Failed to archive review pass", map[string]interface{}{
			"passId": passID,
			"error":  err.Error(),
		})
	}
}

func (c *Controller) updateLabels(ctx context.Context, pr domain.PullRequest) {
	if c.reviewedLabel != "" && !pr.HasLabel(c.reviewedLabel) {
		if err := c.platform.AddLabels(ctx, pr.Owner, pr.Repo, pr.Number, []string{c.reviewedLabel}); err != nil {
			c.logger.LogWarning(ctx, "Failed to add reviewed label", map[string]interface{}{
				"pr":    fmt.Sprintf("%s#%d", pr.FullName(), pr.Number),
				"error": err.Error(),
			})
		}
	}
	if c.reReviewLabel != "" && pr.HasLabel(c.reReviewLabel) {
		if err := c.platform.RemoveLabel(ctx, pr.Owner, pr.Repo, pr.Number, c.reReviewLabel); err != nil {
			c.logger.LogWarning(ctx, "Failed to remove re-review label", map[string]interface{}{
				"pr":    fmt.Sprintf("%s#%d", pr.FullName(), pr.Number),
				"error": err.Error(),
			})
		}
	}
}

func (c *Controller) notify(ctx context.Context, pr domain.PullRequest, outcomes []store.RubricOutcome, positioned []PositionedFinding) {
	if c.notifier == nil {
		return
	}

	failed := 0
	for _, o := range outcomes {
		if o.Error != "" {
			failed++
		}
	}
	if len(positioned) == 0 && failed == 0 {
		return
	}

	msg := fmt.Sprintf("Reviewed %s#%d: %s", pr.FullName(), pr.Number, countNoun(len(positioned), "finding"))
	if failed > 0 {
		msg += fmt.Sprintf(", %s failed", countNoun(failed, "rubric"))
	}
	if err := c.notifier.Notify(ctx, msg); err != nil {
		c.logger.LogWarning(ctx, "Notification failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func unplacedFindings(positioned []PositionedFinding) []PositionedFinding {
	var out []PositionedFinding
	for _, pf := range positioned {
		if pf.Position == nil {
			out = append(out, pf)
		}
	}
	return out
}

func isValidationError(err error) bool {
	var httpErr *httpx.Error
	return errors.As(err, &httpErr) && httpErr.Type == httpx.ErrTypeValidation
}

func splitRepo(full string) (owner, name string, err error) {
	parts := strings.SplitN(full, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("repository %q is not in owner/name form", full)
	}
	return parts[0], parts[1], nil
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
