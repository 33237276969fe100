// Package comments implements the comment cycle: picking up new
// human-authored pull-request comments, classifying each as a command or
// a free-form remark, dispatching it, and recording it as processed so it
// is never handled twice.
package comments

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bkyoung/prwatch/internal/adapter/httpx"
	"github.com/bkyoung/prwatch/internal/domain"
	"github.com/bkyoung/prwatch/internal/store"
)

// Platform is the hosting-platform surface the comment cycle needs.
// *github.Client satisfies it.
type Platform interface {
	ListIssueComments(ctx context.Context, owner, repo string, number int) ([]domain.Comment, error)
	ListReviewComments(ctx context.Context, owner, repo string, number int) ([]domain.Comment, error)
	GetPullRequestHeadSHA(ctx context.Context, owner, repo string, number int) (string, error)
	CreateIssueComment(ctx context.Context, owner, repo string, number int, body string) error
	ReplyToReviewComment(ctx context.Context, owner, repo string, number int, commentID int64, body string) error
	AddLabels(ctx context.Context, owner, repo string, number int, labels []string) error
}

// AgentRunner executes one prompt and returns the agent's raw output.
type AgentRunner interface {
	Run(ctx context.Context, prompt, workdir string) (string, error)
}

// Workspace provides a checked-out working tree for fix commands.
// May be left nil when no workspace directory is configured.
type Workspace interface {
	Enabled() bool
	CheckoutPR(ctx context.Context, owner, repo string, number int, headSHA string) (string, error)
}

// Logger is the structured logging interface used by the comment cycle.
type Logger interface {
	LogInfo(ctx context.Context, message string, fields map[string]interface{})
	LogWarning(ctx context.Context, message string, fields map[string]interface{})
	LogError(ctx context.Context, message string, fields map[string]interface{})
}

type nopLogger struct{}

func (nopLogger) LogInfo(context.Context, string, map[string]interface{})    {}
func (nopLogger) LogWarning(context.Context, string, map[string]interface{}) {}
func (nopLogger) LogError(context.Context, string, map[string]interface{})   {}

// Config carries the collaborators and tuning for a Controller.
type Config struct {
	Platform  Platform
	Agent     AgentRunner
	Workspace Workspace // optional
	State     store.StateStore
	Logger    Logger // optional

	BotLogin      string
	ReReviewLabel string
	CommentDelay  time.Duration
}

// Controller drives comment passes over every tracked pull request. It is
// not safe for concurrent use; the scheduler runs cycles one at a time.
type Controller struct {
	platform  Platform
	agent     AgentRunner
	workspace Workspace
	state     store.StateStore
	logger    Logger

	botLogin      string
	reReviewLabel string
	commentDelay  time.Duration

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
		workspace:     cfg.Workspace,
		state:         cfg.State,
		logger:        logger,
		botLogin:      cfg.BotLogin,
		reReviewLabel: cfg.ReReviewLabel,
		commentDelay:  cfg.CommentDelay,
		sleep:         sleepCtx,
	}
}

// RunCycle performs one comment cycle over every pull request with a
// review record. Only PRs that have been reviewed at least once are
// watched for follow-up comments.
func (c *Controller) RunCycle(ctx context.Context) error {
	for _, key := range c.state.Keys() {
		if err := ctx.Err(); err != nil {
			return err
		}

		record, ok := c.state.Get(key)
		if !ok {
			continue
		}

		owner, name, err := splitRepo(key.Repo)
		if err != nil {
			c.logger.LogWarning(ctx, "Skipping record with malformed repository key", map[string]interface{}{
				"key": key.String(),
			})
			continue
		}

		pending, err := c.pendingComments(ctx, owner, name, key.Number, record)
		if err != nil {
			c.logger.LogWarning(ctx, "Failed to list comments", map[string]interface{}{
				"pr":    key.String(),
				"error": err.Error(),
			})
			continue
		}

		for i, cm := range pending {
			if err := ctx.Err(); err != nil {
				return err
			}
			if i > 0 && c.commentDelay > 0 {
				c.sleep(ctx, c.commentDelay)
			}

			c.handle(ctx, owner, name, key.Number, cm)

			// Persist immediately after each comment. A handler failure
			// still marks the comment processed so a persistently failing
			// command does not retry every cycle.
			record.MarkProcessed(cm.ID)
			if err := c.state.Set(key, record); err != nil {
				c.logger.LogWarning(ctx, "Failed to persist comment ledger", map[string]interface{}{
					"pr":    key.String(),
					"error": err.Error(),
				})
			}
		}
	}

	return nil
}

// pendingComments merges issue and review comments, drops the bot's own
// output and anything already processed, and returns the remainder in
// creation-time order.
func (c *Controller) pendingComments(ctx context.Context, owner, repo string, number int, record store.ReviewRecord) ([]domain.Comment, error) {
	issue, err := c.platform.ListIssueComments(ctx, owner, repo, number)
	if err != nil {
		return nil, err
	}
	review, err := c.platform.ListReviewComments(ctx, owner, repo, number)
	if err != nil {
		return nil, err
	}

	merged := make([]domain.Comment, 0, len(issue)+len(review))
	for _, cm := range append(issue, review...) {
		if c.isOwn(cm) || record.HasProcessed(cm.ID) {
			continue
		}
		merged = append(merged, cm)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if !merged[i].CreatedAt.Equal(merged[j].CreatedAt) {
			return merged[i].CreatedAt.Before(merged[j].CreatedAt)
		}
		return merged[i].ID < merged[j].ID
	})

	return merged, nil
}

// isOwn reports whether a comment was produced by this system, either by
// marker or by author identity.
func (c *Controller) isOwn(cm domain.Comment) bool {
	if strings.Contains(cm.Body, domain.BotMarker) {
		return true
	}
	return c.botLogin != "" && cm.Author == c.botLogin
}

// handle dispatches one comment. Failures are logged and reported back on
// the thread where possible; the caller marks the comment processed either
// way.
func (c *Controller) handle(ctx context.Context, owner, repo string, number int, cm domain.Comment) {
	command, target := Classify(cm.Body)

	c.logger.LogInfo(ctx, "Processing comment", map[string]interface{}{
		"pr":      fmt.Sprintf("%s/%s#%d", owner, repo, number),
		"comment": cm.ID,
		"command": command.String(),
	})

	switch command {
	case CommandReReview:
		c.handleReReview(ctx, owner, repo, number, cm)
	case CommandFixAll:
		c.handleFix(ctx, owner, repo, number, cm, "")
	case CommandFixOne:
		c.handleFix(ctx, owner, repo, number, cm, target)
	default:
		c.handleRemark(ctx, owner, repo, number, cm)
	}
}

func (c *Controller) handleReReview(ctx context.Context, owner, repo string, number int, cm domain.Comment) {
	if err := c.platform.AddLabels(ctx, owner, repo, number, []string{c.reReviewLabel}); err != nil {
		c.logger.LogWarning(ctx, "Failed to queue re-review", map[string]interface{}{
			"pr":    fmt.Sprintf("%s/%s#%d", owner, repo, number),
			"error": err.Error(),
		})
		c.reply(ctx, owner, repo, number, cm, "⚠️ Could not queue a re-review, will be picked up next cycle if the label is applied manually.")
		return
	}
	c.reply(ctx, owner, repo, number, cm, "🔁 Re-review queued. A fresh pass will run on the next cycle.")
}

func (c *Controller) handleFix(ctx context.Context, owner, repo string, number int, cm domain.Comment, target string) {
	if c.workspace == nil || !c.workspace.Enabled() {
		c.reply(ctx, owner, repo, number, cm, "⚠️ Automated fixes are not enabled on this instance (no workspace directory configured).")
		return
	}

	headSHA, err := c.platform.GetPullRequestHeadSHA(ctx, owner, repo, number)
	if err != nil {
		c.failFix(ctx, owner, repo, number, cm, fmt.Errorf("fetch head commit: %w", err))
		return
	}

	dir, err := c.workspace.CheckoutPR(ctx, owner, repo, number, headSHA)
	if err != nil {
		c.failFix(ctx, owner, repo, number, cm, fmt.Errorf("checkout: %w", err))
		return
	}

	output, err := c.agent.Run(ctx, fixPrompt(target, cm), dir)
	if err != nil {
		c.failFix(ctx, owner, repo, number, cm, fmt.Errorf("agent: %w", err))
		return
	}

	c.reply(ctx, owner, repo, number, cm, "🛠️ Fix attempt finished.\n\n"+strings.TrimSpace(output))
}

func (c *Controller) failFix(ctx context.Context, owner, repo string, number int, cm domain.Comment, err error) {
	c.logger.LogWarning(ctx, "Fix command failed", map[string]interface{}{
		"pr":      fmt.Sprintf("%s/%s#%d", owner, repo, number),
		"comment": cm.ID,
		"error":   err.Error(),
	})
	c.reply(ctx, owner, repo, number, cm,
		fmt.Sprintf("⚠️ The fix attempt failed: %s\n\nRe-issue the command to try again.", httpx.TruncateForLogging(err.Error())))
}

func (c *Controller) handleRemark(ctx context.Context, owner, repo string, number int, cm domain.Comment) {
	output, err := c.agent.Run(ctx, remarkPrompt(cm), "")
	if err != nil {
		c.logger.LogWarning(ctx, "Contextual response failed", map[string]interface{}{
			"pr":      fmt.Sprintf("%s/%s#%d", owner, repo, number),
			"comment": cm.ID,
			"error":   err.Error(),
		})
		return
	}
	c.reply(ctx, owner, repo, number, cm, strings.TrimSpace(output))
}

// reply posts a response, threaded under the original comment when it was
// diff-anchored. Every reply carries the marker so later cycles skip it.
func (c *Controller) reply(ctx context.Context, owner, repo string, number int, cm domain.Comment, body string) {
	full := body + "\n\n" + domain.BotMarker

	var err error
	if cm.Anchored() {
		err = c.platform.ReplyToReviewComment(ctx, owner, repo, number, cm.ID, full)
	} else {
		err = c.platform.CreateIssueComment(ctx, owner, repo, number, full)
	}
	if err != nil {
		c.logger.LogWarning(ctx, "Failed to post reply", map[string]interface{}{
			"pr":      fmt.Sprintf("%s/%s#%d", owner, repo, number),
			"comment": cm.ID,
			"error":   err.Error(),
		})
	}
}

func fixPrompt(target string, cm domain.Comment) string {
	var b strings.Builder
	if target != "" {
		fmt.Fprintf(&b, "Fix the issue at %s in this repository checkout.\n", target)
	} else {
		b.WriteString("Fix the outstanding review findings in this repository checkout.\n")
	}
	if cm.Anchored() {
		fmt.Fprintf(&b, "\nThe request was made on %s at diff position %d:\n\n%s\n", cm.Path, cm.Position, cm.DiffHunk)
	}
	b.WriteString("\nApply the changes directly to the working tree and summarize what you changed.")
	return b.String()
}

func remarkPrompt(cm domain.Comment) string {
	var b strings.Builder
	b.WriteString("You are a code review assistant. A developer left the following comment on a pull request; respond helpfully and concisely in Markdown.\n\n")
	fmt.Fprintf(&b, "Comment by %s:\n%s\n", cm.Author, cm.Body)
	if cm.Anchored() {
		fmt.Fprintf(&b, "\nThe comment is attached to %s at diff position %d, on this hunk:\n\n%s\n", cm.Path, cm.Position, cm.DiffHunk)
	}
	return b.String()
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
