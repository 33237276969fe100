package review

import (
	"github.com/bkyoung/prwatch/internal/domain"
	"github.com/bkyoung/prwatch/internal/store"
)

// PRState is the review lifecycle state of a pull request, derived from
// the state store rather than held in memory. Unseen means no review pass
// has ever completed; Reviewing is the transient in-pass state; Reviewed
// means a durable record exists for some commit of the PR.
type PRState int

const (
	StateUnseen PRState = iota
	StateReviewing
	StateReviewed
)

func (s PRState) String() string {
	switch s {
	case StateUnseen:
		return "unseen"
	case StateReviewing:
		return "reviewing"
	case StateReviewed:
		return "reviewed"
	}
	return "unknown"
}

// Trigger classifies why a pull request needs a review pass.
type Trigger int

const (
	// TriggerNone means the PR is up to date and no pass is needed.
	TriggerNone Trigger = iota

	// TriggerInitial fires for a PR with no review record at all.
	TriggerInitial

	// TriggerNewCommits fires when the PR head moved past the recorded commit.
	TriggerNewCommits

	// TriggerLabel fires when the re-review label is present on the PR.
	TriggerLabel
)

func (t Trigger) String() string {
	switch t {
	case TriggerInitial:
		return "initial"
	case TriggerNewCommits:
		return "new-commits"
	case TriggerLabel:
		return "label"
	}
	return "none"
}

// decide inspects the durable record for a pull request and returns its
// current state plus the trigger, if any, that warrants a new pass.
// The label trigger is checked before the commit comparison so that an
// explicit human request wins even when the head is unchanged.
func decide(pr domain.PullRequest, record store.ReviewRecord, exists bool, reReviewLabel string) (PRState, Trigger) {
	if !exists {
		return StateUnseen, TriggerInitial
	}
	if reReviewLabel != "" && pr.HasLabel(reReviewLabel) {
		return StateReviewed, TriggerLabel
	}
	if pr.HeadSHA != "" && pr.HeadSHA != record.CommitSHA {
		return StateReviewed, TriggerNewCommits
	}
	return StateReviewed, TriggerNone
}
