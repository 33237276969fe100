package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Key identifies a pull request in the state store.
type Key struct {
	Repo   string // "owner/name"
	Number int
}

// String renders the key in its on-disk "owner/name#number" form.
func (k Key) String() string {
	return fmt.Sprintf("%s#%d", k.Repo, k.Number)
}

// ParseKey parses the "owner/name#number" form back into a Key.
func ParseKey(s string) (Key, error) {
	idx := strings.LastIndex(s, "#")
	if idx < 0 {
		return Key{}, fmt.Errorf("malformed state key %q", s)
	}
	number, err := strconv.Atoi(s[idx+1:])
	if err != nil {
		return Key{}, fmt.Errorf("malformed state key %q: %w", s, err)
	}
	return Key{Repo: s[:idx], Number: number}, nil
}

// RubricOutcome records how a single rubric fared in a review pass.
type RubricOutcome struct {
	Rubric       string `json:"rubric"`
	Status       string `json:"status"`
	FindingCount int    `json:"findingCount"`
	Error        string `json:"error,omitempty"`
}

// ReviewRecord is the durable per-pull-request review state.
// A record exists if and only if at least one review pass has completed
// for the PR (possibly with per-rubric errors).
type ReviewRecord struct {
	ReviewedAt          time.Time       `json:"reviewedAt"`
	LastPRUpdate        time.Time       `json:"lastPRUpdate"`
	CommitSHA           string          `json:"commitSha"`
	Reviews             []RubricOutcome `json:"reviews"`
	ProcessedCommentIDs []int64         `json:"processedCommentIds"`
}

// HasProcessed reports whether a comment id is already in the ledger.
func (r ReviewRecord) HasProcessed(id int64) bool {
	for _, seen := range r.ProcessedCommentIDs {
		if seen == id {
			return true
		}
	}
	return false
}

// MarkProcessed appends a comment id to the ledger. The ledger is
// append-only: marking an already-present id is a no-op.
func (r *ReviewRecord) MarkProcessed(id int64) {
	if r.HasProcessed(id) {
		return
	}
	r.ProcessedCommentIDs = append(r.ProcessedCommentIDs, id)
}

// StateStore is the durable review-state persistence port. Implementations
// are single-writer: the cooperative scheduler guarantees no two controllers
// touch the store concurrently, so no internal locking is required beyond
// atomic-write durability.
type StateStore interface {
	// Get returns a copy of the record for the key, if one exists.
	Get(key Key) (ReviewRecord, bool)

	// Set replaces the record for the key and durably persists the store
	// before returning.
	Set(key Key, record ReviewRecord) error

	// Keys lists every tracked pull request, in stable order.
	Keys() []Key

	// Sweep removes records whose ReviewedAt predates the retention window
	// and returns how many were removed.
	Sweep(retention time.Duration) (int, error)
}

// Pass is one archived review pass, kept for audit and debugging.
type Pass struct {
	PassID       string
	Repo         string
	Number       int
	CommitSHA    string
	StartedAt    time.Time
	Rubrics      []RubricOutcome
	FindingCount int
}

// ArchivedFinding is a finding as recorded in the history archive.
type ArchivedFinding struct {
	PassID   string
	Rubric   string
	File     string
	Line     int
	Severity string
	Message  string
}

// HistoryStore archives completed review passes. It is append-only and
// strictly supplemental: review correctness never depends on it.
type HistoryStore interface {
	RecordPass(ctx context.Context, pass Pass, findings []ArchivedFinding) error
	ListPasses(ctx context.Context, limit int) ([]Pass, error)
	Close() error
}
