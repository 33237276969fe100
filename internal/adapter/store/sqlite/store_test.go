package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkyoung/prwatch/internal/adapter/store/sqlite"
	"github.com/bkyoung/prwatch/internal/store"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordPassAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	started := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	pass := store.Pass{
		PassID:       "pass-20260829T100000Z-abc123",
		Repo:         "acme/widgets",
		Number:       7,
		CommitSHA:    "deadbeef",
		StartedAt:    started,
		FindingCount: 2,
		Rubrics: []store.RubricOutcome{
			{Rubric: "correctness", Status: "issues", FindingCount: 2},
			{Rubric: "security", Status: "failed", Error: "agent timed out"},
		},
	}
	findings := []store.ArchivedFinding{
		{PassID: pass.PassID, Rubric: "correctness", File: "x.go", Line: 12, Severity: "high", Message: "nil deref"},
		{PassID: pass.PassID, Rubric: "correctness", File: "x.go", Line: 0, Severity: "low", Message: "missing doc"},
	}

	require.NoError(t, s.RecordPass(ctx, pass, findings))

	passes, err := s.ListPasses(ctx, 10)
	require.NoError(t, err)
	require.Len(t, passes, 1)

	got := passes[0]
	assert.Equal(t, pass.PassID, got.PassID)
	assert.Equal(t, "acme/widgets", got.Repo)
	assert.Equal(t, started, got.StartedAt)
	assert.Equal(t, 2, got.FindingCount)

	require.Len(t, got.Rubrics, 2)
	assert.Equal(t, "correctness", got.Rubrics[0].Rubric)
	assert.Equal(t, "agent timed out", got.Rubrics[1].Error)
}

func TestListPasses_NewestFirstAndLimited(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		pass := store.Pass{
			PassID:    store.GeneratePassID(base.Add(time.Duration(i)*time.Hour), "acme/widgets", i),
			Repo:      "acme/widgets",
			Number:    i,
			CommitSHA: "sha",
			StartedAt: base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, s.RecordPass(ctx, pass, nil))
	}

	passes, err := s.ListPasses(ctx, 2)
	require.NoError(t, err)
	require.Len(t, passes, 2)
	assert.Equal(t, 2, passes[0].Number, "newest pass first")
	assert.Equal(t, 1, passes[1].Number)
}

func TestRecordPass_DuplicateIDFails(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	pass := store.Pass{PassID: "pass-x", Repo: "a/b", Number: 1, CommitSHA: "s", StartedAt: time.Now()}
	require.NoError(t, s.RecordPass(ctx, pass, nil))
	assert.Error(t, s.RecordPass(ctx, pass, nil))
}
