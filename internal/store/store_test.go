package store_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkyoung/prwatch/internal/store"
)

func TestKeyRoundTrip(t *testing.T) {
	key := store.Key{Repo: "acme/widgets", Number: 42}

	parsed, err := store.ParseKey(key.String())
	require.NoError(t, err)
	assert.Equal(t, key, parsed)
}

func TestParseKey_Malformed(t *testing.T) {
	tests := []string{"", "acme/widgets", "acme/widgets#", "acme/widgets#abc"}
	for _, input := range tests {
		_, err := store.ParseKey(input)
		assert.Error(t, err, "input %q", input)
	}
}

func TestMarkProcessed_AppendOnly(t *testing.T) {
	var rec store.ReviewRecord

	rec.MarkProcessed(7)
	rec.MarkProcessed(9)
	rec.MarkProcessed(7) // replay is a no-op

	assert.Equal(t, []int64{7, 9}, rec.ProcessedCommentIDs)
	assert.True(t, rec.HasProcessed(7))
	assert.False(t, rec.HasProcessed(8))
}

func TestGeneratePassID(t *testing.T) {
	ts := time.Date(2026, 8, 29, 14, 30, 52, 1234, time.UTC)

	id := store.GeneratePassID(ts, "acme/widgets", 42)

	assert.True(t, strings.HasPrefix(id, "pass-20260829T143052Z-"), id)

	other := store.GeneratePassID(ts.Add(time.Nanosecond), "acme/widgets", 42)
	assert.NotEqual(t, id, other, "ids must be unique across nanoseconds")
}
