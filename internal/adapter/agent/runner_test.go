package agent_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkyoung/prwatch/internal/adapter/agent"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("tests use POSIX shell commands")
	}
}

func TestRun_EchoesStdout(t *testing.T) {
	skipOnWindows(t)

	r := agent.NewRunner("sh", []string{"-c", "cat"}, 5*time.Second)

	out, err := r.Run(context.Background(), "hello agent", "")
	require.NoError(t, err)
	assert.Equal(t, "hello agent", out)
}

func TestRun_EmptyOutputIsSuccess(t *testing.T) {
	skipOnWindows(t)

	r := agent.NewRunner("true", nil, 5*time.Second)

	out, err := r.Run(context.Background(), "ignored", "")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRun_TimeoutIsDistinguishable(t *testing.T) {
	skipOnWindows(t)

	r := agent.NewRunner("sleep", []string{"5"}, 100*time.Millisecond)

	start := time.Now()
	_, err := r.Run(context.Background(), "", "")
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, agent.ErrTimeout)
	assert.Less(t, elapsed, 3*time.Second, "process must be killed at the timeout boundary")
}

func TestRun_ProcessFailureIncludesStderr(t *testing.T) {
	skipOnWindows(t)

	r := agent.NewRunner("sh", []string{"-c", "echo boom >&2; exit 3"}, 5*time.Second)

	_, err := r.Run(context.Background(), "", "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, agent.ErrTimeout)
	assert.Contains(t, err.Error(), "boom")
}

func TestRun_UsesWorkdir(t *testing.T) {
	skipOnWindows(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "marker.txt"), []byte("x"), 0o644))

	r := agent.NewRunner("ls", nil, 5*time.Second)

	out, err := r.Run(context.Background(), "", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "marker.txt")
}
