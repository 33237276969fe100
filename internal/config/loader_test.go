package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkyoung/prwatch/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(config.LoaderOptions{ConfigPaths: []string{t.TempDir()}})
	require.NoError(t, err)

	assert.Equal(t, "https://api.github.com", cfg.GitHub.BaseURL)
	assert.Equal(t, "prwatch:re-review", cfg.GitHub.ReReviewLabel)
	assert.Equal(t, "5m", cfg.Agent.Timeout)
	assert.Equal(t, "60s", cfg.Scheduler.Interval)
	assert.Equal(t, 30, cfg.Store.RetentionDays)
	assert.Equal(t, "auto", cfg.Observability.Format)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	content := `
github:
  repos:
    - acme/widgets
    - acme/gadgets
  botLogin: review-bot
agent:
  command: reviewer-agent
  args: ["--quiet"]
  timeout: 90s
scheduler:
  interval: 5m
store:
  statePath: /var/lib/prwatch/state.json
  historyPath: /var/lib/prwatch/history.db
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prwatch.yaml"), []byte(content), 0o644))

	cfg, err := config.Load(config.LoaderOptions{ConfigPaths: []string{dir}})
	require.NoError(t, err)

	assert.Equal(t, []string{"acme/widgets", "acme/gadgets"}, cfg.GitHub.Repos)
	assert.Equal(t, "review-bot", cfg.GitHub.BotLogin)
	assert.Equal(t, "reviewer-agent", cfg.Agent.Command)
	assert.Equal(t, []string{"--quiet"}, cfg.Agent.Args)
	assert.Equal(t, "90s", cfg.Agent.Timeout)
	assert.Equal(t, "5m", cfg.Scheduler.Interval)
	assert.Equal(t, "/var/lib/prwatch/history.db", cfg.Store.HistoryPath)
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	t.Setenv("PRWATCH_TEST_TOKEN", "tok-123")

	dir := t.TempDir()
	content := `
github:
  token: ${PRWATCH_TEST_TOKEN}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prwatch.yaml"), []byte(content), 0o644))

	cfg, err := config.Load(config.LoaderOptions{ConfigPaths: []string{dir}})
	require.NoError(t, err)
	assert.Equal(t, "tok-123", cfg.GitHub.Token)
}

func TestLoad_UnsetEnvVarKeptVerbatim(t *testing.T) {
	dir := t.TempDir()
	content := `
github:
  token: ${PRWATCH_DEFINITELY_UNSET_VAR}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prwatch.yaml"), []byte(content), 0o644))

	cfg, err := config.Load(config.LoaderOptions{ConfigPaths: []string{dir}})
	require.NoError(t, err)
	assert.Equal(t, "${PRWATCH_DEFINITELY_UNSET_VAR}", cfg.GitHub.Token)
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prwatch.yaml"), []byte("github: ["), 0o644))

	_, err := config.Load(config.LoaderOptions{ConfigPaths: []string{dir}})
	assert.Error(t, err)
}
