// Package workspace maintains scratch checkouts of pull-request branches so
// fix commands can run the reasoning agent against real sources.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	goGit "github.com/go-git/go-git/v5"
	gitConfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	transportHTTP "github.com/go-git/go-git/v5/plumbing/transport/http"
)

// Manager clones and updates per-repository checkouts under a parent
// directory. An empty parent directory disables checkouts.
type Manager struct {
	rootDir string
	token   string
}

// NewManager creates a workspace manager rooted at rootDir.
func NewManager(rootDir, token string) *Manager {
	return &Manager{rootDir: rootDir, token: token}
}

// Enabled reports whether checkouts are configured.
func (m *Manager) Enabled() bool {
	return m.rootDir != ""
}

// CheckoutPR ensures a checkout of the pull request's head commit and
// returns its directory. The clone is reused across calls: subsequent
// checkouts only fetch and reset.
func (m *Manager) CheckoutPR(ctx context.Context, owner, repo string, number int, headSHA string) (string, error) {
	if !m.Enabled() {
		return "", errors.New("workspace directory not configured")
	}

	dir := filepath.Join(m.rootDir, owner, repo)

	gitRepo, err := m.openOrClone(ctx, dir, owner, repo)
	if err != nil {
		return "", err
	}

	refSpec := gitConfig.RefSpec(fmt.Sprintf("+refs/pull/%d/head:refs/remotes/origin/pr/%d", number, number))
	err = gitRepo.FetchContext(ctx, &goGit.FetchOptions{
		RemoteName: "origin",
		RefSpecs:   []gitConfig.RefSpec{refSpec},
		Auth:       m.auth(),
		Tags:       goGit.NoTags,
	})
	if err != nil && !errors.Is(err, goGit.NoErrAlreadyUpToDate) {
		return "", fmt.Errorf("fetch pr %d: %w", number, err)
	}

	worktree, err := gitRepo.Worktree()
	if err != nil {
		return "", fmt.Errorf("open worktree: %w", err)
	}

	err = worktree.Checkout(&goGit.CheckoutOptions{
		Hash:  plumbing.NewHash(headSHA),
		Force: true,
	})
	if err != nil {
		return "", fmt.Errorf("checkout %s: %w", shortSHA(headSHA), err)
	}

	return dir, nil
}

func (m *Manager) openOrClone(ctx context.Context, dir, owner, repo string) (*goGit.Repository, error) {
	gitRepo, err := goGit.PlainOpen(dir)
	if err == nil {
		return gitRepo, nil
	}
	if !errors.Is(err, goGit.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("open checkout %s: %w", dir, err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create checkout dir: %w", err)
	}

	gitRepo, err = goGit.PlainCloneContext(ctx, dir, false, &goGit.CloneOptions{
		URL:  fmt.Sprintf("https://github.com/%s/%s.git", owner, repo),
		Auth: m.auth(),
		Tags: goGit.NoTags,
	})
	if err != nil {
		return nil, fmt.Errorf("clone %s/%s: %w", owner, repo, err)
	}
	return gitRepo, nil
}

func (m *Manager) auth() *transportHTTP.BasicAuth {
	if m.token == "" {
		return nil
	}
	return &transportHTTP.BasicAuth{
		Username: "x-access-token",
		Password: m.token,
	}
}

func shortSHA(sha string) string {
	if len(sha) > 12 {
		return sha[:12]
	}
	return strings.TrimSpace(sha)
}
