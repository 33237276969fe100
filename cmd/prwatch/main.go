package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bkyoung/prwatch/internal/adapter/agent"
	"github.com/bkyoung/prwatch/internal/adapter/cli"
	githubadapter "github.com/bkyoung/prwatch/internal/adapter/github"
	"github.com/bkyoung/prwatch/internal/adapter/httpx"
	"github.com/bkyoung/prwatch/internal/adapter/notify"
	"github.com/bkyoung/prwatch/internal/adapter/store/sqlite"
	"github.com/bkyoung/prwatch/internal/adapter/store/statefile"
	"github.com/bkyoung/prwatch/internal/adapter/workspace"
	"github.com/bkyoung/prwatch/internal/config"
	"github.com/bkyoung/prwatch/internal/redaction"
	"github.com/bkyoung/prwatch/internal/rubric"
	"github.com/bkyoung/prwatch/internal/scheduler"
	"github.com/bkyoung/prwatch/internal/store"
	"github.com/bkyoung/prwatch/internal/usecase/comments"
	"github.com/bkyoung/prwatch/internal/usecase/review"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		// Redact tokens from URLs in error messages before logging
		log.Println(httpx.RedactURLSecrets(err.Error()))
		os.Exit(1)
	}
}

func run() error {
	// Create cancellable context with signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(config.LoaderOptions{
		ConfigPaths: defaultConfigPaths(),
		FileName:    "prwatch",
		EnvPrefix:   "PRWATCH",
	})
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	logger := buildLogger(cfg.Observability)

	client := githubadapter.NewClient(cfg.GitHub.Token)
	if cfg.GitHub.BaseURL != "" {
		client.SetBaseURL(cfg.GitHub.BaseURL)
	}
	if cfg.HTTP.Timeout != "" {
		client.SetTimeout(parseDuration(cfg.HTTP.Timeout, 30*time.Second))
	}
	if cfg.HTTP.MaxRetries > 0 {
		client.SetMaxRetries(cfg.HTTP.MaxRetries)
	}
	if cfg.HTTP.InitialBackoff != "" {
		client.SetInitialBackoff(parseDuration(cfg.HTTP.InitialBackoff, 2*time.Second))
	}

	rubrics, err := loadRubrics(cfg.Rubrics.File)
	if err != nil {
		return fmt.Errorf("load rubrics: %w", err)
	}

	runner := agent.NewRunner(cfg.Agent.Command, cfg.Agent.Args, parseDuration(cfg.Agent.Timeout, 5*time.Minute))

	if dir := filepath.Dir(cfg.Store.StatePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state directory: %w", err)
		}
	}
	stateStore := statefile.Open(cfg.Store.StatePath)

	var historyStore store.HistoryStore
	if cfg.Store.HistoryPath != "" {
		hs, err := sqlite.NewStore(cfg.Store.HistoryPath)
		if err != nil {
			log.Printf("warning: history archive unavailable: %v", err)
		} else {
			historyStore = hs
			defer hs.Close()
		}
	}

	var notifier review.Notifier
	if cfg.Notify.WebhookURL != "" {
		notifier = notify.NewWebhook(cfg.Notify.WebhookURL)
	}

	var fixWorkspace comments.Workspace
	if cfg.Workspace.Dir != "" {
		fixWorkspace = workspace.NewManager(cfg.Workspace.Dir, cfg.GitHub.Token)
	}

	reviewController := review.NewController(review.Config{
		Platform:      client,
		Agent:         runner,
		Rubrics:       rubrics,
		State:         stateStore,
		History:       historyStore,
		Notifier:      notifier,
		Redactor:      redaction.NewEngine(),
		Logger:        logger,
		ReReviewLabel: cfg.GitHub.ReReviewLabel,
		ReviewedLabel: cfg.GitHub.ReviewedLabel,
		RubricDelay:   parseDuration(cfg.Scheduler.RubricDelay, 2*time.Second),
	})

	commentController := comments.NewController(comments.Config{
		Platform:      client,
		Agent:         runner,
		Workspace:     fixWorkspace,
		State:         stateStore,
		Logger:        logger,
		BotLogin:      cfg.GitHub.BotLogin,
		ReReviewLabel: cfg.GitHub.ReReviewLabel,
		CommentDelay:  parseDuration(cfg.Scheduler.CommentDelay, 2*time.Second),
	})

	repos := cfg.GitHub.Repos
	loop := scheduler.New(
		scheduler.CycleFunc(commentController.RunCycle),
		scheduler.CycleFunc(func(ctx context.Context) error {
			return reviewController.RunCycle(ctx, repos)
		}),
		parseDuration(cfg.Scheduler.Interval, time.Minute),
		logger,
	)

	root := cli.NewRootCommand(cli.Dependencies{
		Watcher:              loop,
		Sweeper:              stateStore,
		History:              historyStore,
		DefaultRetentionDays: cfg.Store.RetentionDays,
		Version:              version,
	})

	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, cli.ErrVersionRequested) {
			return nil
		}
		return fmt.Errorf("command failed: %w", err)
	}
	return nil
}

func buildLogger(cfg config.ObservabilityConfig) *httpx.DefaultLogger {
	return httpx.NewDefaultLogger(httpx.ParseLogLevel(cfg.Level), httpx.ResolveLogFormat(cfg.Format))
}

func loadRubrics(path string) ([]rubric.Rubric, error) {
	if path == "" {
		return rubric.Defaults(), nil
	}
	return rubric.LoadFile(path)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		log.Printf("warning: invalid duration %q, using default %s", s, fallback)
		return fallback
	}
	return d
}

func defaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "prwatch"))
	}
	return paths
}
