package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bkyoung/prwatch/internal/store"
)

// ErrVersionRequested indicates the user requested the CLI version and no further work should be done.
var ErrVersionRequested = errors.New("version requested")

// Watcher defines the dependency required to run the watch and once commands.
type Watcher interface {
	Run(ctx context.Context) error
	Tick(ctx context.Context)
}

// Sweeper defines the dependency required to run the sweep command.
type Sweeper interface {
	Sweep(retention time.Duration) (int, error)
}

// HistoryLister defines the dependency required to run the history command.
type HistoryLister interface {
	ListPasses(ctx context.Context, limit int) ([]store.Pass, error)
}

// Arguments encapsulates IO writers injected from the host process.
type Arguments struct {
	OutWriter io.Writer
	ErrWriter io.Writer
}

// Dependencies captures the collaborators for the CLI.
type Dependencies struct {
	Watcher              Watcher
	Sweeper              Sweeper
	History              HistoryLister
	Args                 Arguments
	DefaultRetentionDays int
	Version              string
}

// NewRootCommand constructs the root Cobra command.
func NewRootCommand(deps Dependencies) *cobra.Command {
	versionString := deps.Version
	if versionString == "" {
		versionString = "v0.0.0"
	}

	root := &cobra.Command{
		Use:   "prwatch",
		Short: "Automated pull request review daemon",
	}
	root.SilenceUsage = true
	root.SilenceErrors = true

	outWriter := deps.Args.OutWriter
	if outWriter == nil {
		outWriter = os.Stdout
	}
	errWriter := deps.Args.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}
	root.SetOut(outWriter)
	root.SetErr(errWriter)

	root.AddCommand(watchCommand(deps.Watcher))
	root.AddCommand(onceCommand(deps.Watcher))
	root.AddCommand(sweepCommand(deps.Sweeper, deps.DefaultRetentionDays))
	root.AddCommand(historyCommand(deps.History))

	var showVersion bool
	root.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "Show version and exit")
	versionHandler := func(cmd *cobra.Command, args []string) error {
		if showVersion {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), versionString)
			return ErrVersionRequested
		}
		return nil
	}
	root.PersistentPreRunE = versionHandler
	root.PreRunE = versionHandler
	root.RunE = func(cmd *cobra.Command, args []string) error {
		if err := versionHandler(cmd, args); err != nil {
			return err
		}
		return cmd.Help()
	}

	return root
}

func watchCommand(watcher Watcher) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch configured repositories and review pull requests continuously",
		RunE: func(cmd *cobra.Command, args []string) error {
			if watcher == nil {
				return errors.New("watcher not configured")
			}
			err := watcher.Run(cmd.Context())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

func onceCommand(watcher Watcher) *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run a single review pass over the configured repositories and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			if watcher == nil {
				return errors.New("watcher not configured")
			}
			watcher.Tick(cmd.Context())
			return cmd.Context().Err()
		},
	}
}

func sweepCommand(sweeper Sweeper, defaultRetentionDays int) *cobra.Command {
	var retentionDays int

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete review state older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			if sweeper == nil {
				return errors.New("state store not configured")
			}
			if retentionDays <= 0 {
				return fmt.Errorf("--retention-days must be a positive integer, got %d", retentionDays)
			}
			removed, err := sweeper.Sweep(time.Duration(retentionDays) * 24 * time.Hour)
			if err != nil {
				return fmt.Errorf("sweep state: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed %d stale record(s)\n", removed)
			return nil
		},
	}

	if defaultRetentionDays <= 0 {
		defaultRetentionDays = 30
	}
	cmd.Flags().IntVar(&retentionDays, "retention-days", defaultRetentionDays, "Age in days past which review records are removed")

	return cmd
}

func historyCommand(history HistoryLister) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent review passes from the history archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			if history == nil {
				return errors.New("history archive not configured; set store.historyPath")
			}
			passes, err := history.ListPasses(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list passes: %w", err)
			}
			if len(passes) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No review passes recorded yet")
				return nil
			}
			for _, p := range passes {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), formatPass(p))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of passes to show")

	return cmd
}

func formatPass(p store.Pass) string {
	sha := p.CommitSHA
	if len(sha) > 12 {
		sha = sha[:12]
	}
	return fmt.Sprintf("%s  %s#%d  %s  %d finding(s)  [%s]",
		p.StartedAt.Format(time.RFC3339), p.Repo, p.Number, sha, p.FindingCount, p.PassID)
}
