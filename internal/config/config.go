package config

// Config represents the full application configuration.
type Config struct {
	GitHub        GitHubConfig        `yaml:"github"`
	Agent         AgentConfig         `yaml:"agent"`
	Rubrics       RubricsConfig       `yaml:"rubrics"`
	Scheduler     SchedulerConfig     `yaml:"scheduler"`
	Store         StoreConfig         `yaml:"store"`
	Workspace     WorkspaceConfig     `yaml:"workspace"`
	Notify        NotifyConfig        `yaml:"notify"`
	HTTP          HTTPConfig          `yaml:"http"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// GitHubConfig configures the hosting-platform client.
type GitHubConfig struct {
	// Token authenticates API calls; usually "${GITHUB_TOKEN}".
	Token string `yaml:"token"`

	// BaseURL overrides the API endpoint (GitHub Enterprise).
	BaseURL string `yaml:"baseUrl"`

	// Repos lists the repositories to watch, as "owner/name".
	Repos []string `yaml:"repos"`

	// BotLogin is the daemon's own account login, for skipping its own
	// comments in the comment cycle.
	BotLogin string `yaml:"botLogin"`

	// ReReviewLabel, when present on a PR, forces a fresh review pass.
	ReReviewLabel string `yaml:"reReviewLabel"`

	// ReviewedLabel is applied after a completed review pass.
	ReviewedLabel string `yaml:"reviewedLabel"`
}

// AgentConfig configures the reasoning-agent subprocess.
type AgentConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	Timeout string   `yaml:"timeout"`
}

// RubricsConfig locates the rubric definitions file. Empty means the
// built-in rubric set.
type RubricsConfig struct {
	File string `yaml:"file"`
}

// SchedulerConfig controls the polling loop cadence.
type SchedulerConfig struct {
	// Interval is the floor between cycle starts.
	Interval string `yaml:"interval"`

	// CommentDelay is the pause between processing consecutive comments.
	CommentDelay string `yaml:"commentDelay"`

	// RubricDelay is the pause between consecutive rubric invocations.
	RubricDelay string `yaml:"rubricDelay"`
}

// StoreConfig configures durable state and the history archive.
type StoreConfig struct {
	// StatePath is the JSON review-state file.
	StatePath string `yaml:"statePath"`

	// HistoryPath is the SQLite pass archive; empty disables archiving.
	HistoryPath string `yaml:"historyPath"`

	// RetentionDays bounds how long swept state records live.
	RetentionDays int `yaml:"retentionDays"`
}

// WorkspaceConfig configures the scratch checkout used by fix commands.
type WorkspaceConfig struct {
	// Dir is the parent directory for per-PR clones; empty disables
	// workspace checkouts (fix commands then run without sources).
	Dir string `yaml:"dir"`
}

// NotifyConfig configures the notification sink.
type NotifyConfig struct {
	// WebhookURL receives fire-and-forget JSON notifications; empty
	// disables notifications.
	WebhookURL string `yaml:"webhookUrl"`
}

// HTTPConfig holds global HTTP client settings.
type HTTPConfig struct {
	Timeout        string `yaml:"timeout"`
	MaxRetries     int    `yaml:"maxRetries"`
	InitialBackoff string `yaml:"initialBackoff"`
}

// ObservabilityConfig controls structured logging.
type ObservabilityConfig struct {
	// Level is debug, info, warning, or error.
	Level string `yaml:"level"`

	// Format is "human", "json", or "auto" (human on a TTY, json otherwise).
	Format string `yaml:"format"`
}
