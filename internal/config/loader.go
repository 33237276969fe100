package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// LoaderOptions describes how configuration should be discovered.
type LoaderOptions struct {
	ConfigPaths []string
	FileName    string
	EnvPrefix   string
}

// Load returns the merged configuration from files and environment variables.
func Load(opts LoaderOptions) (Config, error) {
	v := viper.New()

	name := opts.FileName
	if name == "" {
		name = "prwatch"
	}

	configFile := locateConfigFile(name, opts.ConfigPaths)
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(name)
	}

	prefix := opts.EnvPrefix
	if prefix == "" {
		prefix = "PRWATCH"
	}
	v.SetEnvPrefix(prefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AllowEmptyEnv(true)

	setDefaults(v)

	if configFile != "" {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg = expandEnvVars(cfg)

	return cfg, nil
}

// expandEnvVars expands ${VAR} and $VAR syntax in configuration strings.
func expandEnvVars(cfg Config) Config {
	cfg.GitHub.Token = expandEnvString(cfg.GitHub.Token)
	cfg.GitHub.BaseURL = expandEnvString(cfg.GitHub.BaseURL)
	cfg.GitHub.Repos = expandEnvStringSlice(cfg.GitHub.Repos)
	cfg.GitHub.BotLogin = expandEnvString(cfg.GitHub.BotLogin)

	cfg.Agent.Command = expandEnvString(cfg.Agent.Command)
	cfg.Agent.Args = expandEnvStringSlice(cfg.Agent.Args)

	cfg.Rubrics.File = expandEnvString(cfg.Rubrics.File)

	cfg.Store.StatePath = expandEnvString(cfg.Store.StatePath)
	cfg.Store.HistoryPath = expandEnvString(cfg.Store.HistoryPath)

	cfg.Workspace.Dir = expandEnvString(cfg.Workspace.Dir)

	cfg.Notify.WebhookURL = expandEnvString(cfg.Notify.WebhookURL)

	cfg.Observability.Level = expandEnvString(cfg.Observability.Level)
	cfg.Observability.Format = expandEnvString(cfg.Observability.Format)

	return cfg
}

// expandEnvString replaces ${VAR} or $VAR with environment variable values.
func expandEnvString(s string) string {
	if s == "" {
		return s
	}

	// Replace ${VAR} syntax
	re := regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*)\}`)
	s = re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // Keep original if not found
	})

	// Replace $VAR syntax (without braces)
	re = regexp.MustCompile(`\$([A-Z_][A-Z0-9_]*)`)
	s = re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[1:]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})

	return s
}

// expandEnvStringSlice expands environment variables in a slice of strings.
func expandEnvStringSlice(slice []string) []string {
	if len(slice) == 0 {
		return slice
	}
	result := make([]string, len(slice))
	for i, s := range slice {
		result[i] = expandEnvString(s)
	}
	return result
}

func locateConfigFile(name string, paths []string) string {
	searchPaths := append([]string{}, paths...)
	searchPaths = append(searchPaths, ".")
	for _, dir := range searchPaths {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, name+".yaml")
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("github.baseUrl", "https://api.github.com")
	v.SetDefault("github.reReviewLabel", "prwatch:re-review")
	v.SetDefault("github.reviewedLabel", "prwatch:reviewed")
	v.SetDefault("github.botLogin", "prwatch[bot]")

	v.SetDefault("agent.timeout", "5m")

	v.SetDefault("scheduler.interval", "60s")
	v.SetDefault("scheduler.commentDelay", "2s")
	v.SetDefault("scheduler.rubricDelay", "2s")

	v.SetDefault("store.statePath", "prwatch-state.json")
	v.SetDefault("store.retentionDays", 30)

	v.SetDefault("http.timeout", "30s")
	v.SetDefault("http.maxRetries", 3)
	v.SetDefault("http.initialBackoff", "2s")

	v.SetDefault("observability.level", "info")
	v.SetDefault("observability.format", "auto")
}
