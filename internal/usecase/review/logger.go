package review

import "context"

// Logger is the structured logging interface used by the review cycle.
type Logger interface {
	LogInfo(ctx context.Context, message string, fields map[string]interface{})
	LogWarning(ctx context.Context, message string, fields map[string]interface{})
	LogError(ctx context.Context, message string, fields map[string]interface{})
}

// nopLogger discards all log output. Used when no logger is configured.
type nopLogger struct{}

func (nopLogger) LogInfo(context.Context, string, map[string]interface{})    {}
func (nopLogger) LogWarning(context.Context, string, map[string]interface{}) {}
func (nopLogger) LogError(context.Context, string, map[string]interface{})   {}
