package httpx

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// IsTTY checks if the given file descriptor is a terminal.
func IsTTY(fd uintptr) bool {
	return term.IsTerminal(int(fd))
}

// IsOutputTerminal checks if stdout is a TTY, indicating that output is
// being displayed directly to a user's terminal rather than being piped
// or collected by a process supervisor.
func IsOutputTerminal() bool {
	return IsTTY(os.Stdout.Fd())
}

// ResolveLogFormat maps a config string to a LogFormat. Anything other
// than an explicit choice is treated as "auto": human-readable output on
// a terminal, JSON when logs are being collected.
func ResolveLogFormat(s string) LogFormat {
	switch strings.ToLower(s) {
	case "human", "text":
		return LogFormatHuman
	case "json":
		return LogFormatJSON
	default:
		if IsOutputTerminal() {
			return LogFormatHuman
		}
		return LogFormatJSON
	}
}
