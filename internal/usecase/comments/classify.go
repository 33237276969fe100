package comments

import "strings"

// Command is the structured action a comment body maps to.
type Command int

const (
	// CommandNone means the comment is a free-form remark.
	CommandNone Command = iota

	// CommandReReview asks for a fresh review pass of the whole PR.
	CommandReReview

	// CommandFixAll asks the agent to attempt fixes across the change set.
	CommandFixAll

	// CommandFixOne asks the agent to fix a single finding, named by a
	// "file" or "file:line" target.
	CommandFixOne
)

func (c Command) String() string {
	switch c {
	case CommandReReview:
		return "re-review"
	case CommandFixAll:
		return "fix-all"
	case CommandFixOne:
		return "fix-one"
	}
	return "none"
}

const (
	tokenReReview = "!review"
	tokenFix      = "!fix"
)

// Classify matches a comment body against the command vocabulary.
// Matching is a pure text comparison on the trimmed, case-folded body:
// an exact token is a command, a fix token with a trailing target is the
// single-finding variant, and everything else is free-form. The returned
// target is only meaningful for CommandFixOne.
func Classify(body string) (Command, string) {
	folded := strings.ToLower(strings.TrimSpace(body))

	switch folded {
	case tokenReReview:
		return CommandReReview, ""
	case tokenFix:
		return CommandFixAll, ""
	}

	if rest, ok := strings.CutPrefix(folded, tokenFix+" "); ok {
		target := strings.TrimSpace(rest)
		if target != "" {
			return CommandFixOne, target
		}
		return CommandFixAll, ""
	}

	return CommandNone, ""
}
