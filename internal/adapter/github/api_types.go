package github

import "time"

// GitHub REST API request/response shapes.
// See: https://docs.github.com/en/rest/pulls

// ReviewEvent represents the action to take when submitting a review.
type ReviewEvent string

const (
	// EventComment submits the review without approval.
	EventComment ReviewEvent = "COMMENT"

	// EventApprove approves the pull request.
	EventApprove ReviewEvent = "APPROVE"

	// EventRequestChanges requests changes to the pull request.
	EventRequestChanges ReviewEvent = "REQUEST_CHANGES"
)

// CreateReviewRequest is the request body for POST /repos/{owner}/{repo}/pulls/{pull_number}/reviews.
type CreateReviewRequest struct {
	// CommitID is the SHA of the commit to review (must be the head commit of the PR).
	CommitID string `json:"commit_id"`

	// Event is the review action: APPROVE, REQUEST_CHANGES, or COMMENT.
	Event ReviewEvent `json:"event"`

	// Body is the review summary comment.
	Body string `json:"body"`

	// Comments are the inline review comments at specific diff positions.
	Comments []ReviewComment `json:"comments,omitempty"`
}

// ReviewComment represents an inline comment at a specific diff position.
type ReviewComment struct {
	// Path is the relative path of the file to comment on.
	Path string `json:"path"`

	// Position is the line index in the diff to comment on (1-indexed from
	// the file's first @@ header).
	Position int `json:"position"`

	// Body is the comment text (supports GitHub-flavored Markdown).
	Body string `json:"body"`
}

// CreateReviewResponse is the response from creating a review.
type CreateReviewResponse struct {
	ID      int64  `json:"id"`
	User    User   `json:"user"`
	Body    string `json:"body"`
	State   string `json:"state"`
	HTMLURL string `json:"html_url"`
}

// User represents a GitHub user in API responses.
type User struct {
	Login string `json:"login"`
	ID    int64  `json:"id"`
	Type  string `json:"type"` // "User" or "Bot"
}

// pullRequestJSON is the wire form of a pull request.
type pullRequestJSON struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	User      User      `json:"user"`
	UpdatedAt time.Time `json:"updated_at"`
	Head      struct {
		SHA string `json:"sha"`
	} `json:"head"`
	Labels []struct {
		Name string `json:"name"`
	} `json:"labels"`
}

// issueCommentJSON is the wire form of a general PR comment.
type issueCommentJSON struct {
	ID        int64     `json:"id"`
	User      User      `json:"user"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// reviewCommentJSON is the wire form of a diff-anchored review comment.
type reviewCommentJSON struct {
	ID        int64     `json:"id"`
	User      User      `json:"user"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	Path      string    `json:"path"`
	Position  int       `json:"position"`
	DiffHunk  string    `json:"diff_hunk"`
}

// ErrorResponse represents an error response from the GitHub API.
type ErrorResponse struct {
	Message          string `json:"message"`
	DocumentationURL string `json:"documentation_url"`
	Errors           []struct {
		Resource string `json:"resource"`
		Field    string `json:"field"`
		Code     string `json:"code"`
		Message  string `json:"message"`
	} `json:"errors,omitempty"`
}
