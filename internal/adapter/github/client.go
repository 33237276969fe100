package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/bkyoung/prwatch/internal/adapter/httpx"
	"github.com/bkyoung/prwatch/internal/domain"
)

const (
	defaultBaseURL        = "https://api.github.com"
	defaultTimeout        = 30 * time.Second
	defaultMaxRetries     = 3
	defaultInitialBackoff = 2 * time.Second

	// maxResponseSize limits how much data we'll read from a response body.
	// This prevents memory exhaustion from malicious or misconfigured servers.
	maxResponseSize = 10 * 1024 * 1024 // 10 MB

	// perPage is the page size used for list endpoints.
	perPage = 100

	// maxPages caps pagination so a PR with thousands of comments cannot
	// stall a cycle.
	maxPages = 10
)

// Client is an HTTP client for the GitHub REST API.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	retryConf  httpx.RetryConfig
}

// NewClient creates a new GitHub API client with the given token.
// The token should be a personal access token or GITHUB_TOKEN from Actions.
func NewClient(token string) *Client {
	return &Client{
		token:      token,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		retryConf: httpx.RetryConfig{
			MaxRetries:     defaultMaxRetries,
			InitialBackoff: defaultInitialBackoff,
			MaxBackoff:     32 * time.Second,
			Multiplier:     2.0,
		},
	}
}

// SetBaseURL sets a custom base URL (for testing or GitHub Enterprise).
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

// SetTimeout sets the HTTP timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.httpClient.Timeout = timeout
}

// SetMaxRetries sets the maximum number of retry attempts.
func (c *Client) SetMaxRetries(maxRetries int) {
	c.retryConf.MaxRetries = maxRetries
}

// SetInitialBackoff sets the initial backoff duration for retries.
func (c *Client) SetInitialBackoff(backoff time.Duration) {
	c.retryConf.InitialBackoff = backoff
}

// ListOpenPullRequests returns the open pull requests for a repository,
// including labels, head SHA, and last-update timestamp.
func (c *Client) ListOpenPullRequests(ctx context.Context, owner, repo string) ([]domain.PullRequest, error) {
	var prs []domain.PullRequest

	for page := 1; page <= maxPages; page++ {
		u := fmt.Sprintf("%s/repos/%s/%s/pulls?state=open&per_page=%d&page=%d",
			c.baseURL, owner, repo, perPage, page)

		body, err := c.do(ctx, http.MethodGet, u, "application/vnd.github+json", nil)
		if err != nil {
			return nil, fmt.Errorf("list pull requests: %w", err)
		}

		var pagePRs []pullRequestJSON
		if err := json.Unmarshal(body, &pagePRs); err != nil {
			return nil, fmt.Errorf("decode pull request list: %w", err)
		}

		for _, pr := range pagePRs {
			labels := make([]string, 0, len(pr.Labels))
			for _, l := range pr.Labels {
				labels = append(labels, l.Name)
			}
			prs = append(prs, domain.PullRequest{
				Owner:     owner,
				Repo:      repo,
				Number:    pr.Number,
				Title:     pr.Title,
				Author:    pr.User.Login,
				HeadSHA:   pr.Head.SHA,
				UpdatedAt: pr.UpdatedAt,
				Labels:    labels,
			})
		}

		if len(pagePRs) < perPage {
			break
		}
	}

	return prs, nil
}

// GetPullRequestDiff fetches the raw unified diff text for a pull request.
func (c *Client) GetPullRequestDiff(ctx context.Context, owner, repo string, number int) (string, error) {
	u := fmt.Sprintf("%s/repos/%s/%s/pulls/%d", c.baseURL, owner, repo, number)

	body, err := c.do(ctx, http.MethodGet, u, "application/vnd.github.diff", nil)
	if err != nil {
		return "", fmt.Errorf("fetch diff: %w", err)
	}

	return string(body), nil
}

// GetPullRequestHeadSHA fetches the full head commit SHA for a pull request.
func (c *Client) GetPullRequestHeadSHA(ctx context.Context, owner, repo string, number int) (string, error) {
	u := fmt.Sprintf("%s/repos/%s/%s/pulls/%d", c.baseURL, owner, repo, number)

	body, err := c.do(ctx, http.MethodGet, u, "application/vnd.github+json", nil)
	if err != nil {
		return "", fmt.Errorf("fetch pull request: %w", err)
	}

	var pr pullRequestJSON
	if err := json.Unmarshal(body, &pr); err != nil {
		return "", fmt.Errorf("decode pull request: %w", err)
	}
	if pr.Head.SHA == "" {
		return "", fmt.Errorf("pull request %s/%s#%d has no head SHA", owner, repo, number)
	}

	return pr.Head.SHA, nil
}

// CreateReviewInput contains all data needed to create a PR review.
type CreateReviewInput struct {
	Owner      string
	Repo       string
	PullNumber int
	CommitSHA  string
	Event      ReviewEvent
	Summary    string
	Comments   []ReviewComment
}

// CreateReview posts a pull request review with inline comments.
// Returns an error if the request fails after all retries; a 422 surfaces
// as httpx.ErrTypeValidation so callers can fall back to a plain comment.
func (c *Client) CreateReview(ctx context.Context, input CreateReviewInput) (*CreateReviewResponse, error) {
	reqBody := CreateReviewRequest{
		CommitID: input.CommitSHA,
		Event:    input.Event,
		Body:     input.Summary,
		Comments: input.Comments,
	}

	u := fmt.Sprintf("%s/repos/%s/%s/pulls/%d/reviews",
		c.baseURL, input.Owner, input.Repo, input.PullNumber)

	body, err := c.do(ctx, http.MethodPost, u, "application/vnd.github+json", reqBody)
	if err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}

	var resp CreateReviewResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode review response: %w", err)
	}

	return &resp, nil
}

// CreateIssueComment posts a plain (non-inline) comment on a pull request.
func (c *Client) CreateIssueComment(ctx context.Context, owner, repo string, number int, commentBody string) error {
	u := fmt.Sprintf("%s/repos/%s/%s/issues/%d/comments", c.baseURL, owner, repo, number)

	payload := map[string]string{"body": commentBody}
	if _, err := c.do(ctx, http.MethodPost, u, "application/vnd.github+json", payload); err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

// ReplyToReviewComment posts a threaded reply to an existing review comment.
func (c *Client) ReplyToReviewComment(ctx context.Context, owner, repo string, number int, commentID int64, replyBody string) error {
	u := fmt.Sprintf("%s/repos/%s/%s/pulls/%d/comments/%d/replies",
		c.baseURL, owner, repo, number, commentID)

	payload := map[string]string{"body": replyBody}
	if _, err := c.do(ctx, http.MethodPost, u, "application/vnd.github+json", payload); err != nil {
		return fmt.Errorf("reply to comment %d: %w", commentID, err)
	}
	return nil
}

// ListIssueComments returns the general (non-inline) comments on a pull request.
func (c *Client) ListIssueComments(ctx context.Context, owner, repo string, number int) ([]domain.Comment, error) {
	var comments []domain.Comment

	for page := 1; page <= maxPages; page++ {
		u := fmt.Sprintf("%s/repos/%s/%s/issues/%d/comments?per_page=%d&page=%d",
			c.baseURL, owner, repo, number, perPage, page)

		body, err := c.do(ctx, http.MethodGet, u, "application/vnd.github+json", nil)
		if err != nil {
			return nil, fmt.Errorf("list comments: %w", err)
		}

		var pageComments []issueCommentJSON
		if err := json.Unmarshal(body, &pageComments); err != nil {
			return nil, fmt.Errorf("decode comment list: %w", err)
		}

		for _, c := range pageComments {
			comments = append(comments, domain.Comment{
				ID:        c.ID,
				Author:    c.User.Login,
				Body:      c.Body,
				CreatedAt: c.CreatedAt,
			})
		}

		if len(pageComments) < perPage {
			break
		}
	}

	return comments, nil
}

// ListReviewComments returns the diff-anchored review comments on a pull request.
func (c *Client) ListReviewComments(ctx context.Context, owner, repo string, number int) ([]domain.Comment, error) {
	var comments []domain.Comment

	for page := 1; page <= maxPages; page++ {
		u := fmt.Sprintf("%s/repos/%s/%s/pulls/%d/comments?per_page=%d&page=%d",
			c.baseURL, owner, repo, number, perPage, page)

		body, err := c.do(ctx, http.MethodGet, u, "application/vnd.github+json", nil)
		if err != nil {
			return nil, fmt.Errorf("list review comments: %w", err)
		}

		var pageComments []reviewCommentJSON
		if err := json.Unmarshal(body, &pageComments); err != nil {
			return nil, fmt.Errorf("decode review comment list: %w", err)
		}

		for _, c := range pageComments {
			comments = append(comments, domain.Comment{
				ID:        c.ID,
				Author:    c.User.Login,
				Body:      c.Body,
				CreatedAt: c.CreatedAt,
				Path:      c.Path,
				Position:  c.Position,
				DiffHunk:  c.DiffHunk,
			})
		}

		if len(pageComments) < perPage {
			break
		}
	}

	return comments, nil
}

// AddLabels adds labels to a pull request.
func (c *Client) AddLabels(ctx context.Context, owner, repo string, number int, labels []string) error {
	u := fmt.Sprintf("%s/repos/%s/%s/issues/%d/labels", c.baseURL, owner, repo, number)

	payload := map[string][]string{"labels": labels}
	if _, err := c.do(ctx, http.MethodPost, u, "application/vnd.github+json", payload); err != nil {
		return fmt.Errorf("add labels: %w", err)
	}
	return nil
}

// RemoveLabel removes a label from a pull request. A missing label is not
// an error: removing an already-removed label is a no-op.
func (c *Client) RemoveLabel(ctx context.Context, owner, repo string, number int, label string) error {
	u := fmt.Sprintf("%s/repos/%s/%s/issues/%d/labels/%s",
		c.baseURL, owner, repo, number, url.PathEscape(label))

	_, err := c.do(ctx, http.MethodDelete, u, "application/vnd.github+json", nil)
	if err != nil {
		var httpErr *httpx.Error
		if errors.As(err, &httpErr) && httpErr.Type == httpx.ErrTypeNotFound {
			return nil
		}
		return fmt.Errorf("remove label %q: %w", label, err)
	}
	return nil
}

// do executes one API request with retry, returning the response body.
func (c *Client) do(ctx context.Context, method, url, accept string, payload interface{}) ([]byte, error) {
	var jsonData []byte
	if payload != nil {
		var err error
		jsonData, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	var respBody []byte
	err := httpx.RetryWithBackoff(ctx, func(ctx context.Context) error {
		var reader io.Reader
		if jsonData != nil {
			reader = bytes.NewReader(jsonData)
		}

		req, reqErr := http.NewRequestWithContext(ctx, method, url, reader)
		if reqErr != nil {
			return &httpx.Error{
				Type:      httpx.ErrTypeUnknown,
				Message:   reqErr.Error(),
				Retryable: false,
				Provider:  providerName,
			}
		}

		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", accept)
		req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
		if jsonData != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, callErr := c.httpClient.Do(req)
		if callErr != nil {
			return &httpx.Error{
				Type:      httpx.ErrTypeServiceUnavailable,
				Message:   callErr.Error(),
				Retryable: true,
				Provider:  providerName,
			}
		}
		defer resp.Body.Close()

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		if readErr != nil {
			return &httpx.Error{
				Type:      httpx.ErrTypeServiceUnavailable,
				Message:   readErr.Error(),
				Retryable: true,
				Provider:  providerName,
			}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return MapHTTPError(resp.StatusCode, body)
		}

		respBody = body
		return nil
	}, c.retryConf)
	if err != nil {
		return nil, err
	}

	return respBody, nil
}
