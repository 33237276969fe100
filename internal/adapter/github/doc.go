// Package github implements the hosting-platform client against the GitHub
// REST API: listing open pull requests, fetching raw diffs, posting reviews
// with inline comments at diff positions, replying to comments, and managing
// labels.
//
// The client reuses the retry and error-mapping infrastructure from the
// httpx package so transient API failures are retried with backoff and
// permanent failures surface as typed errors.
package github
