// Package diff converts raw unified diff text into the coordinate system
// GitHub's PR review API uses for inline comments.
//
// The primary use case is to convert absolute file line numbers (from agent
// findings) to GitHub's diff position format, which is required for creating
// inline PR review comments.
//
// Position in GitHub's API is 1-indexed from the first @@ hunk header of a
// file, counting all lines in the file's hunks (context, additions, and
// deletions). The counter resets at every new file header.
package diff
