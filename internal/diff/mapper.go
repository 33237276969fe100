package diff

import (
	"strconv"
	"strings"
)

// FileMap holds the coordinate mapping for a single file in a diff.
type FileMap struct {
	// LineToPosition maps a post-change source line number to its 1-indexed
	// diff position. Deleted lines occupy a position but have no entry here.
	LineToPosition map[int]int

	// ValidPositions is the set of diff positions the review API will accept
	// for this file: every context, added, and deleted line in its hunks.
	ValidPositions map[int]bool
}

// CoordinateMap maps file paths to their coordinate maps for one diff.
type CoordinateMap map[string]FileMap

// Parse scans a raw multi-file unified diff and builds a CoordinateMap.
// It handles standard git diff output including file headers.
//
// The position counter resets to 0 at each "+++ b/<path>" header. Lines
// before the first file header are ignored, and a file whose section
// contains no hunks yields an empty FileMap (callers treat that as "no
// valid position", not an error).
func Parse(diffText string) CoordinateMap {
	result := CoordinateMap{}

	var current FileMap
	haveFile := false
	inHunk := false
	position := 0
	newLine := 0

	for _, line := range strings.Split(diffText, "\n") {
		// Skip empty lines (trailing split artifact)
		if line == "" {
			continue
		}

		// New file header opens a fresh section and resets the counter.
		if strings.HasPrefix(line, "+++ b/") {
			path := strings.TrimPrefix(line, "+++ b/")
			current = FileMap{
				LineToPosition: map[int]int{},
				ValidPositions: map[int]bool{},
			}
			result[path] = current
			haveFile = true
			inHunk = false
			position = 0
			continue
		}

		// "+++ /dev/null" (file deletion) has no post-change side to map.
		if strings.HasPrefix(line, "+++ ") {
			haveFile = false
			inHunk = false
			continue
		}

		// Skip remaining file headers and metadata
		if strings.HasPrefix(line, "diff ") ||
			strings.HasPrefix(line, "index ") ||
			strings.HasPrefix(line, "--- ") ||
			strings.HasPrefix(line, "Binary ") {
			continue
		}

		// Skip "\ No newline at end of file" markers
		if strings.HasPrefix(line, "\\ ") {
			continue
		}

		if strings.HasPrefix(line, "@@") {
			if !haveFile {
				continue
			}
			newLine = parseHunkNewStart(line)
			inHunk = true
			continue
		}

		// Content lines only count inside a hunk of a known file.
		if !haveFile || !inHunk {
			continue
		}

		position++
		current.ValidPositions[position] = true

		switch line[0] {
		case '-':
			// Deleted line: occupies a position but does not exist in the
			// new version, so the source line counter stands still.
		default:
			// Added and context lines advance the post-change line counter.
			current.LineToPosition[newLine] = position
			newLine++
		}
	}

	return result
}

// parseHunkNewStart extracts the new-side starting line from a hunk header
// like "@@ -10,7 +10,8 @@ optional context".
func parseHunkNewStart(line string) int {
	parts := strings.Split(line, "@@")
	if len(parts) < 2 {
		return 0
	}

	for _, field := range strings.Fields(strings.TrimSpace(parts[1])) {
		if strings.HasPrefix(field, "+") {
			start, _ := parseRange(strings.TrimPrefix(field, "+"))
			return start
		}
	}
	return 0
}

// parseRange parses "start,count" or "start" format.
func parseRange(s string) (start, count int) {
	if idx := strings.Index(s, ","); idx >= 0 {
		start, _ = strconv.Atoi(s[:idx])
		count, _ = strconv.Atoi(s[idx+1:])
	} else {
		start, _ = strconv.Atoi(s)
		count = 1
	}
	return start, count
}

// IntPtr returns a pointer to n (helper for optional positions).
func IntPtr(n int) *int {
	return &n
}
