package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// GeneratePassID creates a unique, time-ordered pass ID.
// Format: pass-<timestamp>-<hash>
// Example: pass-20260829T143052Z-a3f9c2
func GeneratePassID(timestamp time.Time, repo string, number int) string {
	ts := timestamp.UTC().Format("20060102T150405Z")

	input := fmt.Sprintf("%s|%d|%d", repo, number, timestamp.UnixNano())
	hash := sha256.Sum256([]byte(input))
	shortHash := hex.EncodeToString(hash[:3])

	return fmt.Sprintf("pass-%s-%s", ts, shortHash)
}
