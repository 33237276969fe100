// Package statefile implements the durable review-state store as a single
// JSON file rewritten atomically on every update.
//
// The whole-store rewrite is correct only under the single-writer,
// cooperative-scheduling model: exactly one controller touches the store at
// a time, so durability (write temp file, rename over the old one) is the
// only requirement, not locking.
package statefile

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bkyoung/prwatch/internal/store"
)

// Store is a file-backed store.StateStore.
type Store struct {
	path    string
	records map[store.Key]store.ReviewRecord
}

// Open loads the store from path. A missing or unparseable file initializes
// an empty store with a warning; startup never fails on bad state.
func Open(path string) *Store {
	s := &Store{
		path:    path,
		records: make(map[store.Key]store.ReviewRecord),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("warning: unreadable state file %s, starting empty: %v", path, err)
		}
		return s
	}

	var raw map[string]store.ReviewRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Printf("warning: corrupt state file %s, starting empty: %v", path, err)
		return s
	}

	for keyStr, record := range raw {
		key, err := store.ParseKey(keyStr)
		if err != nil {
			log.Printf("warning: dropping state entry with %v", err)
			continue
		}
		s.records[key] = record
	}

	return s
}

// Get returns a copy of the record for the key, if one exists.
func (s *Store) Get(key store.Key) (store.ReviewRecord, bool) {
	record, ok := s.records[key]
	if !ok {
		return store.ReviewRecord{}, false
	}
	return cloneRecord(record), true
}

// Set replaces the record for the key and persists the whole store.
// ReviewedAt never moves backwards: a record carrying an older timestamp
// than the one it replaces keeps the existing timestamp.
//
// On a persist failure the in-memory state keeps the update and the error
// is returned; callers log it and continue, and the next successful Set
// retries persistence of everything.
func (s *Store) Set(key store.Key, record store.ReviewRecord) error {
	if existing, ok := s.records[key]; ok && record.ReviewedAt.Before(existing.ReviewedAt) {
		record.ReviewedAt = existing.ReviewedAt
	}

	s.records[key] = cloneRecord(record)
	return s.persist()
}

// Keys lists every tracked pull request in stable order.
func (s *Store) Keys() []store.Key {
	keys := make([]store.Key, 0, len(s.records))
	for k := range s.records {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Repo != keys[j].Repo {
			return keys[i].Repo < keys[j].Repo
		}
		return keys[i].Number < keys[j].Number
	})
	return keys
}

// Sweep removes records whose ReviewedAt predates the retention window.
func (s *Store) Sweep(retention time.Duration) (int, error) {
	cutoff := time.Now().Add(-retention)

	removed := 0
	for key, record := range s.records {
		if record.ReviewedAt.Before(cutoff) {
			delete(s.records, key)
			removed++
		}
	}

	if removed == 0 {
		return 0, nil
	}
	return removed, s.persist()
}

// persist serializes every record and atomically replaces the state file,
// so a crash mid-write can never corrupt unrelated keys.
func (s *Store) persist() error {
	raw := make(map[string]store.ReviewRecord, len(s.records))
	for key, record := range s.records {
		raw[key.String()] = record
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp state file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace state file: %w", err)
	}

	return nil
}

func cloneRecord(r store.ReviewRecord) store.ReviewRecord {
	out := r
	out.Reviews = append([]store.RubricOutcome(nil), r.Reviews...)
	out.ProcessedCommentIDs = append([]int64(nil), r.ProcessedCommentIDs...)
	return out
}
