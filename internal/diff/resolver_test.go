package diff_test

import (
	"testing"

	"github.com/bkyoung/prwatch/internal/diff"
)

func fixtureMap() diff.CoordinateMap {
	return diff.CoordinateMap{
		"x.py": {
			LineToPosition: map[int]int{10: 3, 60: 9},
			ValidPositions: map[int]bool{2: true, 3: true, 4: true, 9: true},
		},
		"empty.py": {
			LineToPosition: map[int]int{},
			ValidPositions: map[int]bool{},
		},
	}
}

func TestResolve_ExactLine(t *testing.T) {
	pos := diff.Resolve(fixtureMap(), "x.py", 10)
	if pos == nil || *pos != 3 {
		t.Fatalf("expected position 3, got %v", pos)
	}
}

func TestResolve_NearestLineFallback(t *testing.T) {
	// Line 50 is distance 40 from key 10 and distance 10 from key 60.
	pos := diff.Resolve(fixtureMap(), "x.py", 50)
	if pos == nil || *pos != 9 {
		t.Fatalf("expected position 9 (nearest key 60), got %v", pos)
	}
}

func TestResolve_NearestTieBreaksLow(t *testing.T) {
	cm := diff.CoordinateMap{
		"t.go": {
			LineToPosition: map[int]int{10: 1, 20: 5},
			ValidPositions: map[int]bool{1: true, 5: true},
		},
	}

	// Line 15 is equidistant from 10 and 20; the lower line wins.
	pos := diff.Resolve(cm, "t.go", 15)
	if pos == nil || *pos != 1 {
		t.Fatalf("expected position 1 (key 10 on tie), got %v", pos)
	}
}

func TestResolve_FileLevelPinsToTop(t *testing.T) {
	pos := diff.Resolve(fixtureMap(), "x.py", 0)
	if pos == nil || *pos != 2 {
		t.Fatalf("expected smallest valid position 2, got %v", pos)
	}
}

func TestResolve_NoPositions(t *testing.T) {
	cm := fixtureMap()

	if pos := diff.Resolve(cm, "empty.py", 0); pos != nil {
		t.Errorf("file-level on empty map: expected nil, got %d", *pos)
	}
	if pos := diff.Resolve(cm, "empty.py", 12); pos != nil {
		t.Errorf("line on empty map: expected nil, got %d", *pos)
	}
	if pos := diff.Resolve(cm, "missing.py", 1); pos != nil {
		t.Errorf("unknown file: expected nil, got %d", *pos)
	}
}

func TestResolve_Deterministic(t *testing.T) {
	cm := fixtureMap()
	first := diff.Resolve(cm, "x.py", 50)
	second := diff.Resolve(cm, "x.py", 50)
	if first == nil || second == nil || *first != *second {
		t.Fatalf("expected identical results, got %v and %v", first, second)
	}
}
