package diff

import "sort"

// Resolve maps a finding's (file, line) onto a diff position in cm.
//
// A line of 0 means a file-level finding; it resolves to the smallest valid
// position so the remark pins to the top of the rendered diff for that file.
// A line present in the diff resolves exactly. A line outside the changed
// region falls back to the nearest mapped line (agents reliably report the
// conceptual line but occasionally miscount across multi-hunk files); ties
// go to the lower line number. Returns nil when the file has no usable
// positions.
func Resolve(cm CoordinateMap, file string, line int) *int {
	fm, ok := cm[file]
	if !ok {
		return nil
	}

	if line == 0 {
		return smallestValidPosition(fm)
	}

	if pos, ok := fm.LineToPosition[line]; ok {
		return IntPtr(pos)
	}

	return nearestPosition(fm, line)
}

func smallestValidPosition(fm FileMap) *int {
	best := 0
	for pos := range fm.ValidPositions {
		if best == 0 || pos < best {
			best = pos
		}
	}
	if best == 0 {
		return nil
	}
	return IntPtr(best)
}

// nearestPosition scans mapped lines in ascending order so that on equal
// distance the lower line number wins.
func nearestPosition(fm FileMap, line int) *int {
	if len(fm.LineToPosition) == 0 {
		return nil
	}

	keys := make([]int, 0, len(fm.LineToPosition))
	for k := range fm.LineToPosition {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	bestKey := keys[0]
	bestDist := abs(line - bestKey)
	for _, k := range keys[1:] {
		if d := abs(line - k); d < bestDist {
			bestKey = k
			bestDist = d
		}
	}

	return IntPtr(fm.LineToPosition[bestKey])
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
