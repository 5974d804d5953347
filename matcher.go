package sheetsync

// FindExistingRow scans rows in order for the first one whose cell at col equals
// identity. Rows too short to have the column are skipped. Duplicate identities
// are not detected; the first match wins. An empty identity never matches.
func FindExistingRow(identity string, col int, rows [][]string) (int, bool) {
	if identity == "" || col < 0 {
		return -1, false
	}

	for i, row := range rows {
		if col >= len(row) {
			continue
		}
		if row[col] == identity {
			return i, true
		}
	}

	return -1, false
}

// contiguousRuns splits ascending indices into maximal runs of consecutive values,
// returned as [first, last] pairs. [5 6 7 10 11] -> [[5 7] [10 11]].
func contiguousRuns(indices []int) [][2]int {
	var runs [][2]int
	for i, ix := range indices {
		if i > 0 && ix == indices[i-1]+1 {
			runs[len(runs)-1][1] = ix
			continue
		}
		runs = append(runs, [2]int{ix, ix})
	}
	return runs
}
