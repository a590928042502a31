package chunker

import "sort"

// boundary is a detected candidate code segment. Line numbers are 1-indexed
// and inclusive. Boundaries exist only within a single chunking call and are
// never returned to callers.
type boundary struct {
	startLine int
	endLine   int
	kind      string
}

// detectBoundaries scans lines against the language's construct patterns.
// Patterns are tested in registry order and the first matching kind wins for
// a line, so no line produces more than one boundary.
func detectBoundaries(lines []string, lang languagePatterns) []boundary {
	var boundaries []boundary

	for i, line := range lines {
		for _, cp := range lang.constructs {
			m := cp.pattern.FindStringSubmatch(line)
			if m == nil {
				continue
			}

			declLine := i + 1
			end := resolveBlockEnd(lines, declLine, len(m[1]), lang.braceDelimited)
			boundaries = append(boundaries, boundary{
				startLine: declLine,
				endLine:   end,
				kind:      cp.kind,
			})
			break
		}
	}

	return boundaries
}

// mergeBoundaries resolves overlapping and nested candidates into a strictly
// ascending, non-overlapping sequence. Candidates are compared against the
// last kept interval: a candidate starting past its end is kept as a new
// interval, a candidate extending past its end replaces it (the longer
// detection is preferred over a truncated nested match), and a fully
// contained candidate is discarded as a duplicate or nested detection.
func mergeBoundaries(boundaries []boundary) []boundary {
	if len(boundaries) == 0 {
		return nil
	}

	sorted := make([]boundary, len(boundaries))
	copy(sorted, boundaries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].startLine < sorted[j].startLine
	})

	merged := []boundary{sorted[0]}
	for _, cur := range sorted[1:] {
		last := &merged[len(merged)-1]

		switch {
		case cur.startLine > last.endLine:
			merged = append(merged, cur)
		case cur.endLine > last.endLine:
			*last = cur
		}
		// Otherwise cur is contained within last: drop it
	}

	return merged
}
