package chunker

import "strings"

// window is one slice of a sliding-window split
type window struct {
	content   string
	startLine int // 1-indexed line in the source file
	endLine   int
	number    int // Sequential window index, starting at 0
}

// slideWindows splits content into overlapping windows of at most target
// characters. baseLine is the 1-indexed source line on which content begins;
// each window's line range is derived by counting newlines before and within
// the window.
//
// A window's end is snapped back to the last newline inside it when that
// newline lies past the window's midpoint, so lines are cut mid-token only
// when a single line dominates the window. The next window starts overlap
// characters before the previous end; when that would not advance the
// position, it jumps to the previous end instead, which guarantees strictly
// increasing window starts and therefore termination.
func slideWindows(content string, target, overlap, baseLine int) []window {
	var windows []window

	pos := 0
	num := 0
	for pos < len(content) {
		end := pos + target
		if end > len(content) {
			end = len(content)
		}

		piece := content[pos:end]
		if end < len(content) {
			if nl := strings.LastIndexByte(piece, '\n'); nl > len(piece)/2 {
				end = pos + nl + 1
				piece = content[pos:end]
			}
		}

		// A trailing newline belongs to the window's last line, not to a
		// line of its own
		lineSpan := strings.Count(strings.TrimSuffix(piece, "\n"), "\n")

		startLine := baseLine + strings.Count(content[:pos], "\n")
		windows = append(windows, window{
			content:   piece,
			startLine: startLine,
			endLine:   startLine + lineSpan,
			number:    num,
		})

		next := end - overlap
		if next <= pos {
			pos = end
		} else {
			pos = next
		}

		if pos >= len(content) {
			break
		}
		num++
	}

	return windows
}
