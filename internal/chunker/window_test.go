package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlideWindows_ContentShorterThanTarget(t *testing.T) {
	windows := slideWindows("short content", 100, 25, 1)

	require.Len(t, windows, 1)
	assert.Equal(t, "short content", windows[0].content)
	assert.Equal(t, 1, windows[0].startLine)
	assert.Equal(t, 1, windows[0].endLine)
	assert.Equal(t, 0, windows[0].number)
}

func TestSlideWindows_OverlapAndNumbering(t *testing.T) {
	content := strings.Repeat("abcdefghij", 30) // 300 chars, no newlines
	windows := slideWindows(content, 100, 25, 1)

	require.GreaterOrEqual(t, len(windows), 3)
	for i, w := range windows {
		assert.Equal(t, i, w.number)
		assert.LessOrEqual(t, len(w.content), 100)
	}

	// Each window after the first repeats the previous window's tail
	for i := 1; i < len(windows); i++ {
		prev := windows[i-1].content
		tail := prev[len(prev)-25:]
		assert.True(t, strings.HasPrefix(windows[i].content, tail))
	}
}

func TestSlideWindows_NoOverlapReconstructsContent(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 50; i++ {
		sb.WriteString("line of source text\n")
	}
	content := sb.String()

	windows := slideWindows(content, 128, 0, 1)

	var joined strings.Builder
	for _, w := range windows {
		joined.WriteString(w.content)
	}
	assert.Equal(t, content, joined.String())
}

func TestSlideWindows_TerminatesWhenOverlapExceedsTarget(t *testing.T) {
	content := strings.Repeat("x", 500)

	// Overlap larger than the window size must not stall the scan
	windows := slideWindows(content, 100, 150, 1)

	require.NotEmpty(t, windows)
	assert.Len(t, windows, 5)
	for _, w := range windows {
		assert.Len(t, w.content, 100)
	}
}

func TestSlideWindows_SnapsToNewline(t *testing.T) {
	// Lines of 10 chars; a 95-char window should end on a line break
	// rather than mid-line.
	content := strings.Repeat("abcdefghi\n", 20)

	windows := slideWindows(content, 95, 0, 1)

	for i, w := range windows {
		if i < len(windows)-1 {
			assert.True(t, strings.HasSuffix(w.content, "\n"),
				"window %d should end on a line break", i)
		}
	}
}

func TestSlideWindows_LineRanges(t *testing.T) {
	content := "alpha\nbeta\ngamma\ndelta\nepsilon\n"

	windows := slideWindows(content, 12, 0, 1)

	require.NotEmpty(t, windows)
	assert.Equal(t, 1, windows[0].startLine)

	last := windows[len(windows)-1]
	assert.Equal(t, 5, last.endLine)

	for _, w := range windows {
		assert.GreaterOrEqual(t, w.endLine, w.startLine)
	}
}

func TestSlideWindows_BaseLineOffset(t *testing.T) {
	content := "first\nsecond\nthird"

	windows := slideWindows(content, 100, 0, 42)

	require.Len(t, windows, 1)
	assert.Equal(t, 42, windows[0].startLine)
	assert.Equal(t, 44, windows[0].endLine)
}
