package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectBoundaries_FirstMatchWins(t *testing.T) {
	// An indented def matches both the method and function patterns; only
	// the method boundary may be produced.
	source := `class C:
    def handler(self):
        return 1`

	lines := strings.Split(source, "\n")
	boundaries := detectBoundaries(lines, languageRegistry["python"])

	require.Len(t, boundaries, 2)
	assert.Equal(t, "class", boundaries[0].kind)
	assert.Equal(t, "method", boundaries[1].kind)
	assert.Equal(t, 2, boundaries[1].startLine)
}

func TestDetectBoundaries_NoMatches(t *testing.T) {
	lines := []string{"x = 1", "y = 2", "print(x + y)"}
	boundaries := detectBoundaries(lines, languageRegistry["python"])
	assert.Empty(t, boundaries)
}

func TestMergeBoundaries(t *testing.T) {
	tests := []struct {
		name  string
		input []boundary
		want  []boundary
	}{
		{
			name:  "empty input",
			input: nil,
			want:  nil,
		},
		{
			name:  "single boundary",
			input: []boundary{{1, 5, "function"}},
			want:  []boundary{{1, 5, "function"}},
		},
		{
			name: "disjoint boundaries kept",
			input: []boundary{
				{1, 5, "function"},
				{7, 12, "function"},
			},
			want: []boundary{
				{1, 5, "function"},
				{7, 12, "function"},
			},
		},
		{
			name: "contained boundary discarded",
			input: []boundary{
				{1, 10, "class"},
				{2, 4, "method"},
				{6, 9, "method"},
			},
			want: []boundary{{1, 10, "class"}},
		},
		{
			name: "longer overlap replaces",
			input: []boundary{
				{1, 5, "function"},
				{3, 12, "class"},
			},
			want: []boundary{{3, 12, "class"}},
		},
		{
			name: "adjacent boundaries touch without merging",
			input: []boundary{
				{1, 5, "function"},
				{6, 9, "function"},
			},
			want: []boundary{
				{1, 5, "function"},
				{6, 9, "function"},
			},
		},
		{
			name: "equal end keeps first",
			input: []boundary{
				{1, 8, "class"},
				{3, 8, "method"},
			},
			want: []boundary{{1, 8, "class"}},
		},
		{
			name: "unsorted input is sorted first",
			input: []boundary{
				{10, 14, "function"},
				{1, 4, "function"},
			},
			want: []boundary{
				{1, 4, "function"},
				{10, 14, "function"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mergeBoundaries(tt.input)
			assert.Equal(t, tt.want, got)
		})
	}
}
