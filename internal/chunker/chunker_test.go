package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/repoctx-mcp/pkg/types"
)

func TestNew(t *testing.T) {
	c := New()
	assert.NotNil(t, c)
}

func TestOverlapSize(t *testing.T) {
	// 750 * 0.25 truncates to 187
	assert.Equal(t, 187, overlapSize())
	assert.Less(t, overlapSize(), MinChunkSize)
}

// rebuildFromParts concatenates split chunks after stripping each part's
// duplicated overlap prefix
func rebuildFromParts(chunks []*types.Chunk) string {
	var sb strings.Builder
	for i, ch := range chunks {
		if i == 0 {
			sb.WriteString(ch.Content)
			continue
		}

		rebuilt := sb.String()
		limit := overlapSize()
		if limit > len(ch.Content) {
			limit = len(ch.Content)
		}
		if limit > len(rebuilt) {
			limit = len(rebuilt)
		}

		strip := 0
		for k := limit; k > 0; k-- {
			if strings.HasSuffix(rebuilt, ch.Content[:k]) {
				strip = k
				break
			}
		}
		sb.WriteString(ch.Content[strip:])
	}
	return sb.String()
}

func sourceFile(path, content, language string) *types.SourceFile {
	return &types.SourceFile{
		FilePath:  path,
		Content:   content,
		Language:  language,
		SizeBytes: int64(len(content)),
	}
}

func TestChunk_PythonFunctions(t *testing.T) {
	content := `def compute_total(items):
    total = 0
    for item in items:
        total += item.price
    return total


def apply_discount(total, rate):
    discounted = total * (1 - rate)
    return round(discounted, 2)`

	c := New()
	chunks := c.Chunk(sourceFile("app/billing.py", content, "python"))

	require.Len(t, chunks, 2)

	first := chunks[0]
	assert.Equal(t, "function", first.ChunkType)
	assert.Equal(t, 1, first.StartLine)
	assert.Contains(t, first.Content, "compute_total")
	assert.Contains(t, first.Content, "return total")
	assert.Equal(t, types.MethodSemantic, first.Metadata[types.MetaChunkingMethod])

	second := chunks[1]
	assert.Equal(t, "function", second.ChunkType)
	assert.Equal(t, 8, second.StartLine)
	assert.Equal(t, 10, second.EndLine)
	assert.Contains(t, second.Content, "apply_discount")
	assert.NotContains(t, second.Content, "compute_total")
}

func TestChunk_GoConstructs(t *testing.T) {
	content := `type Server struct {
	addr string
	port int
}

func (s *Server) Start() {
	s.listen(s.addr, s.port)
}

func helper(x int) (int, error) {
	return x * 2, nil
}`

	c := New()
	chunks := c.Chunk(sourceFile("internal/server.go", content, "go"))

	require.Len(t, chunks, 3)

	assert.Equal(t, "struct", chunks[0].ChunkType)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 4, chunks[0].EndLine)

	assert.Equal(t, "method", chunks[1].ChunkType)
	assert.Equal(t, 6, chunks[1].StartLine)
	assert.Equal(t, 8, chunks[1].EndLine)
	assert.Contains(t, chunks[1].Content, "Start")

	assert.Equal(t, "function", chunks[2].ChunkType)
	assert.Equal(t, 10, chunks[2].StartLine)
	assert.Equal(t, 12, chunks[2].EndLine)
}

func TestChunk_OversizedBoundaryIsSplit(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("func bigFunction() {\n")
	for i := 0; i < 70; i++ {
		fmt.Fprintf(&sb, "\tvalue%d := compute(%d)\n", i, i)
	}
	sb.WriteString("}")
	content := sb.String()
	require.Greater(t, len(content), MaxChunkSize)

	c := New()
	chunks := c.Chunk(sourceFile("internal/big.go", content, "go"))

	require.GreaterOrEqual(t, len(chunks), 2)
	for i, ch := range chunks {
		assert.Equal(t, fmt.Sprintf("function_part_%d", i), ch.ChunkType)
		assert.Equal(t, types.MethodSemanticSplit, ch.Metadata[types.MetaChunkingMethod])
		assert.Equal(t, "function", ch.Metadata[types.MetaParentChunkType])
		assert.Equal(t, i, ch.Metadata[types.MetaPartNumber])
		assert.LessOrEqual(t, len(ch.Content), TargetChunkSize)
	}

	// Consecutive parts share an overlap region
	for i := 1; i < len(chunks); i++ {
		assert.LessOrEqual(t, chunks[i].StartLine, chunks[i-1].EndLine)
	}

	// Stripping the duplicated overlap from each part rebuilds the source
	// exactly: splitting loses no content
	assert.Equal(t, content, rebuildFromParts(chunks))
}

func TestChunk_EmptyFile(t *testing.T) {
	c := New()
	chunks := c.Chunk(sourceFile("empty.py", "", "python"))

	require.NotNil(t, chunks)
	assert.Empty(t, chunks)
}

func TestChunk_UnsupportedLanguageFallsBack(t *testing.T) {
	content := strings.Repeat("MOVE TOTAL-SALES TO REPORT-LINE.\n", 50)

	c := New()
	chunks := c.Chunk(sourceFile("legacy/report.cbl", content, "cobol"))

	require.NotEmpty(t, chunks)
	for i, ch := range chunks {
		assert.Equal(t, types.ChunkFixedSize, ch.ChunkType)
		assert.Equal(t, types.MethodFixedSize, ch.Metadata[types.MetaChunkingMethod])
		assert.Equal(t, i, ch.Metadata[types.MetaChunkNumber])
		assert.Equal(t, overlapSize(), ch.Metadata[types.MetaOverlapSize])
	}
}

func TestChunk_SmallFileSingleFixedChunk(t *testing.T) {
	content := "PRINT 'HELLO'\nGOTO START\n"

	c := New()
	chunks := c.Chunk(sourceFile("tiny.bas", content, "basic"))

	require.Len(t, chunks, 1)
	assert.Equal(t, types.ChunkFixedSize, chunks[0].ChunkType)
	assert.Equal(t, content, chunks[0].Content)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 2, chunks[0].EndLine)
}

func TestChunk_TinyBoundaryDropped(t *testing.T) {
	content := `def a():
    pass


def compute_totals(values):
    total = 0
    for value in values:
        total = total + value * 3
    return total`

	c := New()
	chunks := c.Chunk(sourceFile("app/calc.py", content, "python"))

	require.Len(t, chunks, 1)
	assert.Equal(t, 5, chunks[0].StartLine)
	assert.Contains(t, chunks[0].Content, "compute_totals")
}

func TestChunk_LowCoverageFallsBack(t *testing.T) {
	// Mostly module-level statements with one small function: boundary
	// detection succeeds but covers too little of the file to trust.
	var sb strings.Builder
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&sb, "CONSTANT_%d = %d * SCALE_FACTOR\n", i, i)
	}
	sb.WriteString("\ndef tiny(x):\n    return x + 1")
	content := sb.String()

	c := New()
	chunks := c.Chunk(sourceFile("app/constants.py", content, "python"))

	require.NotEmpty(t, chunks)
	for _, ch := range chunks {
		assert.Equal(t, types.ChunkFixedSize, ch.ChunkType)
	}
}

func TestChunk_Deterministic(t *testing.T) {
	content := `class Inventory:
    def __init__(self):
        self.items = {}

    def add(self, name, count):
        self.items[name] = self.items.get(name, 0) + count

    def remove(self, name, count):
        self.items[name] = max(0, self.items.get(name, 0) - count)`

	c := New()
	file := sourceFile("app/inventory.py", content, "python")

	first := c.Chunk(file)
	second := c.Chunk(file)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Content, second[i].Content)
		assert.Equal(t, first[i].StartLine, second[i].StartLine)
		assert.Equal(t, first[i].EndLine, second[i].EndLine)
		assert.Equal(t, first[i].ChunkType, second[i].ChunkType)
		// IDs are freshly generated each run
		assert.NotEqual(t, first[i].ID, second[i].ID)
	}
}

func TestChunk_AllChunksValid(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		language string
	}{
		{
			name: "python class with methods",
			content: `class Cache:
    def get(self, key):
        return self.store.get(key)

    def put(self, key, value):
        self.store[key] = value
        self.evict_if_needed()`,
			language: "python",
		},
		{
			name: "javascript functions",
			content: `function loadConfig(path) {
	const raw = readFileSync(path);
	return JSON.parse(raw);
}

const saveConfig = (path, cfg) => {
	writeFileSync(path, JSON.stringify(cfg));
}`,
			language: "javascript",
		},
		{
			name:     "plain text fallback",
			content:  strings.Repeat("the quick brown fox jumps over the lazy dog\n", 40),
			language: "text",
		},
	}

	c := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := c.Chunk(sourceFile("f.src", tt.content, tt.language))

			require.NotEmpty(t, chunks)
			for _, ch := range chunks {
				assert.NoError(t, ch.Validate())
				assert.GreaterOrEqual(t, ch.EndLine, ch.StartLine)
				assert.NotEmpty(t, ch.Content)
				assert.Equal(t, "f.src", ch.FilePath)
				assert.Equal(t, tt.language, ch.Language)
			}
		})
	}
}

func TestChunk_ClassWithNestedMethodsMerged(t *testing.T) {
	content := `class Router:
    def __init__(self, routes):
        self.routes = dict(routes)

    def resolve(self, path):
        handler = self.routes.get(path)
        if handler is None:
            raise KeyError(path)
        return handler`

	c := New()
	chunks := c.Chunk(sourceFile("app/router.py", content, "python"))

	// Methods are nested inside the class boundary and merged away
	require.Len(t, chunks, 1)
	assert.Equal(t, "class", chunks[0].ChunkType)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 9, chunks[0].EndLine)
	assert.Contains(t, chunks[0].Content, "resolve")
}

func TestIsSupported(t *testing.T) {
	assert.True(t, IsSupported("python"))
	assert.True(t, IsSupported("Go"))
	assert.True(t, IsSupported("typescript"))
	assert.False(t, IsSupported("cobol"))
	assert.False(t, IsSupported(""))
}

func TestSupportedLanguages(t *testing.T) {
	langs := SupportedLanguages()
	assert.Len(t, langs, len(languageRegistry))
	assert.Contains(t, langs, "python")
	assert.Contains(t, langs, "rust")
}
