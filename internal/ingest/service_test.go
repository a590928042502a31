package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/repoctx-mcp/pkg/types"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCollectFiles(t *testing.T) {
	root := t.TempDir()

	writeFile(t, root, "main.go", "package main\n\nfunc main() {}\n")
	writeFile(t, root, "app/util.py", "def helper():\n    return 1\n")
	writeFile(t, root, "README.md", "# readme\n")
	writeFile(t, root, "node_modules/lib.js", "module.exports = {}\n")

	svc := New()
	files, err := svc.CollectFiles(root)
	require.NoError(t, err)
	require.Len(t, files, 2)

	byPath := make(map[string]*types.SourceFile)
	for _, f := range files {
		byPath[f.FilePath] = f
	}

	goFile, ok := byPath["main.go"]
	require.True(t, ok)
	assert.Equal(t, "go", goFile.Language)
	assert.Contains(t, goFile.Content, "func main")
	assert.Equal(t, int64(len(goFile.Content)), goFile.SizeBytes)
	assert.False(t, goFile.LastModified.IsZero())

	pyFile, ok := byPath["app/util.py"]
	require.True(t, ok)
	assert.Equal(t, "python", pyFile.Language)
}

func TestCollectFiles_RespectsGitignore(t *testing.T) {
	root := t.TempDir()

	writeFile(t, root, ".gitignore", "generated.py\nscratch\n")
	writeFile(t, root, "kept.py", "def kept():\n    return True\n")
	writeFile(t, root, "generated.py", "def generated():\n    return False\n")
	writeFile(t, root, "scratch/tmp.py", "x = 1\n")

	svc := New()
	files, err := svc.CollectFiles(root)
	require.NoError(t, err)

	require.Len(t, files, 1)
	assert.Equal(t, "kept.py", files[0].FilePath)
}

func TestCollectFiles_SkipsOversizedFiles(t *testing.T) {
	root := t.TempDir()

	writeFile(t, root, "small.py", "x = 1\n")
	writeFile(t, root, "huge.py", strings.Repeat("# padding line\n", 1<<17))

	svc := New()
	files, err := svc.CollectFiles(root)
	require.NoError(t, err)

	require.Len(t, files, 1)
	assert.Equal(t, "small.py", files[0].FilePath)
}

func TestCollectFiles_EmptyDirectory(t *testing.T) {
	svc := New()
	files, err := svc.CollectFiles(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestIngestLocal_PathNotFound(t *testing.T) {
	svc := New()
	_, err := svc.IngestLocal(context.Background(), "/no/such/repository")
	assert.ErrorIs(t, err, ErrPathNotFound)
}

func TestIngestRepository_InvalidURL(t *testing.T) {
	svc := New()
	_, err := svc.IngestRepository(context.Background(), "https://gitlab.com/owner/repo")
	assert.ErrorIs(t, err, ErrInvalidRepoURL)
}

func TestValidateRepoURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid repository", "https://github.com/owner/repo", false},
		{"valid with .git suffix", "https://github.com/owner/repo.git", false},
		{"valid www host", "https://www.github.com/owner/repo", false},
		{"http scheme rejected", "http://github.com/owner/repo", true},
		{"wrong host", "https://gitlab.com/owner/repo", true},
		{"missing repository", "https://github.com/owner", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRepoURL(tt.url)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRepoURL)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRepoName(t *testing.T) {
	assert.Equal(t, "owner/repo", RepoName("https://github.com/owner/repo"))
	assert.Equal(t, "owner/repo", RepoName("https://github.com/owner/repo.git"))
	assert.Equal(t, "owner/repo", RepoName("https://github.com/owner/repo/tree/main"))
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"app/main.py", "python"},
		{"src/index.jsx", "javascript"},
		{"src/app.tsx", "typescript"},
		{"pkg/server.go", "go"},
		{"lib/core.rs", "rust"},
		{"Model.SCALA", "scala"},
		{"README.md", "unknown"},
		{"Makefile", "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectLanguage(tt.path), tt.path)
	}
}

func TestIsSupportedFile(t *testing.T) {
	assert.True(t, IsSupportedFile("a/b/c.go"))
	assert.True(t, IsSupportedFile("handler.PHP"))
	assert.False(t, IsSupportedFile("image.png"))
	assert.False(t, IsSupportedFile("noextension"))
}

func TestSanitizeUTF8(t *testing.T) {
	assert.Equal(t, "plain", sanitizeUTF8([]byte("plain")))
	assert.Equal(t, "ab", sanitizeUTF8([]byte{'a', 0xff, 'b'}))
}
