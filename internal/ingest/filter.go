package ingest

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-enry/go-enry/v2"
	gitignore "github.com/sabhiram/go-gitignore"
)

// defaultIgnorePatterns excludes paths no code index benefits from, on top
// of whatever the repository's own .gitignore excludes
var defaultIgnorePatterns = []string{
	".git",
	"node_modules",
	"vendor",
	"dist",
	"build",
	"target",
	"__pycache__",
	".pytest_cache",
	".idea",
	".vscode",
	"*.min.js",
	"*.lock",
}

// ignoreFilter decides which repository paths to skip during extraction. It
// combines the repository's .gitignore with the built-in defaults.
type ignoreFilter struct {
	matcher *gitignore.GitIgnore
}

// newIgnoreFilter builds a filter for the repository rooted at repoPath. A
// missing or unreadable .gitignore leaves only the defaults active.
func newIgnoreFilter(repoPath string) *ignoreFilter {
	patterns := readIgnorePatterns(filepath.Join(repoPath, ".gitignore"))
	patterns = append(patterns, defaultIgnorePatterns...)

	return &ignoreFilter{matcher: gitignore.CompileIgnoreLines(patterns...)}
}

// shouldIgnore reports whether relPath is excluded from ingestion
func (f *ignoreFilter) shouldIgnore(relPath string) bool {
	return f.matcher.MatchesPath(relPath)
}

// readIgnorePatterns loads non-blank, non-comment lines from an ignore file
func readIgnorePatterns(path string) []string {
	fh, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer fh.Close()

	var patterns []string
	scanner := bufio.NewScanner(fh)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns
}

// isBinaryOrGenerated reports whether file content should be skipped because
// it is binary data or vendored/generated code
func isBinaryOrGenerated(relPath string, content []byte) bool {
	if enry.IsBinary(content) {
		return true
	}
	return enry.IsVendor(relPath) || enry.IsGenerated(relPath, content)
}
