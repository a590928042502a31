package ingest

import (
	"path/filepath"
	"strings"
)

// languageByExtension maps a lower-cased file extension to the language tag
// used throughout the index. Extensions absent from this map are not
// ingested at all.
var languageByExtension = map[string]string{
	".py":    "python",
	".js":    "javascript",
	".jsx":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".java":  "java",
	".cpp":   "cpp",
	".c":     "c",
	".cs":    "csharp",
	".go":    "go",
	".rs":    "rust",
	".rb":    "ruby",
	".php":   "php",
	".kt":    "kotlin",
	".swift": "swift",
	".scala": "scala",
	".clj":   "clojure",
	".hs":    "haskell",
	".ml":    "ocaml",
	".fs":    "fsharp",
}

// DetectLanguage returns the language tag for a file path, or "unknown" for
// an unmapped extension
func DetectLanguage(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if lang, ok := languageByExtension[ext]; ok {
		return lang
	}
	return "unknown"
}

// IsSupportedFile reports whether the file's extension is one the ingester
// accepts
func IsSupportedFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	_, ok := languageByExtension[ext]
	return ok
}

// SupportedExtensions returns the accepted file extensions, dot included
func SupportedExtensions() []string {
	exts := make([]string, 0, len(languageByExtension))
	for ext := range languageByExtension {
		exts = append(exts, ext)
	}
	return exts
}
