package chunker

import (
	"regexp"
	"strings"
)

// constructPattern pairs a construct kind with the line-anchored pattern that
// detects its declaration. Group 1 always captures the leading whitespace so
// the detector can derive the declaration's base indentation.
type constructPattern struct {
	kind    string
	pattern *regexp.Regexp
}

// languagePatterns describes boundary detection for one language: an ordered
// list of construct patterns and the block-delimiter convention.
type languagePatterns struct {
	// braceDelimited selects brace balancing for block-end resolution;
	// otherwise block extent is derived from indentation.
	braceDelimited bool
	constructs     []constructPattern
}

// languageRegistry maps a lower-cased language tag to its construct patterns.
// Pattern order is significant: the first match wins for a line, so the most
// specific construct (method) is listed before the more general ones
// (function, class). Languages without an entry get no semantic chunking and
// route straight to the fixed-size fallback.
var languageRegistry = map[string]languagePatterns{
	"python": {
		braceDelimited: false,
		constructs: []constructPattern{
			{"method", regexp.MustCompile(`^(\s+)(def\s+\w+.*?:)`)},
			{"function", regexp.MustCompile(`^(\s*)(def\s+\w+.*?:)`)},
			{"class", regexp.MustCompile(`^(\s*)(class\s+\w+.*?:)`)},
		},
	},
	"javascript": {
		braceDelimited: true,
		constructs: []constructPattern{
			{"method", regexp.MustCompile(`^(\s+)(\w+\s*\([^)]*\)\s*\{)`)},
			{"function", regexp.MustCompile(`^(\s*)(function\s+\w+\s*\([^)]*\)\s*\{|const\s+\w+\s*=\s*\([^)]*\)\s*=>\s*\{|let\s+\w+\s*=\s*\([^)]*\)\s*=>\s*\{|var\s+\w+\s*=\s*\([^)]*\)\s*=>\s*\{)`)},
			{"class", regexp.MustCompile(`^(\s*)(class\s+\w+\s*(?:extends\s+\w+)?\s*\{)`)},
		},
	},
	"typescript": {
		braceDelimited: true,
		constructs: []constructPattern{
			{"method", regexp.MustCompile(`^(\s+)(\w+\s*\([^)]*\)\s*:\s*\w+\s*\{)`)},
			{"function", regexp.MustCompile(`^(\s*)(function\s+\w+\s*\([^)]*\)\s*:\s*\w+\s*\{|const\s+\w+\s*=\s*\([^)]*\)\s*:\s*\w+\s*=>\s*\{)`)},
			{"class", regexp.MustCompile(`^(\s*)(class\s+\w+\s*(?:extends\s+\w+)?\s*\{|interface\s+\w+\s*\{)`)},
		},
	},
	"java": {
		braceDelimited: true,
		constructs: []constructPattern{
			{"method", regexp.MustCompile(`^(\s+)((?:public|private|protected|static|\s)+\w+\s+\w+\s*\([^)]*\)\s*\{)`)},
			{"function", regexp.MustCompile(`^(\s*)((?:public|private|protected|static|\s)+\w+\s+\w+\s*\([^)]*\)\s*\{)`)},
			{"class", regexp.MustCompile(`^(\s*)((?:public|private|protected|\s)*class\s+\w+\s*(?:extends\s+\w+)?\s*(?:implements\s+[\w,\s]+)?\s*\{)`)},
		},
	},
	"cpp": {
		braceDelimited: true,
		constructs: []constructPattern{
			{"method", regexp.MustCompile(`^(\s+)(\w+\s+\w+\s*\([^)]*\)\s*\{)`)},
			{"function", regexp.MustCompile(`^(\s*)(\w+\s+\w+\s*\([^)]*\)\s*\{)`)},
			{"class", regexp.MustCompile(`^(\s*)(class\s+\w+\s*(?::\s*(?:public|private|protected)\s+\w+)?\s*\{)`)},
		},
	},
	"c": {
		braceDelimited: true,
		constructs: []constructPattern{
			{"function", regexp.MustCompile(`^(\s*)(\w+\s+\w+\s*\([^)]*\)\s*\{)`)},
		},
	},
	"csharp": {
		braceDelimited: true,
		constructs: []constructPattern{
			{"method", regexp.MustCompile(`^(\s+)((?:public|private|protected|static|\s)+\w+\s+\w+\s*\([^)]*\)\s*\{)`)},
			{"function", regexp.MustCompile(`^(\s*)((?:public|private|protected|static|\s)+\w+\s+\w+\s*\([^)]*\)\s*\{)`)},
			{"class", regexp.MustCompile(`^(\s*)((?:public|private|protected|\s)*class\s+\w+\s*(?::\s*\w+)?\s*\{)`)},
		},
	},
	"go": {
		braceDelimited: true,
		constructs: []constructPattern{
			{"method", regexp.MustCompile(`^(\s*)(func\s+\(\w+\s+\*?\w+\)\s+\w+\s*\([^)]*\)\s*(?:\([^)]*\))?\s*\{)`)},
			{"function", regexp.MustCompile(`^(\s*)(func\s+(?:\(\w+\s+\*?\w+\)\s+)?\w+\s*\([^)]*\)\s*(?:\([^)]*\))?\s*\{)`)},
			{"struct", regexp.MustCompile(`^(\s*)(type\s+\w+\s+struct\s*\{)`)},
		},
	},
	"rust": {
		braceDelimited: true,
		constructs: []constructPattern{
			{"function", regexp.MustCompile(`^(\s*)((?:pub\s+)?fn\s+\w+\s*\([^)]*\)\s*(?:->\s*\w+)?\s*\{)`)},
			{"struct", regexp.MustCompile(`^(\s*)((?:pub\s+)?struct\s+\w+\s*\{)`)},
			{"impl", regexp.MustCompile(`^(\s*)(impl\s+(?:<[^>]*>\s+)?\w+\s*(?:for\s+\w+)?\s*\{)`)},
		},
	},
	"ruby": {
		braceDelimited: false,
		constructs: []constructPattern{
			{"function", regexp.MustCompile(`^(\s*)(def\s+\w+\s*(?:\([^)]*\))?)`)},
			{"class", regexp.MustCompile(`^(\s*)(class\s+\w+\s*(?:<\s*\w+)?)`)},
			{"module", regexp.MustCompile(`^(\s*)(module\s+\w+)`)},
		},
	},
	"php": {
		braceDelimited: true,
		constructs: []constructPattern{
			{"method", regexp.MustCompile(`^(\s+)((?:public|private|protected|static|\s)*function\s+\w+\s*\([^)]*\)\s*\{)`)},
			{"function", regexp.MustCompile(`^(\s*)((?:public|private|protected|\s)*function\s+\w+\s*\([^)]*\)\s*\{)`)},
			{"class", regexp.MustCompile(`^(\s*)((?:abstract\s+|final\s+)?class\s+\w+\s*(?:extends\s+\w+)?\s*(?:implements\s+[\w,\s]+)?\s*\{)`)},
		},
	},
}

// SupportedLanguages returns the language tags with registered construct
// patterns, in no particular order
func SupportedLanguages() []string {
	langs := make([]string, 0, len(languageRegistry))
	for lang := range languageRegistry {
		langs = append(langs, lang)
	}
	return langs
}

// IsSupported reports whether semantic boundary detection is available for
// the given language tag. Matching is case-insensitive.
func IsSupported(language string) bool {
	_, ok := languageRegistry[strings.ToLower(language)]
	return ok
}
