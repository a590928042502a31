package chunker

import "strings"

// resolveBlockEnd computes the 1-indexed, inclusive end line of a code block
// whose declaration sits at declLine (1-indexed). baseIndent is the
// declaration's leading-whitespace width in characters.
//
// Brace-delimited languages track the net {/} balance starting at the
// declaration line; the block ends on the line where the balance returns to
// zero after at least one opening brace has been seen. The opening brace may
// sit on a later line than the declaration.
//
// Indentation-delimited languages scan the lines after the declaration,
// skipping blanks and full-line comments; the block ends on the line before
// the first line whose indentation is less than or equal to baseIndent. The
// dedented line itself is always excluded.
//
// Both modes fail open: if no end is found before EOF, the block extends to
// the last line of the file.
func resolveBlockEnd(lines []string, declLine, baseIndent int, braceDelimited bool) int {
	if braceDelimited {
		return resolveBraceEnd(lines, declLine)
	}
	return resolveIndentEnd(lines, declLine, baseIndent)
}

// resolveBraceEnd finds the block end by balancing braces
func resolveBraceEnd(lines []string, declLine int) int {
	balance := 0
	opened := false

	for i := declLine - 1; i < len(lines); i++ {
		opens := strings.Count(lines[i], "{")
		closes := strings.Count(lines[i], "}")
		if opens > 0 {
			opened = true
		}
		balance += opens - closes

		if opened && balance <= 0 {
			return i + 1
		}
	}

	return len(lines)
}

// resolveIndentEnd finds the block end by indentation. The first non-blank,
// non-comment line at or below the base indentation is the block's first
// sibling; the block ends on the line before it.
func resolveIndentEnd(lines []string, declLine, baseIndent int) int {
	for i := declLine; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "//") {
			continue
		}

		if indentWidth(lines[i]) <= baseIndent {
			// lines[i] is 0-indexed, so i is the 1-indexed previous line
			return i
		}
	}

	return len(lines)
}

// indentWidth returns the number of leading whitespace characters
func indentWidth(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}
