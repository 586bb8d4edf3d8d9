// Package normalize prepares raw source text for the line classifier and
// detects comment-only lines. Everything here is total and deterministic:
// malformed input degrades to a best-effort partial strip, never an error.
package normalize

import (
	"regexp"
	"strings"
)

// All patterns are RE2, so matching never backtracks regardless of input.
var (
	blockCommentPat = regexp.MustCompile(`(?s)/\*.*?\*/`)
	lineCommentPat  = regexp.MustCompile(`//.*`)
	hashCommentPat  = regexp.MustCompile(`#.*`)
	whitespacePat   = regexp.MustCompile(`\s+`)

	doubleQuotedPat = regexp.MustCompile(`(?s)"(?:\\.|[^"\\])*"`)
	singleQuotedPat = regexp.MustCompile(`(?s)'(?:\\.|[^'\\])*'`)
)

// Normalize strips block comments, line comments and hash comments, collapses
// whitespace runs to a single space and trims the result. It is applied to
// whole files and to window snippets before classifier scoring.
//
// Block comments are removed non-greedily; a block comment spanning lines of
// a per-line input is a known limitation handled by CommentState instead.
func Normalize(text string) string {
	text = blockCommentPat.ReplaceAllString(text, "")
	text = lineCommentPat.ReplaceAllString(text, "")
	text = hashCommentPat.ReplaceAllString(text, "")
	text = whitespacePat.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// NormalizeLine is the per-line variant used to build classifier input. On top
// of Normalize it blanks string-literal contents ("abc" becomes "", 'abc'
// becomes ''), so the model learns code shape rather than literal payloads.
func NormalizeLine(line string) string {
	line = blockCommentPat.ReplaceAllString(line, "")
	line = lineCommentPat.ReplaceAllString(line, "")
	line = hashCommentPat.ReplaceAllString(line, "")
	line = doubleQuotedPat.ReplaceAllString(line, `""`)
	line = singleQuotedPat.ReplaceAllString(line, `''`)
	line = whitespacePat.ReplaceAllString(line, " ")
	return strings.TrimSpace(line)
}

// CommentState is the two-state machine (in block / not in block) threaded
// across the lines of one file so comment-only lines are classified correctly
// even when a /* ... */ block spans multiple source lines.
//
// The zero value is ready to use and means "not inside a block comment".
type CommentState struct {
	inBlock bool
}

// InBlock reports whether the state machine is currently inside a block
// comment.
func (s *CommentState) InBlock() bool { return s.inBlock }

// IsCommentOnly reports whether line contains nothing but comment text, and
// advances the block-comment state. A line that closes a block comment and
// then opens another (or trails into a line comment) still counts as
// comment-only; a line with code after the closing */ does not.
func (s *CommentState) IsCommentOnly(line string) bool {
	rest := strings.TrimSpace(line)

	for {
		if s.inBlock {
			end := strings.Index(rest, "*/")
			if end == -1 {
				return true
			}
			s.inBlock = false
			rest = strings.TrimSpace(rest[end+2:])
			if rest == "" {
				return true
			}
			continue
		}

		switch {
		case strings.HasPrefix(rest, "//"), strings.HasPrefix(rest, "#"):
			return true
		case strings.HasPrefix(rest, "/*"):
			s.inBlock = true
			rest = rest[2:]
			continue
		default:
			// Anything else, including a blank line, is not a comment.
			return false
		}
	}
}
