// Package token implements the shell's word model: splitting raw input
// into words and logical lines while tracking quote and escape state.
package token

import (
	"strings"
	"unicode"
)

// quoteState tracks the tokenizer's position relative to quoting.
type quoteState int

const (
	stateNormal quoteState = iota
	stateSingle
	stateDouble
)

var keywords = map[string]bool{
	"if":    true,
	"then":  true,
	"else":  true,
	"fi":    true,
	"while": true,
	"do":    true,
	"done":  true,
	"for":   true,
	"in":    true,
	"case":  true,
	"esac":  true,
}

// IsKeyword reports whether w is a reserved word of the script language.
func IsKeyword(w string) bool {
	return keywords[w]
}

// subst tracks unquoted $(...) and backtick substitution spans so the
// splitters never break a word, line, or stage inside one. Parens are depth
// counted with no quote awareness inside the span and backticks do not
// nest, the same rules the expansion layer applies to the spans later.
type subst struct {
	depth    int
	backtick bool
}

// scan consumes s[i] in the unquoted state. When the byte belongs to a
// substitution span it returns the index of the last byte consumed and
// true; a "$(" opener is consumed as a unit.
func (sp *subst) scan(s string, i int) (last int, inSpan bool) {
	c := s[i]
	switch {
	case sp.backtick:
		if c == '`' {
			sp.backtick = false
		}
		return i, true
	case c == '`':
		sp.backtick = true
		return i, true
	case sp.depth > 0:
		switch c {
		case '(':
			sp.depth++
		case ')':
			sp.depth--
		}
		return i, true
	case c == '$' && i+1 < len(s) && s[i+1] == '(':
		sp.depth = 1
		return i + 1, true
	}
	return i, false
}

// SplitWords splits a command line into words.
//
// Rules:
//   - words are separated by unquoted spaces and tabs
//   - single quotes preserve their contents literally
//   - double quotes preserve contents but allow \" and \\ escapes
//   - a backslash outside quotes escapes the next character
//
// Quote characters themselves are removed. Redirection operators are not
// special here; they arrive as ordinary words when space separated.
// Substitution spans ($(...) and backticks) stay inside the current word,
// whitespace included, so the expander sees the whole span.
func SplitWords(line string) []string {
	var words []string
	var buf strings.Builder
	state := stateNormal
	var sub subst
	// inWord distinguishes the empty string produced by "" from no word.
	inWord := false

	flush := func() {
		if inWord {
			words = append(words, buf.String())
			buf.Reset()
			inWord = false
		}
	}

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch state {
		case stateNormal:
			if last, ok := sub.scan(line, i); ok {
				buf.WriteString(line[i : last+1])
				inWord = true
				i = last
				continue
			}
			switch {
			case c == ' ' || c == '\t':
				flush()
			case c == '\'':
				state = stateSingle
				inWord = true
			case c == '"':
				state = stateDouble
				inWord = true
			case c == '\\':
				if i+1 < len(line) {
					i++
					buf.WriteByte(line[i])
					inWord = true
				}
			default:
				buf.WriteByte(c)
				inWord = true
			}
		case stateSingle:
			if c == '\'' {
				state = stateNormal
			} else {
				buf.WriteByte(c)
			}
		case stateDouble:
			switch {
			case c == '"':
				state = stateNormal
			case c == '\\' && i+1 < len(line) && (line[i+1] == '"' || line[i+1] == '\\'):
				i++
				buf.WriteByte(line[i])
			default:
				buf.WriteByte(c)
			}
		}
	}
	flush()
	return words
}

// SplitLogicalLines splits script text into logical lines. Newlines always
// terminate a line; semicolons terminate a line only at the top level
// (outside quotes and substitution spans). Blank lines are dropped and
// surrounding whitespace is trimmed, so downstream construct matching can
// compare lines directly.
func SplitLogicalLines(text string) []string {
	var lines []string
	var buf strings.Builder
	state := stateNormal
	var sub subst

	flush := func() {
		line := strings.TrimSpace(buf.String())
		buf.Reset()
		if line != "" {
			lines = append(lines, line)
		}
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		switch state {
		case stateNormal:
			if last, ok := sub.scan(text, i); ok {
				buf.WriteString(text[i : last+1])
				i = last
				continue
			}
			switch c {
			case '\n', ';':
				flush()
				continue
			case '\'':
				state = stateSingle
			case '"':
				state = stateDouble
			case '\\':
				if i+1 < len(text) {
					buf.WriteByte(c)
					i++
					buf.WriteByte(text[i])
					continue
				}
			}
		case stateSingle:
			if c == '\'' {
				state = stateNormal
			}
		case stateDouble:
			if c == '"' {
				state = stateNormal
			}
		}
		buf.WriteByte(c)
	}
	flush()
	return lines
}

// FindLogicOp locates the first unquoted && or || in line, ignoring any
// inside substitution spans. It returns the operator's index and whether it
// is && (true) or || (false), or -1 when the line has no logic operator.
func FindLogicOp(line string) (idx int, isAnd bool) {
	state := stateNormal
	var sub subst
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch state {
		case stateNormal:
			if last, ok := sub.scan(line, i); ok {
				i = last
				continue
			}
			switch {
			case c == '\'':
				state = stateSingle
			case c == '"':
				state = stateDouble
			case c == '\\':
				i++
			case c == '&' && i+1 < len(line) && line[i+1] == '&':
				return i, true
			case c == '|' && i+1 < len(line) && line[i+1] == '|':
				return i, false
			}
		case stateSingle:
			if c == '\'' {
				state = stateNormal
			}
		case stateDouble:
			switch {
			case c == '"':
				state = stateNormal
			case c == '\\' && i+1 < len(line):
				i++
			}
		}
	}
	return -1, false
}

// SplitPipeline splits a line into pipeline stages on unquoted single '|'
// characters outside substitution spans. A line without pipes yields one
// stage.
func SplitPipeline(line string) []string {
	var stages []string
	var buf strings.Builder
	state := stateNormal
	var sub subst

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch state {
		case stateNormal:
			if last, ok := sub.scan(line, i); ok {
				buf.WriteString(line[i : last+1])
				i = last
				continue
			}
			switch {
			case c == '\'':
				state = stateSingle
			case c == '"':
				state = stateDouble
			case c == '\\':
				buf.WriteByte(c)
				if i+1 < len(line) {
					i++
					buf.WriteByte(line[i])
				}
				continue
			case c == '|':
				stages = append(stages, strings.TrimSpace(buf.String()))
				buf.Reset()
				continue
			}
		case stateSingle:
			if c == '\'' {
				state = stateNormal
			}
		case stateDouble:
			if c == '"' {
				state = stateNormal
			}
		}
		buf.WriteByte(c)
	}
	stages = append(stages, strings.TrimSpace(buf.String()))
	return stages
}

// StripBackground reports whether line ends in an unquoted '&' and returns
// the line with the marker and trailing whitespace removed.
func StripBackground(line string) (string, bool) {
	trimmed := strings.TrimRightFunc(line, unicode.IsSpace)
	if !strings.HasSuffix(trimmed, "&") || strings.HasSuffix(trimmed, "&&") {
		return line, false
	}
	trimmed = strings.TrimSuffix(trimmed, "&")
	return strings.TrimRightFunc(trimmed, unicode.IsSpace), true
}
