// Package expand implements the word-expansion pipeline applied to every
// argument vector before execution: alias expansion, command substitution,
// arithmetic expansion, variable expansion, and glob expansion.
package expand

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"josephlewis.net/ash/core/alias"
	"josephlewis.net/ash/core/arith"
	"josephlewis.net/ash/core/token"
	"josephlewis.net/ash/core/vars"
)

// MaxAliasDepth bounds alias-to-alias chains so cycles terminate.
const MaxAliasDepth = 10

// CaptureFunc runs a script through a fresh interpreter instance and
// returns everything it wrote to stdout. Used for command substitution.
type CaptureFunc func(script string) (string, error)

// Expander applies the expansion pipeline against one session's state.
type Expander struct {
	Vars    *vars.Store
	Aliases *alias.Table
	Fs      afero.Fs
	Capture CaptureFunc
	Stderr  io.Writer
}

// ExpandAliases rewrites argv when its first word names an alias: the
// alias value is tokenized and spliced in front of the remaining original
// arguments. Chains re-expand up to MaxAliasDepth so definition cycles
// such as a='b', b='a' still terminate.
func (e *Expander) ExpandAliases(argv []string) []string {
	if e.Aliases == nil {
		return argv
	}
	for depth := 0; depth < MaxAliasDepth; depth++ {
		if len(argv) == 0 {
			return argv
		}
		value, ok := e.Aliases.Get(argv[0])
		if !ok {
			return argv
		}
		head := token.SplitWords(value)
		if len(head) == 0 {
			return argv[1:]
		}
		argv = append(head, argv[1:]...)
	}
	return argv
}

// IsAssignments reports whether every argument has the NAME=VALUE shape
// (an equals sign that is not the first character). Such lines are pure
// variable assignments and bypass execution.
func IsAssignments(argv []string) bool {
	if len(argv) == 0 {
		return false
	}
	for _, arg := range argv {
		eq := strings.IndexByte(arg, '=')
		if eq <= 0 {
			return false
		}
	}
	return true
}

// SplitAssignment splits NAME=VALUE at the first equals sign.
func SplitAssignment(arg string) (name, value string) {
	eq := strings.IndexByte(arg, '=')
	return arg[:eq], arg[eq+1:]
}

// ExpandWord runs command substitution, arithmetic expansion, and variable
// expansion over a single word, in that order. Glob expansion is excluded
// because it can change the argument count; see ExpandArgs.
func (e *Expander) ExpandWord(word string) string {
	word = e.expandCommandSubst(word)
	word = e.expandArith(word)
	word = e.expandVars(word)
	return word
}

// ExpandArgs expands every argument and then applies glob expansion,
// which may grow the vector when patterns match multiple paths.
func (e *Expander) ExpandArgs(argv []string) []string {
	out := make([]string, 0, len(argv))
	for _, arg := range argv {
		out = append(out, e.expandGlob(e.ExpandWord(arg))...)
	}
	return out
}

// expandCommandSubst replaces $(...) and `...` spans with the captured
// stdout of a recursive interpreter run, stripping exactly one trailing
// newline. $(...) nests via depth counting; backtick spans cannot nest.
// An unmatched opener is a syntax error that aborts this pass only.
func (e *Expander) expandCommandSubst(word string) string {
	if e.Capture == nil {
		return word
	}

	for {
		start := strings.Index(word, "$(")
		// $(( is arithmetic, not command substitution.
		if start != -1 && strings.HasPrefix(word[start:], "$((") {
			start = e.nextDollarParen(word, start)
		}
		if start == -1 {
			break
		}
		depth := 1
		end := start + 2
		for end < len(word) && depth > 0 {
			switch word[end] {
			case '(':
				depth++
			case ')':
				depth--
			}
			if depth > 0 {
				end++
			}
		}
		if depth != 0 {
			fmt.Fprintln(e.Stderr, "ash: syntax error: unmatched $(")
			return word
		}
		captured, err := e.capture(word[start+2 : end])
		if err != nil {
			fmt.Fprintf(e.Stderr, "ash: command substitution: %v\n", err)
			return word
		}
		word = word[:start] + captured + word[end+1:]
	}

	for {
		start := strings.IndexByte(word, '`')
		if start == -1 {
			break
		}
		end := strings.IndexByte(word[start+1:], '`')
		if end == -1 {
			fmt.Fprintln(e.Stderr, "ash: syntax error: unmatched `")
			return word
		}
		end += start + 1
		captured, err := e.capture(word[start+1 : end])
		if err != nil {
			fmt.Fprintf(e.Stderr, "ash: command substitution: %v\n", err)
			return word
		}
		word = word[:start] + captured + word[end+1:]
	}
	return word
}

// nextDollarParen finds the next "$(" at or after from that is not "$((".
func (e *Expander) nextDollarParen(word string, from int) int {
	for i := from; i < len(word)-1; i++ {
		if word[i] == '$' && word[i+1] == '(' {
			if strings.HasPrefix(word[i:], "$((") {
				i += 2
				continue
			}
			return i
		}
	}
	return -1
}

func (e *Expander) capture(script string) (string, error) {
	out, err := e.Capture(script)
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(out, "\n"), nil
}

// expandArith replaces $((expr)) spans with their evaluated value. A
// failed evaluation (undefined variable, division by zero, bad syntax)
// leaves that span unexpanded and moves on.
func (e *Expander) expandArith(word string) string {
	lookup := func(name string) (string, bool) {
		if e.Vars == nil {
			return "", false
		}
		return e.Vars.Get(name)
	}

	from := 0
	for {
		rel := strings.Index(word[from:], "$((")
		if rel == -1 {
			return word
		}
		start := from + rel
		end := strings.Index(word[start+3:], "))")
		if end == -1 {
			return word
		}
		end += start + 3
		val, err := arith.Eval(word[start+3:end], lookup)
		if err != nil {
			// Leave the span untouched; scan past it.
			from = end + 2
			continue
		}
		repl := strconv.FormatInt(val, 10)
		word = word[:start] + repl + word[end+2:]
		from = start + len(repl)
	}
}

// expandVars replaces $NAME references, both whole-word and embedded.
// Undefined variables expand to the empty string. A '$' followed by '('
// is left alone; substitution passes already ran.
func (e *Expander) expandVars(word string) string {
	if !strings.ContainsRune(word, '$') {
		return word
	}
	var buf strings.Builder
	for i := 0; i < len(word); i++ {
		c := word[i]
		if c != '$' || i+1 >= len(word) || word[i+1] == '(' {
			buf.WriteByte(c)
			continue
		}
		j := i + 1
		for j < len(word) && isNameChar(word[j]) {
			j++
		}
		if j == i+1 {
			buf.WriteByte(c)
			continue
		}
		if e.Vars != nil {
			val, _ := e.Vars.Get(word[i+1 : j])
			buf.WriteString(val)
		}
		i = j - 1
	}
	return buf.String()
}

// expandGlob expands a word containing *, ?, or [ against the filesystem.
// Zero matches leaves the literal pattern unchanged; one or more matches
// replaces the word with the sorted match list.
func (e *Expander) expandGlob(word string) []string {
	if e.Fs == nil || !strings.ContainsAny(word, "*?[") {
		return []string{word}
	}
	matches, err := afero.Glob(e.Fs, word)
	if err != nil || len(matches) == 0 {
		return []string{word}
	}
	sort.Strings(matches)
	return matches
}

func isNameChar(c byte) bool {
	return c == '_' ||
		(c >= '0' && c <= '9') ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z')
}
