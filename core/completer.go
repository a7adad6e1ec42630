package core

import (
	"sort"
	"strings"

	shlex "github.com/anmitsu/go-shlex"
)

// tableCompleter suggests completions by reading the session's builtin,
// alias, function, and variable tables. It never mutates them.
type tableCompleter struct {
	session *Session
}

// Do implements readline.AutoCompleter.
func (c *tableCompleter) Do(line []rune, pos int) ([][]rune, int) {
	prefix := lastToken(string(line[:pos]))

	var out [][]rune
	for _, name := range c.candidates(prefix) {
		if strings.HasPrefix(name, prefix) {
			out = append(out, []rune(name[len(prefix):]))
		}
	}
	return out, len(prefix)
}

func (c *tableCompleter) candidates(prefix string) []string {
	s := c.session
	var names []string
	if strings.HasPrefix(prefix, "$") {
		for _, name := range s.Vars.Names() {
			names = append(names, "$"+name)
		}
		sort.Strings(names)
		return names
	}
	for name := range AllBuiltins {
		names = append(names, name)
	}
	names = append(names, s.Aliases.Names()...)
	names = append(names, s.Funcs.Names()...)
	sort.Strings(names)
	return names
}

// lastToken returns the word being typed at the end of the line; a line
// ending in whitespace completes a fresh empty word.
func lastToken(line string) string {
	if line == "" || strings.HasSuffix(line, " ") || strings.HasSuffix(line, "\t") {
		return ""
	}
	fields, err := shlex.Split(line, true)
	if err != nil || len(fields) == 0 {
		// Unbalanced quotes mid-typing; fall back to whitespace splitting.
		ws := strings.Fields(line)
		if len(ws) == 0 {
			return ""
		}
		return ws[len(ws)-1]
	}
	return fields[len(fields)-1]
}
