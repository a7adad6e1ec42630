package core

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/pborman/getopt/v2"
	"github.com/spf13/afero"

	"josephlewis.net/ash/core/arith"
	"josephlewis.net/ash/core/expand"
)

// AllBuiltins holds every registered shell builtin, keyed by name.
var AllBuiltins = make(map[string]ShellBuiltin)

type ShellBuiltin interface {
	Main(s *Session, args []string) int
}

type ShellBuiltinFunc func(s *Session, args []string) int

func (f ShellBuiltinFunc) Main(s *Session, args []string) int {
	return f(s, args)
}

var _ ShellBuiltin = (ShellBuiltinFunc)(nil)

// Cd is the cd shell builtin.
func Cd(s *Session, args []string) int {
	switch len(args) {
	case 1:
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(s.Stderr, "%s: %v\n", args[0], err)
			return 1
		}
		args = append(args, home)
		fallthrough
	case 2:
		if err := os.Chdir(args[1]); err != nil {
			fmt.Fprintf(s.Stderr, "%s: %v\n", args[0], err)
			return 1
		}
	default:
		fmt.Fprintf(s.Stderr, "%s: too many arguments\n", args[0])
		return 1
	}
	return 0
}

// Exit requests shell termination. It sets a flag instead of exiting the
// process so command-substitution subshells can't kill the parent shell.
func Exit(s *Session, args []string) int {
	status := s.LastStatus
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Fprintf(s.Stderr, "%s: %s: numeric argument required\n", args[0], args[1])
			n = 2
		}
		status = n
	}
	s.exited = true
	s.LastStatus = status
	return status
}

// History displays or clears the in-memory history list.
func History(s *Session, args []string) int {
	opts := getopt.New()
	clear := opts.Bool('c', "clear the history by deleting all entries")
	helpOpt := opts.BoolLong("help", 'h', "show help and exit")

	if err := opts.Getopt(args, nil); err != nil || *helpOpt {
		w := s.Stderr
		if err != nil {
			fmt.Fprintln(w, err)
		}
		fmt.Fprintln(w, "Display or manipulate the history list.")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Options:")
		opts.PrintOptions(w)
		return 1
	}

	if *clear {
		s.ClearHistory()
		return 0
	}
	for i, line := range s.History() {
		fmt.Fprintf(s.Stdout, "% 5d  %s\n", i+1, line)
	}
	return 0
}

// Jobs lists the job table.
func Jobs(s *Session, args []string) int {
	s.Jobs.List(s.Stdout)
	return 0
}

func jobFromArg(s *Session, args []string) (id int, ok bool) {
	if len(args) != 2 {
		fmt.Fprintf(s.Stderr, "%s: usage: %s <job id>\n", args[0], args[0])
		return 0, false
	}
	id, err := strconv.Atoi(strings.TrimPrefix(args[1], "%"))
	if err != nil {
		fmt.Fprintf(s.Stderr, "%s: %s: no such job\n", args[0], args[1])
		return 0, false
	}
	return id, true
}

// Fg resumes a job in the foreground.
func Fg(s *Session, args []string) int {
	id, ok := jobFromArg(s, args)
	if !ok {
		return 1
	}
	job := s.Jobs.Get(id)
	if job == nil {
		fmt.Fprintf(s.Stderr, "%s: %d: no such job\n", args[0], id)
		return 1
	}
	fmt.Fprintf(s.Stdout, "Bringing job %d to foreground: %s\n", job.ID, job.Command)
	s.Manager.ContinueJob(job, true)
	if job.Done {
		s.Jobs.Remove(job.ID)
		return job.Status
	}
	s.Manager.NoticeStopped(job)
	return 0
}

// Bg resumes a stopped job in the background.
func Bg(s *Session, args []string) int {
	id, ok := jobFromArg(s, args)
	if !ok {
		return 1
	}
	job := s.Jobs.Get(id)
	if job == nil {
		fmt.Fprintf(s.Stderr, "%s: %d: no such job\n", args[0], id)
		return 1
	}
	fmt.Fprintf(s.Stdout, "Running job %d in background: %s\n", job.ID, job.Command)
	s.Manager.ContinueJob(job, false)
	return 0
}

// Export marks variables for inheritance by child processes. Accepts both
// NAME=VALUE and bare NAME forms; with no arguments it lists the store.
func Export(s *Session, args []string) int {
	if len(args) == 1 {
		for _, name := range s.Vars.Names() {
			value, _ := s.Vars.Get(name)
			fmt.Fprintf(s.Stdout, "%s=%s\n", name, value)
		}
		return 0
	}
	status := 0
	for _, arg := range args[1:] {
		name := arg
		if expand.IsAssignments([]string{arg}) {
			var value string
			name, value = expand.SplitAssignment(arg)
			if err := s.Vars.Set(name, s.Expand.ExpandWord(value)); err != nil {
				fmt.Fprintf(s.Stderr, "%s: %v\n", args[0], err)
				status = 1
				continue
			}
		}
		if err := s.Vars.Export(name); err != nil {
			fmt.Fprintf(s.Stderr, "%s: %v\n", args[0], err)
			status = 1
		}
	}
	return status
}

// Source runs a script file in the current session, so its assignments,
// aliases, and function definitions persist.
func Source(s *Session, args []string) int {
	if len(args) != 2 {
		fmt.Fprintf(s.Stderr, "%s: usage: %s <file>\n", args[0], args[0])
		return 1
	}
	contents, err := afero.ReadFile(s.Fs, args[1])
	if err != nil {
		fmt.Fprintf(s.Stderr, "%s: %s: %v\n", args[0], args[1], err)
		return 1
	}
	return s.RunScript(string(contents))
}

// Let evaluates an arithmetic expression. "let NAME=expr" assigns the
// result; a bare expression prints it.
func Let(s *Session, args []string) int {
	if len(args) < 2 {
		fmt.Fprintf(s.Stderr, "%s: usage: %s [NAME=]<expression>\n", args[0], args[0])
		return 1
	}
	expr := strings.Join(args[1:], " ")

	var name string
	if eq := strings.IndexByte(expr, '='); eq > 0 && isVarName(expr[:eq]) {
		name, expr = expr[:eq], expr[eq+1:]
	}

	lookup := func(n string) (string, bool) { return s.Vars.Get(n) }
	value, err := arith.Eval(expr, lookup)
	if err != nil {
		fmt.Fprintf(s.Stderr, "%s: %v\n", args[0], err)
		return 1
	}
	if name != "" {
		if err := s.Vars.Set(name, strconv.FormatInt(value, 10)); err != nil {
			fmt.Fprintf(s.Stderr, "%s: %v\n", args[0], err)
			return 1
		}
		return 0
	}
	fmt.Fprintf(s.Stdout, "%d\n", value)
	return 0
}

func isVarName(str string) bool {
	if str == "" {
		return false
	}
	for i := 0; i < len(str); i++ {
		c := str[i]
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// Alias defines an alias, prints a single alias, or lists all of them.
func Alias(s *Session, args []string) int {
	if len(args) == 1 {
		for _, line := range s.Aliases.List() {
			fmt.Fprintln(s.Stdout, line)
		}
		return 0
	}
	status := 0
	for _, arg := range args[1:] {
		if expand.IsAssignments([]string{arg}) {
			name, value := expand.SplitAssignment(arg)
			if err := s.Aliases.Set(name, value); err != nil {
				fmt.Fprintf(s.Stderr, "%s: %v\n", args[0], err)
				status = 1
			}
			continue
		}
		if value, ok := s.Aliases.Get(arg); ok {
			fmt.Fprintf(s.Stdout, "alias %s='%s'\n", arg, value)
		} else {
			fmt.Fprintf(s.Stderr, "%s: %s: not found\n", args[0], arg)
			status = 1
		}
	}
	return status
}

// Unalias removes an alias.
func Unalias(s *Session, args []string) int {
	if len(args) != 2 {
		fmt.Fprintf(s.Stderr, "%s: usage: %s <name>\n", args[0], args[0])
		return 1
	}
	s.Aliases.Unset(args[1])
	return 0
}

// Help lists the builtins.
func Help(s *Session, args []string) int {
	w := s.Stdout
	fmt.Fprintln(w, "These shell commands are defined internally. Type `help' to see this list.")
	fmt.Fprintln(w)

	var names []string
	for k := range AllBuiltins {
		names = append(names, k)
	}
	sort.Strings(names)
	fmt.Fprintln(w, strings.Join(names, "\n"))
	return 0
}

func init() {
	AllBuiltins["cd"] = ShellBuiltinFunc(Cd)
	AllBuiltins["exit"] = ShellBuiltinFunc(Exit)
	AllBuiltins["history"] = ShellBuiltinFunc(History)
	AllBuiltins["jobs"] = ShellBuiltinFunc(Jobs)
	AllBuiltins["fg"] = ShellBuiltinFunc(Fg)
	AllBuiltins["bg"] = ShellBuiltinFunc(Bg)
	AllBuiltins["export"] = ShellBuiltinFunc(Export)
	AllBuiltins["source"] = ShellBuiltinFunc(Source)
	AllBuiltins["let"] = ShellBuiltinFunc(Let)
	AllBuiltins["alias"] = ShellBuiltinFunc(Alias)
	AllBuiltins["unalias"] = ShellBuiltinFunc(Unalias)
	AllBuiltins["help"] = ShellBuiltinFunc(Help)
}
