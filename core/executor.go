package core

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"

	"josephlewis.net/ash/core/expand"
	"josephlewis.net/ash/core/jobs"
	"josephlewis.net/ash/core/token"
)

// redirection is the result of scanning an argument vector for the first
// redirection operator: the truncated argv plus descriptors to install.
type redirection struct {
	argv []string
	in   *os.File
	out  *os.File
}

// Close releases the parent's copies of redirection descriptors. Safe to
// call more than once.
func (r *redirection) Close() {
	if r.in != nil {
		r.in.Close()
		r.in = nil
	}
	if r.out != nil {
		r.out.Close()
		r.out = nil
	}
}

// parseRedirection scans argv left to right for <, >, >>, or <<DELIM.
// The first operator found truncates the vector at that point and is acted
// on; the operator and its target never reach the program. Additional
// operators later in the line are dropped with the truncated tail.
func (s *Session) parseRedirection(argv []string) (*redirection, error) {
	for i, arg := range argv {
		var op, target string
		switch {
		case arg == "<" || arg == ">" || arg == ">>" || arg == "<<":
			if i+1 >= len(argv) {
				return nil, fmt.Errorf("syntax error: %s needs a target", arg)
			}
			op, target = arg, argv[i+1]
		case strings.HasPrefix(arg, ">>"):
			op, target = ">>", arg[2:]
		case strings.HasPrefix(arg, "<<"):
			op, target = "<<", arg[2:]
		case strings.HasPrefix(arg, ">"):
			op, target = ">", arg[1:]
		case strings.HasPrefix(arg, "<"):
			op, target = "<", arg[1:]
		default:
			continue
		}

		red := &redirection{argv: argv[:i]}
		var err error
		switch op {
		case "<":
			red.in, err = os.OpenFile(target, os.O_RDONLY, 0)
		case ">":
			red.out, err = os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		case ">>":
			red.out, err = os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		case "<<":
			red.in, err = s.readHeredoc(target)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %v", target, err)
		}
		return red, nil
	}
	return &redirection{argv: argv}, nil
}

// readHeredoc collects stdin lines until one exactly equals delim, then
// hands them back as the read end of a pipe. Input is read byte-wise so no
// bytes beyond the delimiter line are stolen from the session's stdin.
func (s *Session) readHeredoc(delim string) (*os.File, error) {
	if delim == "" {
		return nil, errors.New("syntax error: << needs a delimiter")
	}
	var body strings.Builder
	for {
		if s.Interactive {
			fmt.Fprint(s.Stdout, "> ")
		}
		line, err := readRawLine(s.Stdin)
		if err != nil && line == "" {
			break
		}
		if line == delim {
			break
		}
		body.WriteString(line)
		body.WriteByte('\n')
		if err != nil {
			break
		}
	}

	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	go func() {
		io.WriteString(w, body.String())
		w.Close()
	}()
	return r, nil
}

// readRawLine reads a single newline-terminated line one byte at a time,
// without the trailing newline.
func readRawLine(r io.Reader) (string, error) {
	var buf strings.Builder
	var b [1]byte
	for {
		n, err := r.Read(b[:])
		if n > 0 {
			if b[0] == '\n' {
				return buf.String(), nil
			}
			buf.WriteByte(b[0])
		}
		if err != nil {
			return buf.String(), err
		}
	}
}

// jobControl reports whether this session manages process groups and the
// terminal. Scripts, -c runs, and subshells never do.
func (s *Session) jobControl() bool {
	return s.Interactive && s.Manager != nil && s.Manager.Term != nil
}

// environ builds a child's environment: the shell's inherited process
// environment overlaid with this session's exported variables. Exports
// live in the session's own store, so subshell clones cannot pollute the
// parent's children.
func (s *Session) environ() []string {
	exported := s.Vars.Environ()
	if len(exported) == 0 {
		return os.Environ()
	}
	override := make(map[string]string, len(exported))
	for _, pair := range exported {
		if eq := strings.IndexByte(pair, '='); eq > 0 {
			override[pair[:eq]] = pair
		}
	}
	var env []string
	for _, pair := range os.Environ() {
		name := pair
		if eq := strings.IndexByte(pair, '='); eq >= 0 {
			name = pair[:eq]
		}
		if repl, ok := override[name]; ok {
			env = append(env, repl)
			delete(override, name)
			continue
		}
		env = append(env, pair)
	}
	// Exports with no inherited counterpart, kept in slot order.
	for _, pair := range exported {
		if eq := strings.IndexByte(pair, '='); eq > 0 {
			if _, ok := override[pair[:eq]]; ok {
				env = append(env, pair)
			}
		}
	}
	return env
}

// executeSimple spawns one external command. Under job control the child
// leads its own process group and, when foregrounded, takes the terminal
// from inside the child before exec; the parent then performs the same
// handoff redundantly, so whichever side runs first wins without a race.
func (s *Session) executeSimple(argv []string, background bool, display string) int {
	red, err := s.parseRedirection(argv)
	if err != nil {
		fmt.Fprintf(s.Stderr, "ash: %v\n", err)
		return 1
	}
	defer red.Close()
	if len(red.argv) == 0 {
		fmt.Fprintln(s.Stderr, "ash: syntax error: redirection without a command")
		return 1
	}

	cmd := exec.Command(red.argv[0], red.argv[1:]...)
	cmd.Env = s.environ()
	cmd.Stdin = s.Stdin
	cmd.Stdout = s.Stdout
	cmd.Stderr = s.Stderr
	if red.in != nil {
		cmd.Stdin = red.in
	}
	if red.out != nil {
		cmd.Stdout = red.out
	}

	if s.jobControl() {
		attr := &syscall.SysProcAttr{Setpgid: true}
		if !background {
			attr.Foreground = true
			attr.Ctty = s.Manager.Term.FD
		}
		cmd.SysProcAttr = attr
	}

	if err := cmd.Start(); err != nil {
		return s.reportSpawnError(red.argv[0], err)
	}
	red.Close()

	if !s.jobControl() {
		return waitStatus(cmd.Wait())
	}
	pid := cmd.Process.Pid
	return s.superviseJob(pid, pid, display, background)
}

func (s *Session) reportSpawnError(name string, err error) int {
	if errors.Is(err, exec.ErrNotFound) {
		fmt.Fprintf(s.Stderr, "ash: %s: command not found\n", name)
		return 127
	}
	fmt.Fprintf(s.Stderr, "ash: %s: %v\n", name, err)
	return 126
}

// superviseJob registers the started process group in the job table and
// either backgrounds it with the "[id] pid" print or foregrounds it and
// blocks. Never called without job control.
func (s *Session) superviseJob(pid, pgid int, display string, background bool) int {
	job, err := s.Jobs.Add(pid, pgid, display, background)
	if err != nil {
		// Table exhausted: refuse to background, but never orphan a started
		// process group; foreground it untracked instead.
		fmt.Fprintf(s.Stderr, "ash: %v\n", err)
		job = &jobs.Job{PID: pid, PGID: pgid, Command: display, Running: true, Foreground: true}
		s.Manager.PutInForeground(job, false)
		return job.Status
	}

	if background {
		fmt.Fprintf(s.Stdout, "[%d] %d\n", job.ID, pid)
		s.Manager.PutInBackground(job, false)
		return 0
	}

	s.Manager.PutInForeground(job, false)
	if job.Done {
		s.Jobs.Remove(job.ID)
		return job.Status
	}
	// Stopped by Ctrl+Z; the job stays in the table.
	s.Manager.NoticeStopped(job)
	return 128 + int(unix.SIGTSTP)
}

// executePipeline builds an N-stage pipeline. All pipe pairs are created
// up front; external stages share one process group led by the first
// external child; builtin, function, and assignment stages run in-process
// on subshell clones so they cannot mutate this session. The parent closes
// every descriptor it handed to children once all stages have started, so
// EOF propagates as stages finish.
func (s *Session) executePipeline(stages []string, background bool, display string) int {
	n := len(stages)
	argvs := make([][]string, n)
	for i, stage := range stages {
		argv := s.expandStage(stage)
		if len(argv) == 0 {
			fmt.Fprintln(s.Stderr, "ash: syntax error: empty pipeline stage")
			return 1
		}
		argvs[i] = argv
	}

	pipes := make([][2]*os.File, n-1)
	for i := range pipes {
		r, w, err := os.Pipe()
		if err != nil {
			for j := 0; j < i; j++ {
				pipes[j][0].Close()
				pipes[j][1].Close()
			}
			fmt.Fprintf(s.Stderr, "ash: pipe: %v\n", err)
			return 1
		}
		pipes[i] = [2]*os.File{r, w}
	}

	jc := s.jobControl()
	statuses := make([]int, n)
	var wg sync.WaitGroup
	var closeAfterStart []*os.File
	pgid := 0
	leader := 0
	type extStage struct {
		idx int
		cmd *exec.Cmd
	}
	externals := make([]extStage, 0, n)

	for i, argv := range argvs {
		var stdin io.Reader = s.Stdin
		var stdout io.Writer = s.Stdout
		var ownedIn, ownedOut *os.File
		if i > 0 {
			ownedIn = pipes[i-1][0]
			stdin = ownedIn
		}
		if i < n-1 {
			ownedOut = pipes[i][1]
			stdout = ownedOut
		}

		red, err := s.parseRedirection(argv)
		if err != nil {
			fmt.Fprintf(s.Stderr, "ash: %v\n", err)
			statuses[i] = 1
			if ownedIn != nil {
				closeAfterStart = append(closeAfterStart, ownedIn)
			}
			if ownedOut != nil {
				closeAfterStart = append(closeAfterStart, ownedOut)
			}
			continue
		}
		// Explicit redirections take precedence over the pipe wiring.
		if red.in != nil {
			stdin = red.in
		}
		if red.out != nil {
			stdout = red.out
		}
		argv = red.argv
		if len(argv) == 0 {
			fmt.Fprintln(s.Stderr, "ash: syntax error: redirection without a command")
			statuses[i] = 1
			red.Close()
			continue
		}

		if s.isInProcess(argv) {
			// The goroutine owns its pipe ends and redirection files;
			// closing its write end is what gives the next stage EOF.
			wg.Add(1)
			go func(i int, argv []string, stdin io.Reader, stdout io.Writer, ownedIn, ownedOut *os.File, red *redirection) {
				defer wg.Done()
				defer red.Close()
				if ownedIn != nil {
					defer ownedIn.Close()
				}
				if ownedOut != nil {
					defer ownedOut.Close()
				}
				sub := s.Subshell(stdin, stdout)
				statuses[i] = sub.runInProcessStage(argv)
			}(i, argv, stdin, stdout, ownedIn, ownedOut, red)
			continue
		}

		cmd := exec.Command(argv[0], argv[1:]...)
		cmd.Env = s.environ()
		cmd.Stdin = stdin
		cmd.Stdout = stdout
		cmd.Stderr = s.Stderr
		if jc {
			attr := &syscall.SysProcAttr{Setpgid: true, Pgid: pgid}
			if pgid == 0 && !background {
				attr.Foreground = true
				attr.Ctty = s.Manager.Term.FD
			}
			cmd.SysProcAttr = attr
		}

		if err := cmd.Start(); err != nil {
			statuses[i] = s.reportSpawnError(argv[0], err)
			red.Close()
			if ownedIn != nil {
				closeAfterStart = append(closeAfterStart, ownedIn)
			}
			if ownedOut != nil {
				closeAfterStart = append(closeAfterStart, ownedOut)
			}
			continue
		}
		if pgid == 0 {
			pgid = cmd.Process.Pid
			leader = cmd.Process.Pid
		}
		externals = append(externals, extStage{idx: i, cmd: cmd})
		if red.in != nil || red.out != nil {
			closeAfterStart = append(closeAfterStart, red.in, red.out)
		}
		if ownedIn != nil {
			closeAfterStart = append(closeAfterStart, ownedIn)
		}
		if ownedOut != nil {
			closeAfterStart = append(closeAfterStart, ownedOut)
		}
	}

	// Children hold their own copies now; the parent must drop every pipe
	// descriptor or downstream stages never see EOF.
	for _, f := range closeAfterStart {
		if f != nil {
			f.Close()
		}
	}

	if len(externals) == 0 {
		wg.Wait()
		return statuses[n-1]
	}

	if !jc {
		for _, ext := range externals {
			statuses[ext.idx] = waitStatus(ext.cmd.Wait())
		}
		wg.Wait()
		return statuses[n-1]
	}

	status := s.superviseJob(leader, pgid, display, background)
	if !background {
		wg.Wait()
	}
	return status
}

// expandStage runs the per-stage word pipeline: split, alias expansion,
// then full argument expansion.
func (s *Session) expandStage(stage string) []string {
	argv := token.SplitWords(stage)
	argv = s.Expand.ExpandAliases(argv)
	return s.Expand.ExpandArgs(argv)
}

// isInProcess reports whether argv names something that cannot be exec'd:
// a function, a builtin, or a pure assignment.
func (s *Session) isInProcess(argv []string) bool {
	if expand.IsAssignments(argv) {
		return true
	}
	if _, ok := s.Funcs.Find(argv[0]); ok {
		return true
	}
	_, ok := AllBuiltins[argv[0]]
	return ok
}

// runInProcessStage executes a function, builtin, or assignment stage on a
// subshell clone. argv is already expanded.
func (s *Session) runInProcessStage(argv []string) int {
	if expand.IsAssignments(argv) {
		for _, arg := range argv {
			name, value := expand.SplitAssignment(arg)
			if err := s.Vars.Set(name, value); err != nil {
				fmt.Fprintf(s.Stderr, "ash: %v\n", err)
				return 1
			}
		}
		return 0
	}
	if status, ok := s.Engine.CallFunction(argv[0], argv[1:]); ok {
		return status
	}
	if builtin, ok := AllBuiltins[argv[0]]; ok {
		return builtin.Main(s, argv)
	}
	return 127
}

// waitStatus converts a Wait error into a shell exit status.
func waitStatus(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return 128 + int(ws.Signal())
		}
		return exitErr.ExitCode()
	}
	return 1
}
