// Package core ties the shell together: one Session owns the variable,
// alias, function, and job tables, and implements the dispatcher that the
// script interpreter re-enters for every command line.
package core

import (
	"bytes"
	"fmt"
	"io"

	"github.com/spf13/afero"

	"josephlewis.net/ash/core/alias"
	"josephlewis.net/ash/core/config"
	"josephlewis.net/ash/core/expand"
	"josephlewis.net/ash/core/interp"
	"josephlewis.net/ash/core/jobs"
	"josephlewis.net/ash/core/vars"
)

// Session is one shell instance: the interactive shell, a script run, or a
// subshell spawned for command substitution or a builtin pipeline stage.
// It is accessed from a single goroutine; subshells get cloned tables, so
// no table is ever shared across goroutines.
type Session struct {
	Config  *config.Configuration
	Fs      afero.Fs
	Vars    *vars.Store
	Aliases *alias.Table
	Funcs   *interp.FuncTable
	Jobs    *jobs.Table
	Manager *jobs.Manager
	Engine  *interp.Engine
	Expand  *expand.Expander

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Interactive is true only for the terminal-owning top-level shell.
	// Subshells and script runs never touch process groups or the terminal.
	Interactive bool

	// LastStatus is the exit status of the most recent command.
	LastStatus int

	history []string
	exited  bool
}

// NewSession builds a fully wired session. term is nil for non-interactive
// sessions.
func NewSession(cfg *config.Configuration, fs afero.Fs, term *jobs.Terminal, stdin io.Reader, stdout, stderr io.Writer) *Session {
	s := &Session{
		Config:      cfg,
		Fs:          fs,
		Vars:        vars.New(),
		Aliases:     alias.New(),
		Funcs:       interp.NewFuncTable(),
		Jobs:        jobs.NewTable(),
		Stdin:       stdin,
		Stdout:      stdout,
		Stderr:      stderr,
		Interactive: term != nil,
	}
	s.Manager = &jobs.Manager{
		Table:    s.Jobs,
		Term:     term,
		Out:      stdout,
		Colorize: term != nil,
	}
	s.Engine = &interp.Engine{Dispatch: s, Funcs: s.Funcs, Stderr: stderr}
	s.Expand = &expand.Expander{
		Vars:    s.Vars,
		Aliases: s.Aliases,
		Fs:      fs,
		Capture: s.capture,
		Stderr:  stderr,
	}

	s.applyConfig(cfg)
	return s
}

func (s *Session) applyConfig(cfg *config.Configuration) {
	if cfg == nil {
		return
	}
	for _, pair := range cfg.Environment {
		if !expand.IsAssignments([]string{pair}) {
			fmt.Fprintf(s.Stderr, "ash: config: bad environment entry %q\n", pair)
			continue
		}
		name, value := expand.SplitAssignment(pair)
		if err := s.Vars.Set(name, value); err != nil {
			fmt.Fprintf(s.Stderr, "ash: config: %v\n", err)
			continue
		}
		if err := s.Vars.Export(name); err != nil {
			fmt.Fprintf(s.Stderr, "ash: config: %v\n", err)
		}
	}
	for _, pair := range cfg.Aliases {
		if !expand.IsAssignments([]string{pair}) {
			fmt.Fprintf(s.Stderr, "ash: config: bad alias entry %q\n", pair)
			continue
		}
		name, value := expand.SplitAssignment(pair)
		if err := s.Aliases.Set(name, value); err != nil {
			fmt.Fprintf(s.Stderr, "ash: config: %v\n", err)
		}
	}
}

// Subshell clones the session for fork-like isolation: same filesystem and
// stdio, copied tables, no terminal, no job control. Used for command
// substitution and for builtins running as pipeline stages.
func (s *Session) Subshell(stdin io.Reader, stdout io.Writer) *Session {
	sub := &Session{
		Config:     s.Config,
		Fs:         s.Fs,
		Vars:       s.Vars.Clone(),
		Aliases:    s.Aliases.Clone(),
		Funcs:      s.Funcs.Clone(),
		Jobs:       jobs.NewTable(),
		Stdin:      stdin,
		Stdout:     stdout,
		Stderr:     s.Stderr,
		LastStatus: s.LastStatus,
	}
	sub.Manager = &jobs.Manager{Table: sub.Jobs, Out: stdout}
	sub.Engine = &interp.Engine{Dispatch: sub, Funcs: sub.Funcs, Stderr: s.Stderr}
	sub.Expand = &expand.Expander{
		Vars:    sub.Vars,
		Aliases: sub.Aliases,
		Fs:      s.Fs,
		Capture: sub.capture,
		Stderr:  s.Stderr,
	}
	return sub
}

// capture runs a script in a subshell and returns everything it wrote to
// stdout. This is the command-substitution back end; external commands in
// the subshell have their stdout piped into the buffer by the exec layer.
func (s *Session) capture(script string) (string, error) {
	var buf bytes.Buffer
	sub := s.Subshell(s.Stdin, &buf)
	sub.Engine.RunScript(script)
	return buf.String(), nil
}

// RunScript parses and executes whole script text, returning the exit
// status of the last command.
func (s *Session) RunScript(text string) int {
	return s.Engine.RunScript(text)
}

// Exited reports whether the exit builtin has run.
func (s *Session) Exited() bool {
	return s.exited
}

// SetVar binds a shell variable, reporting table exhaustion to stderr
// without failing the caller.
func (s *Session) SetVar(name, value string) {
	if err := s.Vars.Set(name, value); err != nil {
		fmt.Fprintf(s.Stderr, "ash: %v\n", err)
	}
}

// ExpandWord applies substitution, arithmetic, and variable expansion to a
// single word.
func (s *Session) ExpandWord(word string) string {
	return s.Expand.ExpandWord(word)
}

// AddHistory appends a line to the in-memory history ring.
func (s *Session) AddHistory(line string) {
	limit := 100
	if s.Config != nil && s.Config.HistorySize > 0 {
		limit = s.Config.HistorySize
	}
	s.history = append(s.history, line)
	if len(s.history) > limit {
		s.history = s.history[len(s.history)-limit:]
	}
}

// History returns the recorded history lines, oldest first.
func (s *Session) History() []string {
	return s.history
}

// ClearHistory empties the in-memory history ring.
func (s *Session) ClearHistory() {
	s.history = nil
}
