package core

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/abiosoft/readline"
	"github.com/fatih/color"
	"golang.org/x/sys/unix"

	"josephlewis.net/ash/core/interp"
	"josephlewis.net/ash/core/token"
)

// maxPromptPath bounds the working-directory portion of the prompt; longer
// paths keep only the tail behind "...".
const maxPromptPath = 32

var promptColor = color.New(color.FgCyan, color.Bold)

// Shell is the interactive front end: a readline loop around one Session.
type Shell struct {
	Session  *Session
	Readline *readline.Instance
	signals  chan os.Signal
}

// NewShell prepares the readline instance and the shell's signal routing.
// The job-control signals are routed to a channel rather than ignored, so
// exec'd children start with default dispositions while the shell itself
// never dies to a stray Ctrl+C.
func NewShell(s *Session) (*Shell, error) {
	cfg := &readline.Config{
		Stdin:  readline.NewCancelableStdin(os.Stdin),
		Stdout: s.Stdout,
		Stderr: s.Stderr,
	}
	if s.Config != nil {
		cfg.HistoryFile = s.Config.HistoryFile
		cfg.HistoryLimit = s.Config.HistorySize
	}
	cfg.AutoComplete = &tableCompleter{session: s}
	if err := cfg.Init(); err != nil {
		return nil, err
	}

	rl, err := readline.NewEx(cfg)
	if err != nil {
		return nil, err
	}

	signals := make(chan os.Signal, 16)
	signal.Notify(signals,
		unix.SIGINT, unix.SIGQUIT, unix.SIGTSTP, unix.SIGTTIN, unix.SIGTTOU)

	return &Shell{Session: s, Readline: rl, signals: signals}, nil
}

// Prompt renders "ash:<cwd>> ", truncating long directories from the left.
func (sh *Shell) Prompt() string {
	prefix := "ash"
	if sh.Session.Config != nil && sh.Session.Config.PromptPrefix != "" {
		prefix = sh.Session.Config.PromptPrefix
	}
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "?"
	}
	if len(cwd) > maxPromptPath {
		cwd = "..." + cwd[len(cwd)-maxPromptPath:]
	}
	text := fmt.Sprintf("%s:%s> ", prefix, cwd)
	if sh.Session.jobControl() {
		return promptColor.Sprint(text)
	}
	return text
}

// drainSignals consumes pending job-control signals. They arrive only when
// the shell itself holds the terminal; the response is simply a clean
// prompt redraw, which the caller is about to do anyway.
func (sh *Shell) drainSignals() {
	for {
		select {
		case <-sh.signals:
		default:
			return
		}
	}
}

// Run is the main interactive loop: reap background jobs, redraw the
// prompt, read a line, and run it. Construct lines that are not yet
// complete (an "if" without its "fi") keep reading continuation lines.
func (sh *Shell) Run() {
	defer sh.Close()
	s := sh.Session

	for !s.Exited() {
		sh.drainSignals()
		s.Manager.Reap()

		sh.Readline.SetPrompt(sh.Prompt())
		line, err := sh.Readline.Readline()
		switch {
		case err == io.EOF:
			fmt.Fprintln(s.Stdout, "\nExiting shell...")
			return
		case err == readline.ErrInterrupt:
			continue
		case err != nil:
			log.Printf("readline: %v", err)
			continue
		case strings.TrimSpace(line) == "":
			continue
		}

		text, ok := sh.readContinuation(line)
		if !ok {
			return
		}
		s.AddHistory(strings.TrimSpace(text))
		s.RunScript(text)
	}
	fmt.Fprintln(s.Stdout, "Exiting shell...")
}

// readContinuation keeps reading lines under a "> " prompt until the
// buffered text parses as a complete script. ok is false when input closed
// mid-construct.
func (sh *Shell) readContinuation(line string) (text string, ok bool) {
	text = line
	for {
		_, err := interp.Parse(token.SplitLogicalLines(text))
		if !errors.Is(err, interp.ErrIncomplete) {
			// Complete, or an error the engine will report when it parses
			// the same text again.
			return text, true
		}
		sh.Readline.SetPrompt("> ")
		more, err := sh.Readline.Readline()
		switch {
		case err == io.EOF:
			fmt.Fprintln(sh.Session.Stdout, "\nExiting shell...")
			return "", false
		case err == readline.ErrInterrupt:
			// Abandon the half-typed construct.
			return "", true
		case err != nil:
			log.Printf("readline: %v", err)
			return "", true
		}
		text += "\n" + more
	}
}

// Close releases the readline instance.
func (sh *Shell) Close() error {
	signal.Stop(sh.signals)
	return sh.Readline.Close()
}
