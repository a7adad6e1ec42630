package interp

import (
	"fmt"
	"io"
	"path"
	"strconv"

	"josephlewis.net/ash/core/token"
)

// Dispatcher is the engine's view of the shell: it runs one command line
// through the full expansion and execution path and reports exit status.
type Dispatcher interface {
	// RunLine executes one command line and returns its exit status.
	RunLine(line string) int
	// SetVar binds a shell variable, used for loop variables and
	// positional parameters.
	SetVar(name, value string)
	// ExpandWord applies substitution and variable expansion to one word.
	ExpandWord(word string) string
	// Exited reports whether the exit builtin has run; the engine stops
	// walking as soon as it has.
	Exited() bool
}

const (
	loopNone = iota
	loopBreak
	loopContinue
)

// Engine walks a parsed script, re-entering the dispatcher for every
// condition and simple command.
type Engine struct {
	Dispatch Dispatcher
	Funcs    *FuncTable
	Stderr   io.Writer

	loopFlag int
}

// RunScript parses and runs a whole script text, returning the exit status
// of the last command executed. Parse errors abort the script with status 1.
func (e *Engine) RunScript(text string) int {
	nodes, err := Parse(token.SplitLogicalLines(text))
	if err != nil {
		fmt.Fprintf(e.Stderr, "ash: %v\n", err)
		return 1
	}
	return e.Run(nodes)
}

// Run executes a node list. It stops early when a break/continue propagates
// up or the exit builtin has run.
func (e *Engine) Run(nodes []Node) int {
	status := 0
	for _, n := range nodes {
		if e.Dispatch.Exited() {
			return status
		}
		status = e.exec(n)
		if e.loopFlag != loopNone {
			return status
		}
	}
	return status
}

func (e *Engine) exec(n Node) int {
	switch n := n.(type) {
	case Simple:
		switch n.Line {
		case "break":
			e.loopFlag = loopBreak
			return 0
		case "continue":
			e.loopFlag = loopContinue
			return 0
		}
		return e.Dispatch.RunLine(n.Line)

	case If:
		if e.Dispatch.RunLine(n.Cond) == 0 {
			return e.Run(n.Then)
		}
		if len(n.Else) > 0 {
			return e.Run(n.Else)
		}
		return 0

	case While:
		status := 0
		for !e.Dispatch.Exited() && e.Dispatch.RunLine(n.Cond) == 0 {
			status = e.Run(n.Body)
			if e.loopFlag == loopBreak {
				e.loopFlag = loopNone
				break
			}
			if e.loopFlag == loopContinue {
				e.loopFlag = loopNone
			}
		}
		return status

	case For:
		status := 0
		for _, item := range n.Items {
			if e.Dispatch.Exited() {
				return status
			}
			e.Dispatch.SetVar(n.Var, item)
			status = e.Run(n.Body)
			if e.loopFlag == loopBreak {
				e.loopFlag = loopNone
				break
			}
			if e.loopFlag == loopContinue {
				e.loopFlag = loopNone
			}
		}
		return status

	case Case:
		word := e.Dispatch.ExpandWord(n.Word)
		for _, arm := range n.Arms {
			ok, err := path.Match(arm.Pattern, word)
			if err != nil {
				fmt.Fprintf(e.Stderr, "ash: bad pattern: %s\n", arm.Pattern)
				return 1
			}
			if ok {
				if arm.Command == "" {
					return 0
				}
				return e.Dispatch.RunLine(arm.Command)
			}
		}
		return 0

	case FuncDef:
		if err := e.Funcs.Define(n.Name, n.Body); err != nil {
			fmt.Fprintf(e.Stderr, "ash: %s: %v\n", n.Name, err)
			return 1
		}
		return 0
	}
	return 0
}

// CallFunction runs a defined function with positional parameters bound as
// $1..$N in the global variable store. It returns ok=false when no function
// with that name exists. A break/continue inside a function body does not
// escape into the caller's loop.
func (e *Engine) CallFunction(name string, args []string) (status int, ok bool) {
	body, ok := e.Funcs.Find(name)
	if !ok {
		return 0, false
	}
	for i, arg := range args {
		e.Dispatch.SetVar(strconv.Itoa(i+1), arg)
	}
	nodes, err := Parse(body)
	if err != nil {
		fmt.Fprintf(e.Stderr, "ash: %s: %v\n", name, err)
		return 1, true
	}
	saved := e.loopFlag
	e.loopFlag = loopNone
	status = e.Run(nodes)
	e.loopFlag = saved
	return status, true
}
