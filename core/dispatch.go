package core

import (
	"fmt"
	"strings"

	"josephlewis.net/ash/core/expand"
	"josephlewis.net/ash/core/token"
)

// RunLine executes one command line through the full path: logic-operator
// split, background marker, pipeline split, word split, expansion, then
// function/builtin/external dispatch. It is the dispatcher the interpreter
// re-enters for every condition and body line, so control-flow constructs
// get pipelines, redirection, and substitution for free.
func (s *Session) RunLine(line string) int {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return 0
	}

	// && and || split first; the right side only runs when the left side's
	// status calls for it.
	if idx, isAnd := token.FindLogicOp(line); idx != -1 {
		status := s.RunLine(line[:idx])
		if (isAnd && status == 0) || (!isAnd && status != 0) {
			status = s.RunLine(line[idx+2:])
		}
		s.LastStatus = status
		return status
	}

	line, background := token.StripBackground(line)
	stages := token.SplitPipeline(line)

	var status int
	if len(stages) > 1 {
		status = s.executePipeline(stages, background, line)
	} else {
		status = s.runSimple(stages[0], background, line)
	}
	s.LastStatus = status
	return status
}

// runSimple handles a single non-piped command.
func (s *Session) runSimple(stage string, background bool, display string) int {
	argv := token.SplitWords(stage)
	argv = s.Expand.ExpandAliases(argv)
	if len(argv) == 0 {
		return 0
	}

	// Pure-assignment lines mutate the variable store and never execute.
	// Values get substitution and variable expansion but not glob, which
	// only applies to argument vectors.
	if expand.IsAssignments(argv) {
		for _, arg := range argv {
			name, value := expand.SplitAssignment(arg)
			if err := s.Vars.Set(name, s.Expand.ExpandWord(value)); err != nil {
				fmt.Fprintf(s.Stderr, "ash: %v\n", err)
				return 1
			}
		}
		return 0
	}

	argv = s.Expand.ExpandArgs(argv)
	if len(argv) == 0 {
		return 0
	}

	// Functions shadow builtins, builtins shadow externals.
	if status, ok := s.Engine.CallFunction(argv[0], argv[1:]); ok {
		return status
	}
	if builtin, ok := AllBuiltins[argv[0]]; ok {
		return builtin.Main(s, argv)
	}
	return s.executeSimple(argv, background, display)
}
