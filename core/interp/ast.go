// Package interp implements the script interpreter: a line-oriented parser
// that builds a control-flow AST (if/while/for/case/function definitions)
// and an engine that walks it by re-entering the shell's command dispatch.
package interp

// Node is one parsed script construct.
type Node interface {
	node()
}

// Simple is a plain command line, executed through the dispatcher. The
// bare words "break" and "continue" are recognized by the engine before
// dispatch.
type Simple struct {
	Line string
}

// If runs Cond as a command; exit status 0 selects Then, anything else
// selects Else (which may be empty).
type If struct {
	Cond string
	Then []Node
	Else []Node
}

// While re-evaluates Cond before each iteration and loops while it exits 0.
type While struct {
	Cond string
	Body []Node
}

// For binds Var to each item in order and runs Body once per item.
type For struct {
	Var   string
	Items []string
	Body  []Node
}

// Case matches Word against each arm's glob pattern; the first match runs
// its command and stops scanning.
type Case struct {
	Word string
	Arms []CaseArm
}

// CaseArm is one "PATTERN) COMMAND ;;" entry.
type CaseArm struct {
	Pattern string
	Command string
}

// FuncDef stores a function's body lines verbatim for later invocation.
type FuncDef struct {
	Name string
	Body []string
}

func (Simple) node()  {}
func (If) node()      {}
func (While) node()   {}
func (For) node()     {}
func (Case) node()    {}
func (FuncDef) node() {}
