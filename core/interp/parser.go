package interp

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"josephlewis.net/ash/core/token"
)

var funcDefRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\(\)\s*\{$`)

// ErrIncomplete marks a construct whose terminator has not arrived yet.
// The interactive loop uses it to keep reading continuation lines instead
// of reporting a syntax error.
var ErrIncomplete = errors.New("incomplete input")

// Parse builds an AST from pre-split logical lines. Construct bodies nest
// by recursion, so an inner "fi" never closes an outer "if".
func Parse(lines []string) ([]Node, error) {
	p := &parser{lines: normalize(lines)}
	nodes, term, err := p.parseNodes(nil)
	if err != nil {
		return nil, err
	}
	if term != "" {
		return nil, fmt.Errorf("syntax error: unexpected %q", term)
	}
	return nodes, nil
}

type parser struct {
	lines []string
	pos   int
}

// normalize splits a body-opener keyword that shares a logical line with a
// command ("then X=1", "do work") into separate lines, so construct
// matching can compare whole lines. Shells make the ; after then/else/do
// optional; top-level ; splitting already happened upstream.
func normalize(lines []string) []string {
	var out []string
	for _, line := range lines {
		for {
			i := strings.IndexByte(line, ' ')
			if i == -1 {
				break
			}
			first := line[:i]
			if first != "then" && first != "else" && first != "do" {
				break
			}
			out = append(out, first)
			line = strings.TrimSpace(line[i:])
		}
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// parseNodes consumes nodes until one of the terminator lines appears at
// this nesting level, returning the terminator seen ("" at end of input).
func (p *parser) parseNodes(terminators []string) ([]Node, string, error) {
	var nodes []Node
	for p.pos < len(p.lines) {
		line := p.lines[p.pos]
		for _, t := range terminators {
			if line == t {
				p.pos++
				return nodes, line, nil
			}
		}
		node, err := p.parseNode()
		if err != nil {
			return nil, "", err
		}
		nodes = append(nodes, node)
	}
	return nodes, "", nil
}

func (p *parser) parseNode() (Node, error) {
	line := p.lines[p.pos]
	first := line
	if i := strings.IndexByte(line, ' '); i != -1 {
		first = line[:i]
	}
	switch {
	case first == "if":
		return p.parseIf()
	case first == "while":
		return p.parseWhile()
	case first == "for":
		return p.parseFor()
	case first == "case":
		return p.parseCase()
	case funcDefRe.MatchString(line):
		return p.parseFuncDef()
	case token.IsKeyword(first):
		// A terminator with no construct open, like a stray "fi".
		return nil, fmt.Errorf("syntax error: unexpected %q", first)
	}
	p.pos++
	return Simple{Line: line}, nil
}

// parseHeader collects the text between a keyword and its body opener
// ("then" or "do"). The opener may trail the same line or stand alone on
// a later one.
func (p *parser) parseHeader(keyword, opener string) (string, error) {
	line := p.lines[p.pos]
	p.pos++
	head := strings.TrimSpace(strings.TrimPrefix(line, keyword))
	for {
		if head == opener {
			return "", fmt.Errorf("syntax error: empty %s condition", keyword)
		}
		if strings.HasSuffix(head, " "+opener) {
			return strings.TrimSpace(strings.TrimSuffix(head, opener)), nil
		}
		if p.pos >= len(p.lines) {
			return "", fmt.Errorf("syntax error: %s without %s: %w", keyword, opener, ErrIncomplete)
		}
		next := p.lines[p.pos]
		p.pos++
		if next == opener {
			head = strings.TrimSpace(head)
			if head == "" {
				return "", fmt.Errorf("syntax error: empty %s condition", keyword)
			}
			return head, nil
		}
		head = strings.TrimSpace(head + " " + next)
	}
}

func (p *parser) parseIf() (Node, error) {
	cond, err := p.parseHeader("if", "then")
	if err != nil {
		return nil, err
	}
	then, term, err := p.parseNodes([]string{"else", "fi"})
	if err != nil {
		return nil, err
	}
	if term == "" {
		return nil, fmt.Errorf("syntax error: if without fi: %w", ErrIncomplete)
	}
	var elseNodes []Node
	if term == "else" {
		elseNodes, term, err = p.parseNodes([]string{"fi"})
		if err != nil {
			return nil, err
		}
		if term == "" {
			return nil, fmt.Errorf("syntax error: if without fi: %w", ErrIncomplete)
		}
	}
	return If{Cond: cond, Then: then, Else: elseNodes}, nil
}

func (p *parser) parseWhile() (Node, error) {
	cond, err := p.parseHeader("while", "do")
	if err != nil {
		return nil, err
	}
	body, term, err := p.parseNodes([]string{"done"})
	if err != nil {
		return nil, err
	}
	if term == "" {
		return nil, fmt.Errorf("syntax error: while without done: %w", ErrIncomplete)
	}
	return While{Cond: cond, Body: body}, nil
}

func (p *parser) parseFor() (Node, error) {
	head, err := p.parseHeader("for", "do")
	if err != nil {
		return nil, err
	}
	words := token.SplitWords(head)
	if len(words) < 2 || words[1] != "in" {
		return nil, fmt.Errorf("syntax error: for without in")
	}
	if len(words) < 3 {
		return nil, fmt.Errorf("syntax error: empty for-loop item list")
	}
	body, term, err := p.parseNodes([]string{"done"})
	if err != nil {
		return nil, err
	}
	if term == "" {
		return nil, fmt.Errorf("syntax error: for without done: %w", ErrIncomplete)
	}
	return For{Var: words[0], Items: words[2:], Body: body}, nil
}

func (p *parser) parseCase() (Node, error) {
	line := p.lines[p.pos]
	p.pos++
	head := strings.TrimSpace(strings.TrimPrefix(line, "case"))

	// The first arm may trail the header on the same logical line:
	// "case apple in banana) X=1".
	var word, pending string
	switch {
	case strings.HasSuffix(head, " in"):
		word = strings.TrimSpace(strings.TrimSuffix(head, " in"))
	case strings.Contains(head, " in "):
		i := strings.Index(head, " in ")
		word = strings.TrimSpace(head[:i])
		pending = strings.TrimSpace(head[i+len(" in "):])
	default:
		return nil, fmt.Errorf("syntax error: case without in")
	}
	if word == "" {
		return nil, fmt.Errorf("syntax error: case without word")
	}

	var arms []CaseArm
	addArm := func(line string) {
		paren := strings.IndexByte(line, ')')
		if paren == -1 {
			// Stray ";;" or blank filler between arms.
			return
		}
		pattern := strings.TrimSpace(line[:paren])
		command := strings.TrimSpace(line[paren+1:])
		command = strings.TrimSpace(strings.TrimSuffix(command, ";;"))
		arms = append(arms, CaseArm{Pattern: pattern, Command: command})
	}
	if pending != "" {
		addArm(pending)
	}

	for {
		if p.pos >= len(p.lines) {
			return nil, fmt.Errorf("syntax error: case without esac: %w", ErrIncomplete)
		}
		line := p.lines[p.pos]
		p.pos++
		if line == "esac" {
			return Case{Word: word, Arms: arms}, nil
		}
		addArm(line)
	}
}

func (p *parser) parseFuncDef() (Node, error) {
	line := p.lines[p.pos]
	p.pos++
	name := funcDefRe.FindStringSubmatch(line)[1]

	// Body lines are stored verbatim; nested braces are tracked per line so
	// inner function definitions don't close the outer one early.
	depth := 1
	var body []string
	for p.pos < len(p.lines) {
		line := p.lines[p.pos]
		p.pos++
		if strings.Contains(line, "{") {
			depth++
		}
		if strings.Contains(line, "}") {
			depth--
			if depth == 0 {
				return FuncDef{Name: name, Body: body}, nil
			}
		}
		body = append(body, line)
	}
	return nil, fmt.Errorf("syntax error: function %s without closing }: %w", name, ErrIncomplete)
}
