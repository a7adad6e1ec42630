package interp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"josephlewis.net/ash/core/token"
)

func parseText(t *testing.T, text string) []Node {
	t.Helper()
	nodes, err := Parse(token.SplitLogicalLines(text))
	require.NoError(t, err)
	return nodes
}

func TestParseSimple(t *testing.T) {
	nodes := parseText(t, "echo one\necho two")
	require.Len(t, nodes, 2)
	assert.Equal(t, Simple{Line: "echo one"}, nodes[0])
	assert.Equal(t, Simple{Line: "echo two"}, nodes[1])
}

func TestParseIf(t *testing.T) {
	nodes := parseText(t, "if true; then\necho yes\nfi")
	require.Len(t, nodes, 1)

	ifNode, ok := nodes[0].(If)
	require.True(t, ok)
	assert.Equal(t, "true", ifNode.Cond)
	assert.Equal(t, []Node{Simple{Line: "echo yes"}}, ifNode.Then)
	assert.Empty(t, ifNode.Else)
}

func TestParseIfElse(t *testing.T) {
	nodes := parseText(t, "if false\nthen\necho yes\nelse\necho no\nfi")
	require.Len(t, nodes, 1)

	ifNode := nodes[0].(If)
	assert.Equal(t, "false", ifNode.Cond)
	assert.Equal(t, []Node{Simple{Line: "echo yes"}}, ifNode.Then)
	assert.Equal(t, []Node{Simple{Line: "echo no"}}, ifNode.Else)
}

func TestParseNestedIf(t *testing.T) {
	text := `if a; then
if b; then
echo inner
fi
echo outer
fi`
	nodes := parseText(t, text)
	require.Len(t, nodes, 1)

	outer := nodes[0].(If)
	require.Len(t, outer.Then, 2)
	inner, ok := outer.Then[0].(If)
	require.True(t, ok, "inner fi must close the inner if only")
	assert.Equal(t, "b", inner.Cond)
	assert.Equal(t, Simple{Line: "echo outer"}, outer.Then[1])
}

func TestParseWhile(t *testing.T) {
	nodes := parseText(t, "while test $I; do\necho $I\ndone")
	require.Len(t, nodes, 1)

	whileNode := nodes[0].(While)
	assert.Equal(t, "test $I", whileNode.Cond)
	assert.Equal(t, []Node{Simple{Line: "echo $I"}}, whileNode.Body)
}

func TestParseFor(t *testing.T) {
	nodes := parseText(t, "for I in a b c; do\necho $I\ndone")
	require.Len(t, nodes, 1)

	forNode := nodes[0].(For)
	assert.Equal(t, "I", forNode.Var)
	assert.Equal(t, []string{"a", "b", "c"}, forNode.Items)
	assert.Equal(t, []Node{Simple{Line: "echo $I"}}, forNode.Body)
}

func TestParseForQuotedItems(t *testing.T) {
	nodes := parseText(t, "for W in 'two words' single; do\necho $W\ndone")
	forNode := nodes[0].(For)
	assert.Equal(t, []string{"two words", "single"}, forNode.Items)
}

func TestParseCase(t *testing.T) {
	text := `case $X in
a) echo saw-a ;;
b*) echo saw-b ;;
*) echo default ;;
esac`
	nodes := parseText(t, text)
	require.Len(t, nodes, 1)

	caseNode := nodes[0].(Case)
	assert.Equal(t, "$X", caseNode.Word)
	require.Len(t, caseNode.Arms, 3)
	assert.Equal(t, CaseArm{Pattern: "a", Command: "echo saw-a"}, caseNode.Arms[0])
	assert.Equal(t, CaseArm{Pattern: "b*", Command: "echo saw-b"}, caseNode.Arms[1])
	assert.Equal(t, CaseArm{Pattern: "*", Command: "echo default"}, caseNode.Arms[2])
}

func TestParseFuncDef(t *testing.T) {
	text := `greet() {
echo hello $1
echo bye
}`
	nodes := parseText(t, text)
	require.Len(t, nodes, 1)

	fn := nodes[0].(FuncDef)
	assert.Equal(t, "greet", fn.Name)
	assert.Equal(t, []string{"echo hello $1", "echo bye"}, fn.Body)
}

func TestParseFuncDefTightBrace(t *testing.T) {
	nodes := parseText(t, "f(){\necho x\n}")
	fn := nodes[0].(FuncDef)
	assert.Equal(t, "f", fn.Name)
}

// The ; after then/else/do is optional in shells, so the keyword often
// shares a logical line with the first body command.
func TestParseOneLineIf(t *testing.T) {
	nodes := parseText(t, "if true; then X=1; else X=2; fi")
	require.Len(t, nodes, 1)

	ifNode := nodes[0].(If)
	assert.Equal(t, "true", ifNode.Cond)
	assert.Equal(t, []Node{Simple{Line: "X=1"}}, ifNode.Then)
	assert.Equal(t, []Node{Simple{Line: "X=2"}}, ifNode.Else)
}

func TestParseOneLineFor(t *testing.T) {
	nodes := parseText(t, "for I in a b c; do X=$I; done")
	forNode := nodes[0].(For)
	assert.Equal(t, "I", forNode.Var)
	assert.Equal(t, []string{"a", "b", "c"}, forNode.Items)
	assert.Equal(t, []Node{Simple{Line: "X=$I"}}, forNode.Body)
}

func TestParseOneLineCase(t *testing.T) {
	nodes := parseText(t, "case apple in banana) X=1;; a*) X=2;; esac")
	caseNode := nodes[0].(Case)
	assert.Equal(t, "apple", caseNode.Word)
	require.Len(t, caseNode.Arms, 2)
	assert.Equal(t, CaseArm{Pattern: "banana", Command: "X=1"}, caseNode.Arms[0])
	assert.Equal(t, CaseArm{Pattern: "a*", Command: "X=2"}, caseNode.Arms[1])
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name       string
		text       string
		incomplete bool
	}{
		{"if without fi", "if a; then\necho x", true},
		{"if without then", "if a", true},
		{"while without done", "while a; do\necho x", true},
		{"for without done", "for I in a; do\necho x", true},
		{"case without esac", "case $X in\na) echo x ;;", true},
		{"function without brace", "f() {\necho x", true},
		{"for without in", "for I a b; do\necho x\ndone", false},
		{"for empty items", "for I in; do\necho x\ndone", false},
		{"stray fi", "echo x\nfi", false},
		{"empty if condition", "if\nthen\necho x\nfi", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(token.SplitLogicalLines(tc.text))
			require.Error(t, err)
			if tc.incomplete {
				assert.ErrorIs(t, err, ErrIncomplete)
			} else {
				assert.NotErrorIs(t, err, ErrIncomplete)
			}
		})
	}
}
