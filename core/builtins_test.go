package core

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"josephlewis.net/ash/core/config"
)

func TestBuiltinRegistry(t *testing.T) {
	for _, name := range []string{
		"cd", "exit", "history", "jobs", "fg", "bg",
		"export", "source", "let", "alias", "unalias", "help",
	} {
		_, ok := AllBuiltins[name]
		assert.True(t, ok, "builtin %q must be registered", name)
	}
}

func TestCd(t *testing.T) {
	orig, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { os.Chdir(orig) })

	dir := t.TempDir()
	s, _, stderr := newTestSession(t)

	assert.Equal(t, 0, Cd(s, []string{"cd", dir}))
	got, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	assert.Equal(t, 1, Cd(s, []string{"cd", "/definitely/not/here"}))
	assert.NotEmpty(t, stderr.String())

	assert.Equal(t, 1, Cd(s, []string{"cd", "a", "b"}))
}

func TestExitStatusArgument(t *testing.T) {
	s, _, _ := newTestSession(t)
	assert.Equal(t, 7, Exit(s, []string{"exit", "7"}))
	assert.True(t, s.Exited())

	s2, _, stderr := newTestSession(t)
	assert.Equal(t, 2, Exit(s2, []string{"exit", "notanumber"}))
	assert.True(t, s2.Exited())
	assert.Contains(t, stderr.String(), "numeric argument required")
}

func TestExportAssignsAndLists(t *testing.T) {
	s, stdout, _ := newTestSession(t)

	assert.Equal(t, 0, Export(s, []string{"export", "ASH_TEST_EXPORT=exported"}))
	assert.Equal(t, "exported", varValue(t, s, "ASH_TEST_EXPORT"))
	assert.Contains(t, s.Vars.Environ(), "ASH_TEST_EXPORT=exported")
	assert.Empty(t, os.Getenv("ASH_TEST_EXPORT"), "export must not touch the shell's own environment")

	// Bare-name form exports an existing variable.
	s.RunLine("ASH_TEST_BARE=bare")
	assert.Equal(t, 0, Export(s, []string{"export", "ASH_TEST_BARE"}))
	assert.Contains(t, s.Vars.Environ(), "ASH_TEST_BARE=bare")

	// Bare-name form fails on undefined variables.
	assert.Equal(t, 1, Export(s, []string{"export", "ASH_TEST_UNDEFINED"}))

	stdout.Reset()
	assert.Equal(t, 0, Export(s, []string{"export"}))
	assert.Contains(t, stdout.String(), "ASH_TEST_EXPORT=exported")
}

func TestSource(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "rc.sh", []byte("X=sourced\nalias s='echo s'\n"), 0644))

	stdout := &bytes.Buffer{}
	s := NewSession(config.Default(), fs, nil, strings.NewReader(""), stdout, &bytes.Buffer{})

	assert.Equal(t, 0, Source(s, []string{"source", "rc.sh"}))
	assert.Equal(t, "sourced", varValue(t, s, "X"))
	_, ok := s.Aliases.Get("s")
	assert.True(t, ok, "source runs in the current session")

	assert.Equal(t, 1, Source(s, []string{"source", "missing.sh"}))
	assert.Equal(t, 1, Source(s, []string{"source"}))
}

func TestLet(t *testing.T) {
	s, stdout, stderr := newTestSession(t)

	assert.Equal(t, 0, Let(s, []string{"let", "1", "+", "2"}))
	assert.Equal(t, "3\n", stdout.String())

	assert.Equal(t, 0, Let(s, []string{"let", "N=6*7"}))
	assert.Equal(t, "42", varValue(t, s, "N"))

	assert.Equal(t, 0, Let(s, []string{"let", "M=N+1"}))
	assert.Equal(t, "43", varValue(t, s, "M"))

	assert.Equal(t, 1, Let(s, []string{"let", "1/0"}))
	assert.Contains(t, stderr.String(), "division by zero")

	assert.Equal(t, 1, Let(s, []string{"let"}))
}

func TestAliasBuiltin(t *testing.T) {
	s, stdout, stderr := newTestSession(t)

	assert.Equal(t, 0, Alias(s, []string{"alias", "ll=ls -l"}))
	got, ok := s.Aliases.Get("ll")
	require.True(t, ok)
	assert.Equal(t, "ls -l", got)

	stdout.Reset()
	assert.Equal(t, 0, Alias(s, []string{"alias", "ll"}))
	assert.Equal(t, "alias ll='ls -l'\n", stdout.String())

	stdout.Reset()
	assert.Equal(t, 0, Alias(s, []string{"alias"}))
	assert.Equal(t, "alias ll='ls -l'\n", stdout.String())

	assert.Equal(t, 1, Alias(s, []string{"alias", "missing"}))
	assert.Contains(t, stderr.String(), "not found")
}

func TestUnalias(t *testing.T) {
	s, _, _ := newTestSession(t)
	require.NoError(t, s.Aliases.Set("gone", "soon"))

	assert.Equal(t, 0, Unalias(s, []string{"unalias", "gone"}))
	_, ok := s.Aliases.Get("gone")
	assert.False(t, ok)

	assert.Equal(t, 1, Unalias(s, []string{"unalias"}))
}

func TestHistoryBuiltin(t *testing.T) {
	s, stdout, _ := newTestSession(t)
	s.AddHistory("echo one")
	s.AddHistory("echo two")

	assert.Equal(t, 0, History(s, []string{"history"}))
	assert.Contains(t, stdout.String(), "1  echo one")
	assert.Contains(t, stdout.String(), "2  echo two")

	assert.Equal(t, 0, History(s, []string{"history", "-c"}))
	assert.Empty(t, s.History())
}

func TestJobsBuiltinEmptyTable(t *testing.T) {
	s, stdout, _ := newTestSession(t)
	assert.Equal(t, 0, Jobs(s, []string{"jobs"}))
	assert.Empty(t, stdout.String())
}

func TestFgBgBadArguments(t *testing.T) {
	s, _, stderr := newTestSession(t)

	assert.Equal(t, 1, Fg(s, []string{"fg"}))
	assert.Equal(t, 1, Fg(s, []string{"fg", "notanumber"}))
	assert.Equal(t, 1, Fg(s, []string{"fg", "3"}), "no such job")
	assert.Equal(t, 1, Bg(s, []string{"bg", "3"}))
	assert.NotEmpty(t, stderr.String())
}

func TestHelpListsBuiltins(t *testing.T) {
	s, stdout, _ := newTestSession(t)
	assert.Equal(t, 0, Help(s, []string{"help"}))
	for name := range AllBuiltins {
		assert.Contains(t, stdout.String(), name)
	}
}
