package config

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "ash", cfg.PromptPrefix)
	assert.Equal(t, 100, cfg.HistorySize)
	assert.NoError(t, cfg.Validate())
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load(afero.NewMemMapFs(), "")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	fs := afero.NewMemMapFs()
	contents := `
prompt_prefix: mysh
history_size: 5
aliases:
  - ll=ls -l
environment:
  - GREETING=hi
`
	require.NoError(t, afero.WriteFile(fs, "config.yaml", []byte(contents), 0644))

	cfg, err := Load(fs, "config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "mysh", cfg.PromptPrefix)
	assert.Equal(t, 5, cfg.HistorySize)
	assert.Equal(t, []string{"ll=ls -l"}, cfg.Aliases)
	assert.Equal(t, []string{"GREETING=hi"}, cfg.Environment)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "config.yaml", []byte("no_such_field: 1\n"), 0644))

	_, err := Load(fs, "config.yaml")
	assert.Error(t, err)
}

func TestLoadValidates(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "config.yaml", []byte("history_size: -1\n"), 0644))

	_, err := Load(fs, "config.yaml")
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(afero.NewMemMapFs(), "nope.yaml")
	assert.Error(t, err)
}
