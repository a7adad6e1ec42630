// Package config loads and validates the shell's startup configuration.
package config

import (
	_ "embed"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"sigs.k8s.io/yaml"
)

//go:embed default/config.yaml
var defaultConfigData []byte

// Configuration controls the interactive shell's presentation and startup
// state. All fields have working defaults; a config file only overrides.
type Configuration struct {
	// PromptPrefix appears before the working directory in the prompt.
	PromptPrefix string `json:"prompt_prefix" validate:"required"`

	// HistorySize bounds the in-memory history ring.
	HistorySize int `json:"history_size" validate:"gt=0,lte=10000"`

	// HistoryFile persists readline history across sessions; empty disables
	// persistence.
	HistoryFile string `json:"history_file"`

	// Environment lists NAME=VALUE pairs set (and exported) at startup.
	Environment []string `json:"environment"`

	// Aliases lists name=value pairs defined at startup.
	Aliases []string `json:"aliases"`
}

// Validate checks the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	})
	return validate.Struct(c)
}

// Default returns the embedded default configuration.
func Default() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	return &out
}
