// Package cmd is the CLI surface: interactive shell, -c command strings,
// and script files with positional parameters.
package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"josephlewis.net/ash/core"
	"josephlewis.net/ash/core/config"
	"josephlewis.net/ash/core/jobs"
)

var (
	cfgPath       string
	commandString string
	exitStatus    int
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "ash [script [args...]]",
	Short: "A small interactive shell with job control",
	Long: `ash is an interactive Unix shell: pipelines, redirection, job
control, variable/command/arithmetic substitution, and a line-oriented
scripting language (if/while/for/case/functions).

With no arguments it reads commands interactively. With -c it runs the
given command string. With a script file it runs the file, binding any
remaining arguments as $1..$N.`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(afero.NewOsFs(), cfgPath)
		if err != nil {
			return err
		}

		switch {
		case commandString != "":
			exitStatus = runCommandString(cfg, commandString)
		case len(args) > 0:
			exitStatus, err = runScriptFile(cfg, args[0], args[1:])
			if err != nil {
				return err
			}
		default:
			exitStatus, err = runInteractive(cfg)
			if err != nil {
				return err
			}
		}
		return nil
	},
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ash: %v\n", err)
		os.Exit(1)
	}
	os.Exit(exitStatus)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to a config file")
	rootCmd.Flags().StringVarP(&commandString, "command", "c", "", "run this command string and exit")
}

func runCommandString(cfg *config.Configuration, commands string) int {
	s := core.NewSession(cfg, afero.NewOsFs(), nil, os.Stdin, os.Stdout, os.Stderr)
	return s.RunScript(commands)
}

func runScriptFile(cfg *config.Configuration, path string, args []string) (int, error) {
	fs := afero.NewOsFs()
	contents, err := afero.ReadFile(fs, path)
	if err != nil {
		return 1, err
	}

	s := core.NewSession(cfg, fs, nil, os.Stdin, os.Stdout, os.Stderr)
	for i, arg := range args {
		s.SetVar(strconv.Itoa(i+1), arg)
	}
	s.SetVar("0", path)
	return s.RunScript(string(contents)), nil
}

func runInteractive(cfg *config.Configuration) (int, error) {
	term, err := jobs.InitTerminal(int(os.Stdin.Fd()))
	if err != nil {
		return 1, err
	}

	s := core.NewSession(cfg, afero.NewOsFs(), term, os.Stdin, os.Stdout, os.Stderr)
	shell, err := core.NewShell(s)
	if err != nil {
		return 1, err
	}
	shell.Run()
	return s.LastStatus, nil
}
