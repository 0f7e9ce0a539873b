package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/nchhillar/cvexport/internal/config"
	"github.com/nchhillar/cvexport/internal/hints"
	"github.com/nchhillar/cvexport/internal/telemetry"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	envFiles   []string
	logLevel   string
}

func addGlobalFlags(fs *pflag.FlagSet, g *globalFlags) {
	fs.StringVarP(&g.configPath, "config", "c", "", "config file path or name (searched as <name>.yaml in . and ~/.config/cvexport)")
	fs.StringSliceVar(&g.envFiles, "env-file", []string{".env"}, "dotenv files loaded before reading the environment")
	fs.StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn or error (overrides config)")
}

// execute runs the CLI and returns the process exit code.
func execute(args []string, env *Environment) int {
	root, a := newRootCmd(env)
	root.SetArgs(args)

	err := root.Execute()
	if err == nil {
		return ExitSuccess
	}

	if strings.HasPrefix(err.Error(), "unknown command") {
		err = fmt.Errorf("%w: %v", errUsage, err)
	}

	msg := err.Error()
	if errors.Is(err, config.ErrConfigNotFound) {
		msg += hints.ForConfigNotFound(triedPaths(msg))
	} else if a.cfg != nil {
		msg += hints.For(err, a.hintContext())
	}
	fmt.Fprintln(env.Stderr, "error:", msg)
	return exitCodeFor(err)
}

// triedPaths extracts the search list from a config-not-found message.
func triedPaths(msg string) []string {
	_, list, ok := strings.Cut(msg, "tried ")
	if !ok {
		return nil
	}
	return strings.Split(list, ", ")
}

// noArgs rejects positional arguments as a usage error.
func noArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	return nil
}

// newRootCmd builds the command tree. The returned app is filled in by
// the root pre-run before any subcommand executes.
func newRootCmd(env *Environment) (*cobra.Command, *app) {
	a := &app{env: env}
	var g globalFlags

	root := &cobra.Command{
		Use:           "cvexport",
		Short:         "Serve and export a resume as PDF or JPEG through headless Chrome",
		Version:       Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(g)
		},
	}
	root.SetOut(env.Stdout)
	root.SetErr(env.Stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", errUsage, err)
	})
	addGlobalFlags(root.PersistentFlags(), &g)

	root.AddCommand(
		newServeCmd(a),
		newExportCmd(a),
		newDoctorCmd(a),
		newConfigCmd(a),
		newVersionCmd(env),
	)
	return root, a
}

// load reads .env files, the config file and the environment, then
// configures logging. Log lines go to stderr so stdout carries only
// command output such as YAML, JSON or an exported document.
func (a *app) load(g globalFlags) error {
	telemetry.SetOutput(a.env.Stderr)

	if err := config.LoadDotenv(g.envFiles...); err != nil {
		return err
	}

	cfg, err := config.Load(g.configPath, a.env.Lookup)
	if err != nil {
		return err
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	level, err := telemetry.ParseLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	telemetry.SetLevel(level)

	for _, name := range config.UnknownEnvVars(a.env.Environ()) {
		telemetry.Warn("config.unknown_env", map[string]any{"name": name})
	}

	a.cfg = cfg
	return nil
}

func newVersionCmd(env *Environment) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  noArgs,
		// Skip config loading.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(*cobra.Command, []string) {
			fmt.Fprintln(env.Stdout, "cvexport", Version)
		},
	}
}

func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  noArgs,
		RunE: func(*cobra.Command, []string) error {
			out, err := a.cfg.Encode()
			if err != nil {
				return err
			}
			_, err = a.env.Stdout.Write(out)
			return err
		},
	}
}
