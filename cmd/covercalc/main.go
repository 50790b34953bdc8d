// Package main provides the covercalc command-line tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const configName = ".covercalc"

// app carries the state shared by subcommands.
type app struct {
	v      *viper.Viper
	fs     afero.Fs
	logger *zap.Logger
	stdout io.Writer
	stderr io.Writer
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

func execute(args []string, stdout, stderr io.Writer) int {
	a := &app{
		v:      viper.New(),
		fs:     afero.NewOsFs(),
		logger: zap.NewNop(),
		stdout: stdout,
		stderr: stderr,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := a.newRootCmd()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	_ = a.logger.Sync()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCode(err)
	}
	return ExitSuccess
}

func exitCode(err error) int {
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return ExitUsage
	}
	return ExitError
}

func (a *app) newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "covercalc",
		Short: "Target coverage and gap calculator",
		Long: `covercalc - compute per-sample coverage of target regions.

Target bases come from a BED, GTF or GFF3 annotation; per-sample depth comes
from a depth table or genotype qualities in a VCF/gVCF. Bases below the
minimum depth are reported as gap regions, and the fraction of bases that
pass is reported per group.`,
		Version:       buildVersion(version, commit, date),
		Args:          usageArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.initConfig(cmd, cfgFile); err != nil {
				return err
			}
			logger, err := newLogger(a.v.GetString("log-level"), a.v.GetString("log-format"), a.stderr)
			if err != nil {
				return err
			}
			a.logger = logger
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.covercalc.yaml)")
	root.PersistentFlags().String("log-level", "info", "logging level: debug, info, warn, error")
	root.PersistentFlags().String("log-format", "console", "log format: console or json")

	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &ConfigError{Field: "flags", Message: err.Error()}
	})
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.AddCommand(a.newRunCmd())
	root.AddCommand(a.newResultsCmd())
	root.AddCommand(a.newConfigCmd())
	root.AddCommand(a.newVersionCmd())

	return root
}

// initConfig layers flags over COVERCALC_* environment variables over the
// config file.
func (a *app) initConfig(cmd *cobra.Command, cfgFile string) error {
	a.v.SetEnvPrefix("covercalc")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}

	if cfgFile != "" {
		a.v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		a.v.AddConfigPath(home)
		a.v.SetConfigName(configName)
		a.v.SetConfigType("yaml")
	}

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return &ConfigError{Field: "config", Message: err.Error()}
	}
	return nil
}

// defaultConfigPath returns ~/.covercalc.yaml.
func defaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, configName+".yaml"), nil
}

// usageArgs reports positional argument errors, including unknown
// subcommands, as usage errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return &ConfigError{Field: "arguments", Message: err.Error()}
		}
		return nil
	}
}

func buildVersion(version, commit, date string) string {
	result := fmt.Sprintf("version: %s", version)
	if commit != "" {
		result = fmt.Sprintf("%s\ncommit: %s", result, commit)
	}
	if date != "" {
		result = fmt.Sprintf("%s\nbuilt at: %s", result, date)
	}
	return result
}

func (a *app) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(a.stdout, cmd.Root().Version)
			return nil
		},
	}
}
