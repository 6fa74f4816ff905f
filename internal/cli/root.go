// Package cli implements the satvault command-line interface.
//
// This package uses global variables to manage CLI state, which is the standard
// pattern for Cobra-based CLI applications. Per-invocation dependencies are
// built in PersistentPreRunE and carried on the command context.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
package cli

import (
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/mrz1836/satvault/internal/config"
	"github.com/mrz1836/satvault/internal/metrics"
	"github.com/mrz1836/satvault/internal/output"
	vaulterr "github.com/mrz1836/satvault/pkg/errors"
)

const devVersionString = "dev"

// BuildInfo describes the running binary. Set from main via SetBuildInfo.
type BuildInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	Go      string `json:"go"`
}

var (
	// Global flags
	homeDir      string
	outputFormat string
	verbose      bool

	buildInfo = BuildInfo{Version: devVersionString}

	// lastContext is the context built by the most recent invocation, used to
	// pick the error format after Execute returns.
	lastContext *CommandContext
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "satvault",
	Short: "A local, non-custodial Bitcoin savings vault",
	Long: `satvault keeps a single BIP-39 Bitcoin wallet encrypted at rest.

The recovery phrase is generated or restored locally, sealed with a key
derived from your password, and only decrypted into memory while unlocked.
Nothing ever leaves this machine.

Example:
  satvault wallet create --name savings
  satvault wallet status
  satvault wallet address --qr
  satvault backup create`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return initGlobals(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, _ []string) {
		cleanup(cmd)
	},
}

// versionCmd prints build information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cc := GetCmdContext(cmd)
		info := buildInfo
		info.Go = runtime.Version()
		return cc.Formatter.Result(info, func(w io.Writer) error {
			out(w, "satvault %s\n", info.Version)
			fields := output.NewFields("  ")
			if info.Commit != "" {
				fields.Add("commit", info.Commit)
			}
			if info.Date != "" {
				fields.Add("built", info.Date)
			}
			return fields.Add("go", info.Go).Render(w)
		})
	},
}

// SetBuildInfo records version details injected at link time.
func SetBuildInfo(version, commit, date string) {
	if version == "" {
		version = devVersionString
	}
	buildInfo = BuildInfo{Version: version, Commit: commit, Date: date}
	rootCmd.Version = version
}

// Execute runs the root command and prints any error in the active format.
func Execute() error {
	lastContext = nil
	err := rootCmd.Execute()
	if lastContext != nil && lastContext.Logger != nil {
		// PersistentPostRun is skipped when a command fails.
		defer func() { _ = lastContext.Logger.Close() }()
	}
	if err != nil {
		format := output.FormatText
		if lastContext != nil && lastContext.Formatter != nil {
			format = lastContext.Formatter.Format()
		}
		_ = output.FormatError(rootCmd.ErrOrStderr(), err, format)
		return err
	}
	return nil
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	return vaulterr.ExitCode(err)
}

// initGlobals loads configuration and builds the logger and formatter for
// this invocation.
func initGlobals(cmd *cobra.Command) error {
	home := homeDir
	if home == "" {
		home = os.Getenv(config.EnvHome)
	}
	if home == "" {
		home = config.DefaultHome()
	}
	home, err := config.ExpandPath(home)
	if err != nil {
		return vaulterr.WithCause(vaulterr.ErrConfigInvalid, err)
	}

	cfg, err := config.LoadOrDefault(config.Path(home))
	if err != nil {
		return vaulterr.Wrap(err, "loading %s", config.Path(home))
	}
	if err = config.ApplyEnvironment(cfg); err != nil {
		return err
	}
	cfg.Home = home

	if verbose {
		cfg.Output.Verbose = true
		cfg.Logging.Level = "debug"
	}
	if outputFormat != "" && outputFormat != string(output.FormatAuto) {
		cfg.Output.DefaultFormat = outputFormat
	}
	if err = cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg)

	explicitFormat := output.ParseFormat(cfg.Output.DefaultFormat)
	detectedFormat := output.DetectFormat(cmd.OutOrStdout(), explicitFormat)
	formatter := output.NewFormatter(detectedFormat, cmd.OutOrStdout())

	cc := NewCommandContext(cfg, logger, formatter).WithMetrics(metrics.Global)
	SetCmdContext(cmd, cc)
	lastContext = cc

	logger.Debug("satvault %s: %s (home %s, backend %s)", buildInfo.Version, cmd.CommandPath(), home, cfg.Storage.Backend)
	return nil
}

// newLogger opens the configured log file, falling back to a null logger
// when it cannot be created.
func newLogger(cfg *config.Config) *config.Logger {
	path := cfg.LogFile()
	level := config.ParseLogLevel(cfg.Logging.Level)
	var (
		logger *config.Logger
		err    error
	)
	if cfg.Logging.JSON {
		logger, err = config.NewStructuredLogger(level, path)
	} else {
		logger, err = config.NewLogger(level, path)
	}
	if err != nil {
		return config.NullLogger()
	}
	return logger
}

// cleanup releases resources.
func cleanup(cmd *cobra.Command) {
	if cc := contextFrom(cmd); cc != nil && cc.Logger != nil {
		_ = cc.Logger.Close()
	}
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for flag registration
func init() {
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "satvault data directory (default: ~/.satvault)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "auto", "output format: text, json, auto")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(versionCmd)
}
