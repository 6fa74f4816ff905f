package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mrz1836/satvault/internal/config"
	"github.com/mrz1836/satvault/internal/fileutil"
	"github.com/mrz1836/satvault/internal/output"
	vaulterr "github.com/mrz1836/satvault/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var configForce bool

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var (
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  `View and initialize satvault configuration settings.`,
	}

	configInitCmd = &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration",
		Long: `Create a default configuration file at ~/.satvault/config.yaml.

If a configuration file already exists, this command will not overwrite it
unless --force is specified.

Example:
  satvault config init
  satvault config init --force`,
		Args: cobra.NoArgs,
		RunE: runConfigInit,
	}

	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long: `Display the configuration after the file, environment variables and
flags have been applied.

Example:
  satvault config show
  satvault config show -o json`,
		Args: cobra.NoArgs,
		RunE: runConfigShow,
	}

	configPathCmd = &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		Args:  cobra.NoArgs,
		RunE:  runConfigPath,
	}
)

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite existing configuration")
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	configPath := config.Path(cc.Config.Home)

	if fileutil.Exists(configPath) && !configForce {
		return vaulterr.WithSuggestion(
			vaulterr.WithDetails(vaulterr.ErrInvalidInput, map[string]string{"path": configPath}),
			"configuration already exists. Use --force to overwrite.",
		)
	}

	defaultCfg := config.Defaults()
	defaultCfg.Home = cc.Config.Home
	if err := config.Save(defaultCfg, configPath); err != nil {
		return vaulterr.WithCause(vaulterr.ErrStorage, err)
	}

	return cc.Formatter.Result(map[string]string{"path": configPath}, func(w io.Writer) error {
		output.Successf(w, "Configuration initialized at %s", configPath)
		outln(w)
		outln(w, "Edit this file to configure:")
		outln(w, "  - storage.backend: file, sqlite, keyring or memory")
		outln(w, "  - encryption.kdf: argon2id, scrypt or pbkdf2-sha256")
		outln(w, "  - wallet.network: mainnet or testnet")
		outln(w, "  - security.auto_lock_minutes: idle minutes before the shell locks (0 disables)")
		outln(w, "  - logging.level: off, error or debug")
		return nil
	})
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	if cc.Formatter.IsJSON() {
		return cc.Formatter.Print(configView(cc.Config))
	}

	data, err := yaml.Marshal(cc.Config)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	out(w, "# %s\n", config.Path(cc.Config.Home))
	_, err = w.Write(data)
	return err
}

// configView mirrors Config with JSON tags for -o json.
func configView(c *config.Config) map[string]any {
	return map[string]any{
		"version": c.Version,
		"home":    c.Home,
		"storage": map[string]string{"backend": c.Storage.Backend, "path": c.Storage.Path},
		"encryption": map[string]string{
			"kdf":    c.Encryption.KDF,
			"cipher": c.Encryption.Cipher,
		},
		"wallet": map[string]any{"network": c.Wallet.Network, "word_count": c.Wallet.WordCount},
		"security": map[string]any{
			"auto_lock_minutes":      c.Security.AutoLockMinutes,
			"unlock_rate_per_second": c.Security.UnlockRatePerSecond,
			"unlock_burst":           c.Security.UnlockBurst,
			"memory_lock":            c.Security.MemoryLock,
		},
		"backup": map[string]string{"dir": c.BackupDir(c.Home)},
		"output": map[string]any{
			"default_format": c.Output.DefaultFormat,
			"color":          c.Output.Color,
			"verbose":        c.Output.Verbose,
		},
		"logging": map[string]any{"level": c.Logging.Level, "file": c.LogFile(), "json": c.Logging.JSON},
	}
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	path := config.Path(cc.Config.Home)
	_, statErr := os.Stat(path)
	view := map[string]any{"path": path, "exists": statErr == nil}
	return cc.Formatter.Result(view, func(w io.Writer) error {
		outln(w, path)
		return nil
	})
}
