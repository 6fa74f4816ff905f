// Package config provides configuration management for satvault.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mrz1836/satvault/internal/fileutil"
	"github.com/mrz1836/satvault/internal/store"
	"github.com/mrz1836/satvault/internal/vaultcrypto"
	"github.com/mrz1836/satvault/internal/wallet"
	vaulterr "github.com/mrz1836/satvault/pkg/errors"
)

// Config represents the application configuration.
type Config struct {
	Version    int              `yaml:"version"`
	Home       string           `yaml:"home"`
	Storage    StorageConfig    `yaml:"storage"`
	Encryption EncryptionConfig `yaml:"encryption"`
	Wallet     WalletConfig     `yaml:"wallet"`
	Security   SecurityConfig   `yaml:"security"`
	Backup     BackupConfig     `yaml:"backup"`
	Output     OutputConfig     `yaml:"output"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// StorageConfig selects where the encrypted record lives.
type StorageConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path,omitempty"`
}

// EncryptionConfig selects the KDF and cipher for new records. Existing
// records always decrypt with the parameters stored alongside them.
type EncryptionConfig struct {
	KDF    string `yaml:"kdf"`
	Cipher string `yaml:"cipher"`
}

// WalletConfig defines defaults for newly created wallets.
type WalletConfig struct {
	Network   string `yaml:"network"`
	WordCount int    `yaml:"word_count"`
}

// SecurityConfig defines session and unlock settings.
type SecurityConfig struct {
	AutoLockMinutes     int     `yaml:"auto_lock_minutes"`
	UnlockRatePerSecond float64 `yaml:"unlock_rate_per_second"`
	UnlockBurst         int     `yaml:"unlock_burst"`
	MemoryLock          bool    `yaml:"memory_lock"`
}

// BackupConfig defines where backup files are written.
type BackupConfig struct {
	Dir string `yaml:"dir,omitempty"`
}

// OutputConfig defines output formatting settings.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format"`
	Color         string `yaml:"color"`
	Verbose       bool   `yaml:"verbose"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
	JSON  bool   `yaml:"json"`
}

// Load reads configuration from path on top of Defaults.
func Load(path string) (*Config, error) {
	// #nosec G304 -- config file path is from validated user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, vaulterr.WithCause(vaulterr.ErrConfigInvalid, err)
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields Defaults.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Defaults(), nil
	}
	return cfg, err
}

// Save writes cfg to path atomically with private permissions.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return fileutil.WriteAtomic(path, data, 0o600)
}

// Path returns the config file path inside home.
func Path(home string) string {
	return filepath.Join(home, "config.yaml")
}

// DefaultHome returns the default satvault home directory.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".satvault"
	}
	return filepath.Join(home, ".satvault")
}

// Validate rejects unknown enum values and out-of-range numbers.
func (c *Config) Validate() error {
	fail := func(field, format string, args ...any) error {
		return vaulterr.WithDetails(vaulterr.ErrConfigInvalid, map[string]string{
			"field":  field,
			"reason": fmt.Sprintf(format, args...),
		})
	}

	if _, err := store.ParseBackend(c.Storage.Backend); err != nil {
		return fail("storage.backend", "unknown backend %q", c.Storage.Backend)
	}
	if _, err := vaultcrypto.DefaultKDFParams(vaultcrypto.KDF(c.Encryption.KDF)); err != nil {
		return fail("encryption.kdf", "unknown kdf %q", c.Encryption.KDF)
	}
	if !vaultcrypto.Cipher(c.Encryption.Cipher).Valid() {
		return fail("encryption.cipher", "unknown cipher %q", c.Encryption.Cipher)
	}
	if _, err := wallet.ParseNetwork(c.Wallet.Network); err != nil {
		return fail("wallet.network", "unknown network %q", c.Wallet.Network)
	}
	switch c.Wallet.WordCount {
	case 0, 12, 15, 18, 21, 24:
	default:
		return fail("wallet.word_count", "must be 12, 15, 18, 21 or 24")
	}
	if c.Security.AutoLockMinutes < 0 || c.Security.AutoLockMinutes > 60 {
		return fail("security.auto_lock_minutes", "must be between 0 and 60")
	}
	if c.Security.UnlockRatePerSecond < 0 || c.Security.UnlockBurst < 0 {
		return fail("security.unlock_rate_per_second", "must not be negative")
	}
	switch c.Output.DefaultFormat {
	case "", "auto", "text", "json":
	default:
		return fail("output.default_format", "unknown format %q", c.Output.DefaultFormat)
	}
	switch c.Logging.Level {
	case "", "off", "none", "error", "debug":
	default:
		return fail("logging.level", "unknown level %q", c.Logging.Level)
	}
	return nil
}

// KDFParams returns the documented work factor for the configured KDF.
func (c *Config) KDFParams() (vaultcrypto.KDFParams, error) {
	return vaultcrypto.DefaultKDFParams(vaultcrypto.KDF(c.Encryption.KDF))
}

// CipherValue returns the configured cipher.
func (c *Config) CipherValue() vaultcrypto.Cipher {
	return vaultcrypto.Cipher(c.Encryption.Cipher)
}

// NetworkValue returns the configured network, defaulting to mainnet.
func (c *Config) NetworkValue() wallet.Network {
	n, err := wallet.ParseNetwork(c.Wallet.Network)
	if err != nil {
		return wallet.Mainnet
	}
	return n
}

// StorageOptions returns the store options for home.
func (c *Config) StorageOptions(home string) store.Options {
	return store.Options{
		Backend: store.Backend(c.Storage.Backend),
		Path:    c.Storage.Path,
		Home:    home,
	}
}

// AutoLockTTL returns the idle auto-lock duration; zero disables it.
func (c *Config) AutoLockTTL() time.Duration {
	return time.Duration(c.Security.AutoLockMinutes) * time.Minute
}

// BackupDir returns the backup directory for home.
func (c *Config) BackupDir(home string) string {
	if c.Backup.Dir != "" {
		return c.Backup.Dir
	}
	return filepath.Join(home, "backups")
}

// LogFile returns the expanded log file path. The default location is
// resolved inside Home so a custom home keeps its log alongside its data.
func (c *Config) LogFile() string {
	switch c.Logging.File {
	case "":
		return ""
	case DefaultLogFile:
		return filepath.Join(c.Home, "satvault.log")
	}
	p, err := ExpandPath(c.Logging.File)
	if err != nil {
		return c.Logging.File
	}
	return p
}

// GetLoggingLevel returns the configured logging level.
func (c *Config) GetLoggingLevel() string {
	return c.Logging.Level
}

// GetLoggingFile returns the configured log file path.
func (c *Config) GetLoggingFile() string {
	return c.Logging.File
}

// GetOutputFormat returns the default output format.
func (c *Config) GetOutputFormat() string {
	return c.Output.DefaultFormat
}

// IsVerbose returns true if verbose output is enabled.
func (c *Config) IsVerbose() bool {
	return c.Output.Verbose
}
