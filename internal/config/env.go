package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/kelseyhightower/envconfig"

	vaulterr "github.com/mrz1836/satvault/pkg/errors"
)

// EnvPrefix prefixes every satvault environment variable.
const EnvPrefix = "SATVAULT"

// Environment variable names.
const (
	EnvHome           = "SATVAULT_HOME"
	EnvStorageBackend = "SATVAULT_STORAGE_BACKEND"
	EnvNetwork        = "SATVAULT_NETWORK"
	EnvLogLevel       = "SATVAULT_LOG_LEVEL"
	EnvOutputFormat   = "SATVAULT_OUTPUT_FORMAT"
	EnvVerbose        = "SATVAULT_VERBOSE"
	EnvAutoLock       = "SATVAULT_AUTO_LOCK"
	EnvNoColor        = "NO_COLOR"
)

// overrides mirrors the SATVAULT_* variables. Empty means unset.
type overrides struct {
	Home           string
	StorageBackend string `split_words:"true"`
	Network        string
	LogLevel       string `split_words:"true"`
	OutputFormat   string `split_words:"true"`
	Verbose        string
	AutoLock       *int `split_words:"true"`
}

// ApplyEnvironment applies environment variable overrides to cfg.
func ApplyEnvironment(cfg *Config) error {
	var env overrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return vaulterr.WithCause(vaulterr.ErrConfigInvalid, err)
	}

	if env.Home != "" {
		cfg.Home = env.Home
	}
	if env.StorageBackend != "" {
		cfg.Storage.Backend = strings.ToLower(env.StorageBackend)
	}
	if env.Network != "" {
		cfg.Wallet.Network = strings.ToLower(env.Network)
	}
	if env.LogLevel != "" {
		cfg.Logging.Level = strings.ToLower(env.LogLevel)
	}
	if env.OutputFormat != "" {
		cfg.Output.DefaultFormat = strings.ToLower(env.OutputFormat)
	}
	if env.Verbose != "" {
		cfg.Output.Verbose = parseBool(env.Verbose)
	}
	if env.AutoLock != nil {
		cfg.Security.AutoLockMinutes = *env.AutoLock
	}

	// NO_COLOR disables colored output regardless of its value.
	if _, ok := os.LookupEnv(EnvNoColor); ok {
		cfg.Output.Color = "never"
	}
	return nil
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	b, _ := strconv.ParseBool(s)
	return b
}
