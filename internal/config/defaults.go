package config

// DefaultLogFile is the log path used until the user picks another. It
// follows Home, see LogFile.
const DefaultLogFile = "~/.satvault/satvault.log"

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		Version: 1,
		Home:    "~/.satvault",
		Storage: StorageConfig{
			Backend: "file",
		},
		Encryption: EncryptionConfig{
			KDF:    "argon2id",
			Cipher: "aes-256-gcm",
		},
		Wallet: WalletConfig{
			Network:   "mainnet",
			WordCount: 12,
		},
		Security: SecurityConfig{
			AutoLockMinutes:     15,
			UnlockRatePerSecond: 0, // disabled; retries stay unlimited
			UnlockBurst:         0,
			MemoryLock:          true,
		},
		Output: OutputConfig{
			DefaultFormat: "auto",
			Color:         "auto",
			Verbose:       false,
		},
		Logging: LoggingConfig{
			Level: "error",
			File:  DefaultLogFile,
		},
	}
}
