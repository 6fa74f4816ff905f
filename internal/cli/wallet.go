package cli

import (
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/satvault/internal/output"
	"github.com/mrz1836/satvault/internal/vault"
	"github.com/mrz1836/satvault/internal/wallet"
	vaulterr "github.com/mrz1836/satvault/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	// walletName labels a created or restored wallet.
	walletName string
	// walletWords is the phrase length for create; zero uses the config.
	walletWords int
	// walletNetwork overrides the configured network for create and restore.
	walletNetwork string
	// walletInput is the recovery phrase for restore.
	walletInput string
	// walletYes skips confirmation prompts.
	walletYes bool
)

// walletCmd is the parent command for wallet operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage the vault wallet",
	Long:  `Create, restore, unlock, and manage the single wallet held by this vault.`,
}

// walletCreateCmd creates a new wallet.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new wallet",
	Long: `Create a new wallet from a freshly generated BIP-39 recovery phrase.

The phrase is displayed once - write it down and store it securely.
You will be prompted for a password that encrypts it at rest. An existing
wallet is only replaced after confirmation.

Example:
  satvault wallet create
  satvault wallet create --name savings --words 24
  satvault wallet create --network testnet`,
	Args: cobra.NoArgs,
	RunE: runWalletCreate,
}

// walletRestoreCmd restores a wallet from a recovery phrase.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletRestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore a wallet from a recovery phrase",
	Long: `Restore a wallet from an existing BIP-39 recovery phrase.

Pasted phrases may contain numbering, commas or line breaks; they are
normalized before validation. Misspelled words get a suggestion.

Examples:
  satvault wallet restore
  satvault wallet restore --name savings --input "abandon abandon ... about"`,
	Args: cobra.NoArgs,
	RunE: runWalletRestore,
}

// walletView is the JSON shape for create and restore results.
type walletView struct {
	Name     string         `json:"name"`
	Network  wallet.Network `json:"network"`
	Address  string         `json:"address"`
	Path     string         `json:"derivation_path"`
	Mnemonic string         `json:"mnemonic,omitempty"`
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(walletCmd)
	walletCmd.AddCommand(walletCreateCmd)
	walletCmd.AddCommand(walletRestoreCmd)

	for _, c := range []*cobra.Command{walletCreateCmd, walletRestoreCmd} {
		c.Flags().StringVar(&walletName, "name", "", "wallet label (default: "+wallet.DefaultName+")")
		c.Flags().StringVar(&walletNetwork, "network", "", "bitcoin network: mainnet or testnet (default: from config)")
		c.Flags().BoolVarP(&walletYes, "yes", "y", false, "replace an existing wallet without asking")
	}
	walletCreateCmd.Flags().IntVar(&walletWords, "words", 0, "recovery phrase length: 12 or 24 (default: from config)")
	walletRestoreCmd.Flags().StringVar(&walletInput, "input", "", "recovery phrase (prompted with hidden input when omitted)")
}

// networkOption turns the --network flag into a manager option.
func networkOption() ([]vault.Option, error) {
	if walletNetwork == "" {
		return nil, nil
	}
	n, err := wallet.ParseNetwork(walletNetwork)
	if err != nil {
		return nil, vaulterr.WithSuggestion(
			vaulterr.WithCause(vaulterr.ErrInvalidInput, err),
			"use --network mainnet or --network testnet",
		)
	}
	return []vault.Option{vault.WithNetwork(n)}, nil
}

func runWalletCreate(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)

	if walletWords != 0 && walletWords != 12 && walletWords != 24 {
		return vaulterr.WithSuggestion(vaulterr.ErrInvalidInput, "word count must be 12 or 24")
	}
	opts, err := networkOption()
	if err != nil {
		return err
	}
	if walletWords != 0 {
		opts = append(opts, vault.WithWordCount(walletWords))
	}

	m, err := openManager(cc, opts...)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()

	if err = confirmReplace(cmd, m, walletYes); err != nil {
		return err
	}

	password, err := promptNewPasswordFn("vault password")
	if err != nil {
		return err
	}

	var mnemonic string
	err = withSecret(cc, password, func(pw []byte) error {
		var createErr error
		mnemonic, createErr = m.Create(cmd.Context(), pw, walletName)
		return createErr
	})
	if err != nil {
		return err
	}
	defer m.Lock()

	sess, err := m.Session()
	if err != nil {
		return err
	}

	view := walletView{
		Name:     sess.Name(),
		Network:  networkOf(cmd, m),
		Address:  sess.Address(),
		Path:     sess.Path(),
		Mnemonic: mnemonic,
	}
	return cc.Formatter.Result(view, func(w io.Writer) error {
		displayMnemonic(w, mnemonic)
		displayWallet(w, "Wallet created", view)
		return nil
	})
}

func runWalletRestore(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)

	opts, err := networkOption()
	if err != nil {
		return err
	}
	m, err := openManager(cc, opts...)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()

	if err = confirmReplace(cmd, m, walletYes); err != nil {
		return err
	}

	phrase := walletInput
	if phrase == "" {
		if phrase, err = promptMnemonicFn(); err != nil {
			return err
		}
	}
	if err = checkPhraseEarly(phrase); err != nil {
		return err
	}

	password, err := promptNewPasswordFn("vault password")
	if err != nil {
		return err
	}
	err = withSecret(cc, password, func(pw []byte) error {
		return m.Restore(cmd.Context(), phrase, pw, walletName)
	})
	if err != nil {
		return err
	}
	defer m.Lock()

	sess, err := m.Session()
	if err != nil {
		return err
	}

	view := walletView{
		Name:    sess.Name(),
		Network: networkOf(cmd, m),
		Address: sess.Address(),
		Path:    sess.Path(),
	}
	return cc.Formatter.Result(view, func(w io.Writer) error {
		displayWallet(w, "Wallet restored", view)
		outln(w, "Check that this address matches the one you expect before sending funds.")
		return nil
	})
}

// checkPhraseEarly rejects a bad phrase before the user is asked for a new
// password. The manager repeats the check.
func checkPhraseEarly(phrase string) error {
	normalized := wallet.NormalizeMnemonicInput(phrase)
	if wallet.ValidateMnemonic(normalized) {
		return nil
	}

	err := vaulterr.WithCause(vaulterr.ErrInvalidMnemonic, wallet.CheckMnemonic(normalized))
	if typos := wallet.DetectTypos(normalized); len(typos) > 0 {
		return vaulterr.WithSuggestion(err, wallet.FormatTypoSuggestions(typos))
	}
	return vaulterr.WithSuggestion(err, "check the words and their order")
}

// networkOf reads the stored record's network for display.
func networkOf(cmd *cobra.Command, m *vault.Manager) wallet.Network {
	sum, err := m.Record(cmd.Context())
	if err != nil {
		return ""
	}
	return sum.Network
}

// displayMnemonic shows the recovery phrase with formatting.
func displayMnemonic(w io.Writer, mnemonic string) {
	outln(w)
	outln(w, "═══════════════════════════════════════════════════════════════")
	outln(w, "                    RECOVERY PHRASE")
	outln(w, "═══════════════════════════════════════════════════════════════")
	outln(w)
	outln(w, "Write down these words in order and store them securely.")
	outln(w, "This is the ONLY way to recover your wallet. It will not be shown again.")
	outln(w)

	words := strings.Fields(mnemonic)
	for i, word := range words {
		out(w, "%2d. %s\n", i+1, word)
	}

	outln(w)
	outln(w, "═══════════════════════════════════════════════════════════════")
	outln(w)
}

func displayWallet(w io.Writer, title string, v walletView) {
	out(w, "%s: %s\n", title, v.Name)
	outln(w)
	_ = output.NewFields("  ").
		Add("Network", string(v.Network)).
		Add("Address", v.Address).
		Add("Path", v.Path).
		Render(w)
	outln(w)
}
