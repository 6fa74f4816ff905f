package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/mrz1836/satvault/internal/wallet"
	vaulterr "github.com/mrz1836/satvault/pkg/errors"
)

// Prompt functions are variables so tests can replace them.
//
//nolint:gochecknoglobals // swappable for tests
var (
	promptPasswordFn    = promptPassword
	promptNewPasswordFn = promptNewPassword
	promptConfirmFn     = promptConfirm
	promptMnemonicFn    = promptMnemonic

	// promptOut receives prompt text so stdout stays clean for results.
	promptOut io.Writer = os.Stderr

	// stdin is shared by every prompt and the shell so buffered input is
	// never split between two readers.
	stdin = bufio.NewReader(os.Stdin)
)

// readLine reads one line from stdin without the trailing newline.
func readLine() (string, error) {
	line, err := stdin.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readSecret reads a line with echo disabled when stdin is a terminal. Piped
// input is read as a plain line so scripts can supply secrets.
func readSecret() ([]byte, error) {
	fd := int(os.Stdin.Fd()) //nolint:gosec // G115: Fd() returns uintptr, safe conversion for term.IsTerminal
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		outln(promptOut) // Add newline after hidden input
		return secret, err
	}

	line, err := readLine()
	if err != nil {
		return nil, err
	}
	return []byte(line), nil
}

// promptPassword prompts for a password with hidden input.
// The caller is responsible for zeroing the returned bytes after use.
func promptPassword(prompt string) ([]byte, error) {
	out(promptOut, "%s", prompt)

	password, err := readSecret()
	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}
	return password, nil
}

// promptNewPassword prompts for a new secret named label, with confirmation.
// The caller is responsible for zeroing the returned bytes after use.
func promptNewPassword(label string) ([]byte, error) {
	password, err := promptPasswordFn(fmt.Sprintf("Enter %s: ", label))
	if err != nil {
		return nil, err
	}

	confirm, err := promptPasswordFn(fmt.Sprintf("Confirm %s: ", label))
	if err != nil {
		wallet.ZeroBytes(password)
		return nil, err
	}
	defer wallet.ZeroBytes(confirm)

	if string(password) != string(confirm) {
		wallet.ZeroBytes(password)
		return nil, vaulterr.WithSuggestion(
			vaulterr.ErrInvalidInput,
			label+"s do not match",
		)
	}

	return password, nil
}

// promptConfirm asks a yes/no question, defaulting to no.
func promptConfirm(question string) bool {
	out(promptOut, "%s [y/N]: ", question)

	response, err := readLine()
	if err != nil {
		return false
	}

	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes"
}

// promptMnemonic reads a recovery phrase with hidden input.
func promptMnemonic() (string, error) {
	outln(promptOut, "Enter your recovery phrase, all words on one line.")
	out(promptOut, "Recovery phrase (input hidden): ")

	phrase, err := readSecret()
	if err != nil {
		return "", fmt.Errorf("reading recovery phrase: %w", err)
	}
	defer wallet.ZeroBytes(phrase)

	if len(strings.TrimSpace(string(phrase))) == 0 {
		return "", vaulterr.WithSuggestion(vaulterr.ErrInvalidInput, "no recovery phrase provided")
	}
	return string(phrase), nil
}
