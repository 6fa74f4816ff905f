package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vaulterr "github.com/mrz1836/satvault/pkg/errors"
)

func TestWalletCreate(t *testing.T) {
	home := t.TempDir()
	withMockPrompts(t, testPassword, true)

	res := runCLI(t, home, "wallet", "create", "--name", "savings", "-o", "json")
	require.NoError(t, res.err, res.stderr)

	var view walletView
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &view))
	assert.Equal(t, "savings", view.Name)
	assert.Equal(t, "mainnet", string(view.Network))
	assert.True(t, strings.HasPrefix(view.Address, "bc1q"))
	assert.Equal(t, "m/84'/0'/0'/0/0", view.Path)
	assert.Len(t, strings.Fields(view.Mnemonic), 12)
}

func TestWalletCreateTextShowsPhrase(t *testing.T) {
	home := t.TempDir()
	withMockPrompts(t, testPassword, true)

	res := runCLI(t, home, "wallet", "create", "--words", "24", "-o", "text")
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, "RECOVERY PHRASE")
	assert.Contains(t, res.stdout, "24. ")
	assert.Contains(t, res.stdout, "Wallet created: default")
}

func TestWalletCreateTestnet(t *testing.T) {
	home := t.TempDir()
	withMockPrompts(t, testPassword, true)

	res := runCLI(t, home, "wallet", "create", "--network", "testnet", "-o", "json")
	require.NoError(t, res.err, res.stderr)

	var view walletView
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &view))
	assert.Equal(t, "testnet", string(view.Network))
	assert.True(t, strings.HasPrefix(view.Address, "tb1q"))
}

func TestWalletCreateRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"word count", []string{"--words", "15"}},
		{"network", []string{"--network", "regtest"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withMockPrompts(t, testPassword, true)
			args := append([]string{"wallet", "create", "-o", "text"}, tt.args...)
			res := runCLI(t, t.TempDir(), args...)
			require.Error(t, res.err)
			assert.Equal(t, vaulterr.ExitInput, ExitCode(res.err))
			assert.Contains(t, res.stderr, "Error:")
		})
	}
}

func TestWalletCreateWeakPassword(t *testing.T) {
	withMockPrompts(t, "short", true)

	res := runCLI(t, t.TempDir(), "wallet", "create", "-o", "json")
	require.Error(t, res.err)
	assert.True(t, vaulterr.Is(res.err, vaulterr.ErrWeakPassword))
	assert.Contains(t, res.stderr, `"code": "WEAK_PASSWORD"`)
}

func TestWalletCreateReplaceDeclined(t *testing.T) {
	home := restoredHome(t)
	withMockPrompts(t, testPassword, false)

	res := runCLI(t, home, "wallet", "create", "-o", "text")
	require.ErrorIs(t, res.err, errCancelled)

	status := runCLI(t, home, "wallet", "status", "-o", "json")
	require.NoError(t, status.err)
	assert.Contains(t, status.stdout, abandonAddress)
}

func TestWalletCreateReplaceWithYes(t *testing.T) {
	home := restoredHome(t)
	withMockPrompts(t, testPassword, false)

	res := runCLI(t, home, "wallet", "create", "--yes", "-o", "json")
	require.NoError(t, res.err, res.stderr)

	status := runCLI(t, home, "wallet", "status", "-o", "json")
	require.NoError(t, status.err)
	assert.NotContains(t, status.stdout, abandonAddress)
}

func TestWalletRestore(t *testing.T) {
	home := t.TempDir()
	withMockPrompts(t, testPassword, true)

	res := runCLI(t, home, "wallet", "restore", "--input", "1. abandon, abandon abandon abandon abandon abandon\nabandon abandon abandon abandon abandon about", "-o", "json")
	require.NoError(t, res.err, res.stderr)

	var view walletView
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &view))
	assert.Equal(t, abandonAddress, view.Address)
	assert.Equal(t, "default", view.Name)
	assert.Empty(t, view.Mnemonic)
}

func TestWalletRestoreTypoSuggestion(t *testing.T) {
	withMockPrompts(t, testPassword, true)
	phrase := strings.Replace(abandonPhrase, "about", "abouts", 1)

	res := runCLI(t, t.TempDir(), "wallet", "restore", "--input", phrase, "-o", "text")
	require.Error(t, res.err)
	assert.True(t, vaulterr.Is(res.err, vaulterr.ErrInvalidMnemonic))
	assert.Contains(t, res.stderr, "Suggestion:")
	assert.Contains(t, res.stderr, "about")
}

func TestWalletStatus(t *testing.T) {
	t.Run("no wallet", func(t *testing.T) {
		res := runCLI(t, t.TempDir(), "wallet", "status", "-o", "text")
		require.NoError(t, res.err)
		assert.Contains(t, res.stdout, "No wallet found.")
	})

	t.Run("locked wallet", func(t *testing.T) {
		home := restoredHome(t)
		res := runCLI(t, home, "wallet", "status", "-o", "json")
		require.NoError(t, res.err)

		var view statusView
		require.NoError(t, json.Unmarshal([]byte(res.stdout), &view))
		assert.Equal(t, "locked", view.State)
		assert.Equal(t, "test", view.Name)
		assert.Equal(t, abandonAddress, view.Address)
		assert.Equal(t, "argon2id", view.KDF)
		assert.Equal(t, "file", view.Backend)
		assert.NotNil(t, view.CreatedAt)
		assert.Nil(t, view.ExpiresAt)
	})

	t.Run("locked wallet text", func(t *testing.T) {
		home := restoredHome(t)
		res := runCLI(t, home, "wallet", "status", "-o", "text")
		require.NoError(t, res.err)
		assert.Contains(t, res.stdout, "Wallet:    test\n")
		assert.Contains(t, res.stdout, "Sealed:    argon2id / ")
		assert.Contains(t, res.stdout, "Auto-lock: -\n")
	})
}

func TestWalletUnlock(t *testing.T) {
	home := restoredHome(t)

	t.Run("correct password", func(t *testing.T) {
		withMockPrompts(t, testPassword, true)
		res := runCLI(t, home, "wallet", "unlock", "-o", "text")
		require.NoError(t, res.err, res.stderr)
		assert.Contains(t, res.stdout, `Password accepted for wallet "test"`)
		assert.Contains(t, res.stdout, abandonAddress)
	})

	t.Run("wrong password", func(t *testing.T) {
		withMockPrompts(t, "not-the-password", true)
		res := runCLI(t, home, "wallet", "unlock", "-o", "text")
		require.Error(t, res.err)
		assert.Equal(t, vaulterr.ExitAuth, ExitCode(res.err))
		assert.Contains(t, res.stderr, "check the password")
	})

	t.Run("no wallet", func(t *testing.T) {
		withMockPrompts(t, testPassword, true)
		res := runCLI(t, t.TempDir(), "wallet", "unlock", "-o", "text")
		require.Error(t, res.err)
		assert.Equal(t, vaulterr.ExitNotFound, ExitCode(res.err))
	})
}

func TestWalletAddress(t *testing.T) {
	home := restoredHome(t)

	res := runCLI(t, home, "wallet", "address", "-o", "text")
	require.NoError(t, res.err)
	assert.Equal(t, abandonAddress+"\n", res.stdout)

	res = runCLI(t, home, "wallet", "address", "-o", "json")
	require.NoError(t, res.err)
	var view map[string]string
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &view))
	assert.Equal(t, "bitcoin:"+strings.ToUpper(abandonAddress), view["uri"])

	res = runCLI(t, home, "wallet", "address", "--qr", "-o", "text")
	require.NoError(t, res.err)
	assert.Greater(t, strings.Count(res.stdout, "\n"), 10)
}

func TestWalletSign(t *testing.T) {
	home := restoredHome(t)
	hash := strings.Repeat("ab", 32)

	withMockPrompts(t, testPassword, true)
	res := runCLI(t, home, "wallet", "sign", "--hash", "0x"+hash, "-o", "json")
	require.NoError(t, res.err, res.stderr)

	var view signView
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &view))
	assert.Equal(t, hash, view.Hash)
	assert.Equal(t, abandonAddress, view.Address)
	assert.True(t, strings.HasPrefix(view.Signature, "30"), "DER signature starts with a sequence tag")
	assert.Len(t, view.PublicKey, 66)

	res = runCLI(t, home, "wallet", "sign", "--hash", "abcd", "-o", "text")
	require.Error(t, res.err)
	assert.Equal(t, vaulterr.ExitInput, ExitCode(res.err))
}

func TestWalletPasswd(t *testing.T) {
	home := restoredHome(t)
	const newPassword = "a-brand-new-password"

	withPromptAnswers(t, func(prompt string) string {
		if strings.Contains(prompt, "new") {
			return newPassword
		}
		return testPassword
	}, true)
	res := runCLI(t, home, "wallet", "passwd", "-o", "json")
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, "Vault password changed")

	withMockPrompts(t, testPassword, true)
	res = runCLI(t, home, "wallet", "unlock", "-o", "text")
	assert.Equal(t, vaulterr.ExitAuth, ExitCode(res.err))

	withMockPrompts(t, newPassword, true)
	res = runCLI(t, home, "wallet", "unlock", "-o", "text")
	require.NoError(t, res.err, res.stderr)
}

func TestWalletDelete(t *testing.T) {
	t.Run("declined", func(t *testing.T) {
		home := restoredHome(t)
		withMockPrompts(t, testPassword, false)

		res := runCLI(t, home, "wallet", "delete", "-o", "text")
		require.ErrorIs(t, res.err, errCancelled)
		assert.Contains(t, res.stderr, "operation cancelled")
	})

	t.Run("confirmed", func(t *testing.T) {
		home := restoredHome(t)
		withMockPrompts(t, testPassword, true)

		res := runCLI(t, home, "wallet", "delete", "-o", "text")
		require.NoError(t, res.err, res.stderr)
		assert.Contains(t, res.stdout, `Wallet "test" deleted`)

		status := runCLI(t, home, "wallet", "status", "-o", "json")
		require.NoError(t, status.err)
		assert.Contains(t, status.stdout, `"state": "no_wallet"`)
	})

	t.Run("no wallet", func(t *testing.T) {
		res := runCLI(t, t.TempDir(), "wallet", "delete", "--yes", "-o", "text")
		assert.Equal(t, vaulterr.ExitNotFound, ExitCode(res.err))
	})
}

func TestParseHash(t *testing.T) {
	hash, err := parseHash(" 0x" + strings.Repeat("00", 32) + " ")
	require.NoError(t, err)
	assert.Len(t, hash, 32)

	for _, bad := range []string{"", "zz", strings.Repeat("00", 31), strings.Repeat("00", 33)} {
		_, err = parseHash(bad)
		assert.True(t, vaulterr.Is(err, vaulterr.ErrInvalidInput), bad)
	}
}
