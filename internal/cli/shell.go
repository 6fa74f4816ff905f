package cli

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/satvault/internal/output"
	"github.com/mrz1836/satvault/internal/vault"
	vaulterr "github.com/mrz1836/satvault/pkg/errors"
)

// shellCmd keeps one vault manager alive so the wallet can stay unlocked
// across commands until it is locked or auto-locks.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive session with auto-lock",
	Long: `Start an interactive session. The wallet stays unlocked between
commands until "lock", "quit", or the idle auto-lock timeout.

Commands:
  status            show wallet state
  unlock            unlock with the vault password
  lock              lock immediately
  address [qr]      show the receive address
  sign <hash>       sign a 32-byte hex hash (requires unlock)
  metrics           show operation counters for this session
  help              list commands
  quit              lock and exit`,
	Args: cobra.NoArgs,
	RunE: runShell,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(shellCmd)
}

type shell struct {
	cc     *CommandContext
	m      *vault.Manager
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer
}

func runShell(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	m, err := openManager(cc)
	if err != nil {
		return err
	}
	defer func() {
		m.Lock()
		_ = m.Close()
	}()

	in := stdin
	if r := cmd.InOrStdin(); r != os.Stdin {
		in = bufio.NewReader(r)
	}

	sh := &shell{cc: cc, m: m, in: in, out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr()}
	return sh.run(cmd.Context())
}

func (s *shell) run(ctx context.Context) error {
	outln(s.errOut, `satvault shell - type "help" for commands`)
	for {
		if ctx.Err() != nil {
			return nil
		}
		out(s.errOut, "%s> ", s.label())

		line, err := s.in.ReadString('\n')
		if line == "" && err != nil {
			outln(s.errOut)
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		done, cmdErr := s.exec(ctx, strings.ToLower(fields[0]), fields[1:])
		if cmdErr != nil {
			_ = output.FormatError(s.errOut, cmdErr, output.FormatText)
		}
		if done {
			return nil
		}
	}
}

// label names the prompt after the unlocked wallet.
func (s *shell) label() string {
	if sess, err := s.m.Session(); err == nil {
		return "satvault (" + sess.Name() + ")"
	}
	return "satvault (locked)"
}

func (s *shell) exec(ctx context.Context, name string, args []string) (bool, error) {
	switch name {
	case "quit", "exit", "q":
		return true, nil
	case "help", "?":
		s.help()
		return false, nil
	case "status":
		return false, s.status(ctx)
	case "unlock":
		return false, s.unlock(ctx)
	case "lock":
		s.m.Lock()
		output.Info(s.out, "Locked")
		return false, nil
	case "address":
		return false, s.address(ctx, args)
	case "sign":
		return false, s.sign(args)
	case "metrics":
		return false, printMetrics(s.cc, s.out)
	default:
		return false, vaulterr.WithSuggestion(
			vaulterr.WithDetails(vaulterr.ErrInvalidInput, map[string]string{"command": name}),
			`type "help" for the list of commands`,
		)
	}
}

func (s *shell) help() {
	lines := strings.SplitAfter(shellCmd.Long, "Commands:\n")
	if len(lines) == 2 {
		out(s.out, "%s\n", lines[1])
	}
}

func (s *shell) status(ctx context.Context) error {
	view, err := buildStatus(ctx, s.cc, s.m)
	if err != nil {
		return err
	}
	return s.cc.Formatter.Result(view, func(w io.Writer) error {
		displayStatus(w, view)
		return nil
	})
}

func (s *shell) unlock(ctx context.Context) error {
	if s.m.IsUnlocked() {
		output.Info(s.out, "Already unlocked")
		return nil
	}
	has, err := s.m.HasWallet(ctx)
	if err != nil {
		return err
	}
	if !has {
		return noWalletError()
	}

	err = withPassword(s.cc, "Enter vault password: ", func(pw []byte) error {
		ok, unlockErr := s.m.Unlock(ctx, pw)
		if unlockErr != nil {
			return unlockErr
		}
		if !ok {
			return vaulterr.WithSuggestion(vaulterr.ErrAuthentication, "check the password and try again")
		}
		return nil
	})
	if err != nil {
		return err
	}

	sess, err := s.m.Session()
	if err != nil {
		return err
	}
	if ttl := s.cc.Config.AutoLockTTL(); ttl > 0 {
		output.Successf(s.out, "Unlocked %q. Locks after %s idle.", sess.Name(), ttl)
	} else {
		output.Successf(s.out, "Unlocked %q. Auto-lock is disabled.", sess.Name())
	}
	return nil
}

func (s *shell) address(ctx context.Context, args []string) error {
	addr, err := s.m.Address()
	if errors.Is(err, vaulterr.ErrLocked) {
		sum, recErr := s.m.Record(ctx)
		if recErr != nil {
			return recErr
		}
		addr, err = sum.Address, nil
	}
	if err != nil {
		return err
	}

	outln(s.out, addr)
	if len(args) > 0 && strings.EqualFold(args[0], "qr") {
		cfg := output.DefaultQRConfig()
		cfg.Force = true
		return output.RenderQR(s.out, output.PaymentURI(addr), cfg)
	}
	return nil
}

func (s *shell) sign(args []string) error {
	if len(args) != 1 {
		return vaulterr.WithSuggestion(vaulterr.ErrInvalidInput, "usage: sign <64 hex characters>")
	}
	hash, err := parseHash(args[0])
	if err != nil {
		return err
	}

	sess, err := s.m.Session()
	if err != nil {
		return vaulterr.WithSuggestion(err, `run "unlock" first`)
	}
	sig, err := s.m.Sign(hash)
	if errors.Is(err, vaulterr.ErrLocked) {
		return vaulterr.WithSuggestion(err, `run "unlock" first`)
	}
	if err != nil {
		return err
	}

	view := signView{
		Hash:      hex.EncodeToString(hash),
		Signature: hex.EncodeToString(sig),
		PublicKey: hex.EncodeToString(sess.PublicKey()),
		Address:   sess.Address(),
	}
	return s.cc.Formatter.Details(view, "", signatureFields(view))
}
