package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wireline-network/wireline/pkg/cli"
	"github.com/wireline-network/wireline/pkg/command"
	"github.com/wireline-network/wireline/pkg/interact"
	"github.com/wireline-network/wireline/pkg/observer"
	"github.com/wireline-network/wireline/pkg/runner"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Replay a login handshake against a recorded session capture",
	Long: `Login drives the profile's login state machine against a raw capture
of a login session. It verifies that the profile's prompt grammar carries
the handshake through to the target prompt, echoing what would have been
sent at each step.

When the profile lists no passwords, one is read from the terminal.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, conn, cleanup, err := openSession()
		if err != nil {
			return err
		}
		defer cleanup()

		cfg := p.LoginConfig()
		if len(cfg.Passwords) == 0 {
			pw, err := promptPassword(p.Name)
			if err != nil {
				return err
			}
			cfg.Passwords = []string{pw}
		}

		run := runner.New()
		defer run.Shutdown()

		login, err := interact.NewLogin(conn, cfg, command.WithObserverOptions(
			observer.WithTimeout(p.Timeout.Std()),
			observer.WithInactivityTimeout(p.InactivityTimeout.Std()),
			observer.WithTerminatingTimeout(p.TerminatingTimeout.Std()),
		))
		if err != nil {
			return err
		}
		if err := login.Start(); err != nil {
			return err
		}
		if err := run.Submit(login); err != nil {
			return err
		}

		if err := pumpTranscript(conn); err != nil {
			return err
		}
		if err := run.WaitFor(login, 0); err != nil {
			return err
		}

		if _, err := login.Result(); err != nil {
			fmt.Println(cli.Red("login handshake failed"))
			return fmt.Errorf("login handshake: %w", err)
		}
		fmt.Printf("%s (state %s)\n", cli.Green("login handshake complete"), login.State())
		return nil
	},
}

// promptPassword reads a password from the controlling terminal without
// echo. Fails when stdin is not a terminal rather than reading one from a
// pipe by surprise.
func promptPassword(name string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("profile %s has no passwords and stdin is not a terminal", name)
	}
	fmt.Fprintf(os.Stderr, "Password for %s: ", name)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(pw), nil
}
